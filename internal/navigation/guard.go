// Package navigation 实现无状态的视图访问守卫。
// 它只依据已解析的角色做能力判断，从不访问存储。
package navigation

import (
	"strings"

	"jobboard/internal/role"
)

// View 是前端可请求的视图标识。
type View string

const (
	Home              View = "home"
	Jobs              View = "jobs"
	HowItWorks        View = "how-it-works"
	Login             View = "login"
	EmployerDashboard View = "employer-dashboard"
	MyApplications    View = "my-applications"
	ApplyJob          View = "apply-job"
	AdminDashboard    View = "admin-dashboard"
	CompanyProfile    View = "company-profile"
)

// Views 列出全部已知视图。
var Views = []View{Home, Jobs, HowItWorks, Login, EmployerDashboard, MyApplications, ApplyJob, AdminDashboard, CompanyProfile}

// ParseView 校验外部传入的视图名。
func ParseView(raw string) (View, bool) {
	v := View(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Views {
		if v == known {
			return v, true
		}
	}
	return "", false
}

// Decision 是一次授权判断的结果。
// 允许时 Target 为请求的视图；guest 被拒时 Target 为 login 且 Redirect 为 true；
// 其他拒绝情况 Target 为空，表示停留在当前视图并展示 Reason。
type Decision struct {
	Allowed      bool
	Target       View
	Redirect     bool
	Reason       string
	RequiredRole role.Role
}

type denial struct {
	reason   string
	required role.Role
}

var guestProtected = map[View]bool{
	EmployerDashboard: true,
	MyApplications:    true,
	AdminDashboard:    true,
}

var adminRequired = denial{
	reason:   "Access Denied: Admin privileges required.",
	required: role.Admin,
}

var denied = map[role.Role]map[View]denial{
	role.Employer: {
		Jobs:           {reason: "Access Denied: Please login as a Job Seeker to view jobs.", required: role.JobSeeker},
		MyApplications: {reason: "Access Denied: Please login as a Job Seeker to view applications.", required: role.JobSeeker},
		AdminDashboard: adminRequired,
	},
	role.JobSeeker: {
		EmployerDashboard: {reason: "Access Denied: Please login as an Employer to access the dashboard.", required: role.Employer},
		AdminDashboard:    adminRequired,
	},
}

// Authorize 按顺序应用规则：admin 全部放行；guest 访问受保护视图时跳转登录；
// employer 与 job-seeker 按各自的拒绝表判断。未知角色按 guest 处理。
func Authorize(r role.Role, v View) Decision {
	if r == role.Admin {
		return allow(v)
	}

	if table, ok := denied[r]; ok {
		if d, hit := table[v]; hit {
			return Decision{Reason: d.reason, RequiredRole: d.required}
		}
		return allow(v)
	}

	if guestProtected[v] {
		return Decision{Target: Login, Redirect: true, Reason: "login required"}
	}
	return allow(v)
}

func allow(v View) Decision {
	return Decision{Allowed: true, Target: v}
}
