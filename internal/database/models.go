package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Principal 表示系统中的登录身份。
// Superuser 只能由管理员引导流程写入，解析时无条件视为 admin。
type Principal struct {
	gorm.Model
	Email              string `gorm:"uniqueIndex;size:255"`
	PasswordHash       string `gorm:"size:255"`
	MustChangePassword bool   `gorm:"default:false"`
	Superuser          bool   `gorm:"default:false"`
}

// RoleAssignment 记录注册时选择的角色，写入后不再修改。
type RoleAssignment struct {
	ID          uint   `gorm:"primaryKey"`
	PrincipalID uint   `gorm:"uniqueIndex"`
	Role        string `gorm:"size:32"`
	CreatedAt   time.Time
}

// JobStatus 是职位的审核状态。
type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobApproved JobStatus = "approved"
	JobRejected JobStatus = "rejected"
)

// Job 表示一条职位发布记录。
// Status 在构造时显式赋值，不依赖字段缺省表达 pending。
type Job struct {
	gorm.Model
	Title              string    `gorm:"size:255"`
	Description        string    `gorm:"type:text"`
	Location           string    `gorm:"size:255"`
	Type               string    `gorm:"size:128"`
	Salary             string    `gorm:"size:128"`
	Experience         string    `gorm:"size:64"`
	PostedAt           time.Time `gorm:"index"`
	Vacancies          string    `gorm:"size:16"`
	EmployerID         uint      `gorm:"index"`
	CompanyName        string    `gorm:"size:255;index"`
	CompanyWebsite     string    `gorm:"size:512"`
	CompanyCIN         string    `gorm:"column:company_cin;size:21"`
	CompanyDescription string    `gorm:"type:text"`
	Status             JobStatus `gorm:"size:16;not null;default:pending;index"`
	IsVerified         bool      `gorm:"default:false"`
	IsFree             bool      `gorm:"default:false"`
	IsHidden           bool      `gorm:"default:false"`
	HasWarning         bool      `gorm:"default:false"`
}

// VisibleToJobSeekers 当且仅当已通过审核且未隐藏时返回 true。
func (j Job) VisibleToJobSeekers() bool {
	return j.Status == JobApproved && !j.IsHidden
}

// ApplicationStatus 是投递的审阅状态。
type ApplicationStatus string

const (
	ApplicationPending     ApplicationStatus = "Pending"
	ApplicationReviewed    ApplicationStatus = "Reviewed"
	ApplicationShortlisted ApplicationStatus = "Shortlisted"
	ApplicationRejected    ApplicationStatus = "Rejected"
)

// JobSnapshot 是投递时刻职位信息的冗余副本，之后职位的修改不影响它。
type JobSnapshot struct {
	Title       string `json:"title"`
	CompanyName string `json:"company_name"`
	Location    string `json:"location"`
	Salary      string `json:"salary"`
}

// Application 表示求职者对某个职位的一次投递。
type Application struct {
	gorm.Model
	JobID           uint                            `gorm:"index"`
	EmployerID      uint                            `gorm:"index"`
	ApplicantID     uint                            `gorm:"index"`
	Snapshot        datatypes.JSONType[JobSnapshot] `gorm:"type:json"`
	ApplicantName   string                          `gorm:"size:255"`
	ApplicantEmail  string                          `gorm:"size:255"`
	ApplicantPhone  string                          `gorm:"size:32"`
	ResumeName      string                          `gorm:"size:255"`
	ResumeObjectKey string                          `gorm:"size:512"`
	AppliedAt       time.Time
	Experience      string            `gorm:"size:64"`
	Status          ApplicationStatus `gorm:"size:16;not null;default:Pending;index"`
}
