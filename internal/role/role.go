// Package role 负责把已认证的身份解析为唯一的角色。
package role

import "strings"

// Role 决定导航与写操作权限。
type Role string

const (
	Guest     Role = "guest"
	JobSeeker Role = "job-seeker"
	Employer  Role = "employer"
	Admin     Role = "admin"
)

// All 按权限从低到高列出全部角色。
var All = []Role{Guest, JobSeeker, Employer, Admin}

func (r Role) String() string { return string(r) }

// Valid 判断是否为已知角色。
func (r Role) Valid() bool {
	switch r {
	case Guest, JobSeeker, Employer, Admin:
		return true
	}
	return false
}

// Parse 解析外部输入的角色字符串，大小写与首尾空白不敏感。
func Parse(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.Valid() {
		return "", false
	}
	return r, true
}

// Selectable 返回注册时允许自选的角色；admin 只能通过引导记录产生。
func Selectable(r Role) bool {
	return r == JobSeeker || r == Employer
}

// Principal 表示角色解析之前的已认证身份。
type Principal struct {
	ID        uint
	Email     string
	Superuser bool
}
