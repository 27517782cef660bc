// Package jobs 管理职位的审核状态、可见性与认证标记。
package jobs

import (
	"jobboard/internal/database"
	"jobboard/internal/risk"
)

// 列名与 database.Job 的 GORM 映射保持一致。
const (
	colStatus     = "status"
	colIsVerified = "is_verified"
	colIsHidden   = "is_hidden"
	colHasWarning = "has_warning"
)

// ApproveFields 返回审核通过时写入的字段：同时清除告警、取消隐藏并标记认证。
func ApproveFields() map[string]any {
	return map[string]any{
		colStatus:     database.JobApproved,
		colHasWarning: false,
		colIsHidden:   false,
		colIsVerified: true,
	}
}

// RejectFields 返回驳回时写入的字段：驳回的职位同时被隐藏并取消认证。
func RejectFields() map[string]any {
	return map[string]any{
		colStatus:     database.JobRejected,
		colIsHidden:   true,
		colIsVerified: false,
	}
}

// ToggleVisibilityFields 只翻转隐藏标记，不触碰审核字段。
func ToggleVisibilityFields(job database.Job) map[string]any {
	return map[string]any{colIsHidden: !job.IsHidden}
}

// ApplyFields 把写入字段应用到内存中的职位，使返回值与存储保持一致。
func ApplyFields(job *database.Job, fields map[string]any) {
	for col, v := range fields {
		switch col {
		case colStatus:
			job.Status = v.(database.JobStatus)
		case colIsVerified:
			job.IsVerified = v.(bool)
		case colIsHidden:
			job.IsHidden = v.(bool)
		case colHasWarning:
			job.HasWarning = v.(bool)
		}
	}
}

// AssessRisk 对职位内容做风险评估，每次读取时重新计算。
func AssessRisk(job database.Job) risk.Assessment {
	return risk.Assess(job.Description, job.Salary, job.HasWarning)
}
