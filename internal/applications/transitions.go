// Package applications 管理投递的审阅状态。
package applications

import "jobboard/internal/database"

// allowedFrom 列出可以迁移到目标状态的来源状态。
// Rejected 不出现在任何来源列表中：一旦驳回不可再入围或回到审阅。
var allowedFrom = map[database.ApplicationStatus][]database.ApplicationStatus{
	database.ApplicationReviewed:    {database.ApplicationPending},
	database.ApplicationShortlisted: {database.ApplicationPending, database.ApplicationReviewed},
	database.ApplicationRejected:    {database.ApplicationPending, database.ApplicationReviewed, database.ApplicationShortlisted},
}

// CanTransition 判断 from → to 是否是允许的迁移。
func CanTransition(from, to database.ApplicationStatus) bool {
	for _, s := range allowedFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}

// Actionable 判断雇主端是否还展示入围/驳回操作。
func Actionable(status database.ApplicationStatus) bool {
	return status != database.ApplicationRejected
}
