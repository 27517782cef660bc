// Package risk 对职位内容做欺诈风险分级。结果仅用于展示，从不改变职位状态。
package risk

import "strings"

// Tier 是风险等级。
type Tier string

const (
	Low    Tier = "Low"
	Medium Tier = "Medium"
	High   Tier = "High"
)

const (
	TagSuspiciousKeywords = "Suspicious Keywords"
	TagFlagged            = "Flagged"
	TagSalaryOutlier      = "Salary Outlier"
	TagCleanScan          = "Clean Scan"
)

const (
	paymentKeyword = "payment"
	salaryMarker   = "50000"
)

// Assessment 是一次评估的结果。
type Assessment struct {
	Tier Tier     `json:"tier"`
	Tags []string `json:"tags"`
}

// Classify 根据描述、薪资文本和告警标记计算风险等级。
func Classify(description, salary string, hasWarning bool) Tier {
	if hasWarning || strings.Contains(strings.ToLower(description), paymentKeyword) {
		return High
	}
	if strings.Contains(salary, salaryMarker) {
		return Medium
	}
	return Low
}

// Assess 在等级之外给出建议标签。
func Assess(description, salary string, hasWarning bool) Assessment {
	tier := Classify(description, salary, hasWarning)

	var tags []string
	if strings.Contains(strings.ToLower(description), paymentKeyword) {
		tags = append(tags, TagSuspiciousKeywords)
	}
	if hasWarning {
		tags = append(tags, TagFlagged)
	}
	if tier == Medium {
		tags = append(tags, TagSalaryOutlier)
	}
	if tier != High {
		tags = append(tags, TagCleanScan)
	}
	return Assessment{Tier: tier, Tags: tags}
}
