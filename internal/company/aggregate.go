// Package company 从职位记录推导公司的认证状态，并提供批量认证。
package company

import (
	"sort"
	"strings"

	"jobboard/internal/database"
)

// Status 是公司的聚合认证状态。
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// Aggregate 是某个公司名下全部职位推导出的展示状态。
type Aggregate struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	IsVerified bool   `json:"is_verified"`
	JobCount   int    `json:"job_count"`
}

// AggregateStatus 只看公司名完全相同的职位：任一已通过即 Approved，
// 至少一条且全部驳回为 Rejected，其余为 Pending。
func AggregateStatus(jobs []database.Job, companyName string) Aggregate {
	agg := Aggregate{Name: companyName, Status: StatusPending}
	rejected := 0
	approved := false
	for _, job := range jobs {
		if job.CompanyName != companyName {
			continue
		}
		agg.JobCount++
		switch job.Status {
		case database.JobApproved:
			approved = true
		case database.JobRejected:
			rejected++
		}
	}
	switch {
	case approved:
		agg.Status = StatusApproved
	case agg.JobCount > 0 && rejected == agg.JobCount:
		agg.Status = StatusRejected
	}
	agg.IsVerified = agg.Status == StatusApproved
	return agg
}

// AggregateAll 为出现过的每个公司名计算聚合状态，按名称排序。
func AggregateAll(jobs []database.Job) []Aggregate {
	seen := make(map[string]struct{})
	var names []string
	for _, job := range jobs {
		name := job.CompanyName
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Aggregate, 0, len(names))
	for _, name := range names {
		out = append(out, AggregateStatus(jobs, name))
	}
	return out
}

// Verified 统计已认证的公司数量。
func Verified(aggs []Aggregate) int {
	n := 0
	for _, a := range aggs {
		if a.IsVerified {
			n++
		}
	}
	return n
}
