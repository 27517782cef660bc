package jobs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"jobboard/internal/apperror"
	"jobboard/internal/database"
)

const (
	cinLength                 = 21
	defaultVacancies          = "1"
	defaultCompanyDescription = "Verified Company"
)

var cinPattern = regexp.MustCompile(`^[LU][0-9]{5}[A-Z]{2}[0-9]{4}[A-Z]{3}[0-9]{6}$`)

// Draft 是雇主提交的职位表单。
type Draft struct {
	Title               string
	Description         string
	Location            string
	JobType             string
	Experience          string
	MinSalary           int
	MaxSalary           int
	Vacancies           string
	CompanyName         string
	CompanyWebsite      string
	CompanyCIN          string
	CompanyDescription  string
	CompanyAddress      string
	DisclaimerConfirmed bool
}

// ValidateCIN 校验公司识别号（CIN）：长度 21 位且符合格式。
func ValidateCIN(cin string) error {
	cin = strings.TrimSpace(cin)
	if cin == "" {
		return apperror.Validation("company_cin", "CIN number is required")
	}
	if len(cin) != cinLength {
		return apperror.Validation("company_cin", "CIN Number must be exactly %d characters long", cinLength)
	}
	if !cinPattern.MatchString(cin) {
		return apperror.Validation("company_cin", "CIN Number format is invalid")
	}
	return nil
}

// FormatSalary 生成 "₹20k - ₹30k/month" 形式的薪资文本，不小于 1000 的金额以 k 表示。
func FormatSalary(min, max int) string {
	return fmt.Sprintf("₹%s - ₹%s/month", compactAmount(min), compactAmount(max))
}

func compactAmount(v int) string {
	if v >= 1000 {
		return strconv.FormatFloat(float64(v)/1000, 'f', -1, 64) + "k"
	}
	return strconv.Itoa(v)
}

// Validate 在任何写入前检查表单。
func (d Draft) Validate() error {
	required := []struct{ field, value string }{
		{"title", d.Title},
		{"description", d.Description},
		{"location", d.Location},
		{"company_name", d.CompanyName},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperror.Validation(r.field, "is required")
		}
	}
	if d.MinSalary <= 0 || d.MaxSalary <= 0 {
		return apperror.Validation("salary", "salary range is required")
	}
	if d.MaxSalary < d.MinSalary {
		return apperror.Validation("salary", "max salary must not be below min salary")
	}
	if !d.DisclaimerConfirmed {
		return apperror.Validation("disclaimer", "You must confirm the safety disclaimer.")
	}
	return ValidateCIN(d.CompanyCIN)
}

// build 生成新职位记录。状态显式为 pending，告警始终为 false：
// 风险评估只在管理后台展示，不决定初始状态。
func (d Draft) build(employerID uint, now time.Time) database.Job {
	experience := strings.TrimSpace(d.Experience)
	if experience == "" {
		experience = "Fresher"
	}
	jobType := strings.TrimSpace(d.JobType)
	if jobType == "" {
		jobType = "Full Time"
	}
	vacancies := strings.TrimSpace(d.Vacancies)
	if vacancies == "" {
		vacancies = defaultVacancies
	}
	description := strings.TrimSpace(d.CompanyDescription)
	if description == "" {
		description = strings.TrimSpace(d.CompanyAddress)
	}
	if description == "" {
		description = defaultCompanyDescription
	}

	return database.Job{
		Title:              strings.TrimSpace(d.Title),
		Description:        strings.TrimSpace(d.Description),
		Location:           strings.TrimSpace(d.Location),
		Type:               experience + " • " + jobType,
		Salary:             FormatSalary(d.MinSalary, d.MaxSalary),
		Experience:         experience,
		PostedAt:           now,
		Vacancies:          vacancies,
		EmployerID:         employerID,
		CompanyName:        strings.TrimSpace(d.CompanyName),
		CompanyWebsite:     strings.TrimSpace(d.CompanyWebsite),
		CompanyCIN:         strings.TrimSpace(d.CompanyCIN),
		CompanyDescription: description,
		Status:             database.JobPending,
		IsVerified:         true,
		IsFree:             true,
		IsHidden:           false,
		HasWarning:         false,
	}
}
