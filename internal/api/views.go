package api

import (
	"time"

	"jobboard/internal/applications"
	"jobboard/internal/database"
	"jobboard/internal/jobs"
	"jobboard/internal/risk"
)

type jobView struct {
	ID                 uint               `json:"id"`
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	Location           string             `json:"location"`
	Type               string             `json:"type"`
	Salary             string             `json:"salary"`
	Experience         string             `json:"experience"`
	PostedAt           time.Time          `json:"posted_at"`
	Vacancies          string             `json:"vacancies"`
	EmployerID         uint               `json:"employer_id"`
	CompanyName        string             `json:"company_name"`
	CompanyWebsite     string             `json:"company_website,omitempty"`
	CompanyCIN         string             `json:"company_cin,omitempty"`
	CompanyDescription string             `json:"company_description,omitempty"`
	Status             database.JobStatus `json:"status"`
	IsVerified         bool               `json:"is_verified"`
	IsFree             bool               `json:"is_free"`
	IsHidden           bool               `json:"is_hidden"`
	HasWarning         bool               `json:"has_warning"`
	Risk               *risk.Assessment   `json:"risk,omitempty"`
}

func toJobView(j database.Job) jobView {
	return jobView{
		ID:                 j.ID,
		Title:              j.Title,
		Description:        j.Description,
		Location:           j.Location,
		Type:               j.Type,
		Salary:             j.Salary,
		Experience:         j.Experience,
		PostedAt:           j.PostedAt,
		Vacancies:          j.Vacancies,
		EmployerID:         j.EmployerID,
		CompanyName:        j.CompanyName,
		CompanyWebsite:     j.CompanyWebsite,
		CompanyCIN:         j.CompanyCIN,
		CompanyDescription: j.CompanyDescription,
		Status:             j.Status,
		IsVerified:         j.IsVerified,
		IsFree:             j.IsFree,
		IsHidden:           j.IsHidden,
		HasWarning:         j.HasWarning,
	}
}

// toJobViews 转换列表；withRisk 时附带每条职位的风险评估（仅管理后台）。
func toJobViews(list []database.Job, withRisk bool) []jobView {
	out := make([]jobView, 0, len(list))
	for _, j := range list {
		v := toJobView(j)
		if withRisk {
			a := jobs.AssessRisk(j)
			v.Risk = &a
		}
		out = append(out, v)
	}
	return out
}

type applicationView struct {
	ID             uint                       `json:"id"`
	JobID          uint                       `json:"job_id"`
	EmployerID     uint                       `json:"employer_id"`
	ApplicantID    uint                       `json:"applicant_id"`
	Job            database.JobSnapshot       `json:"job"`
	ApplicantName  string                     `json:"applicant_name"`
	ApplicantEmail string                     `json:"applicant_email"`
	ApplicantPhone string                     `json:"applicant_phone"`
	ResumeName     string                     `json:"resume_name"`
	AppliedAt      time.Time                  `json:"applied_at"`
	Experience     string                     `json:"experience,omitempty"`
	Status         database.ApplicationStatus `json:"status"`
	Actionable     bool                       `json:"actionable"`
}

func toApplicationView(a database.Application) applicationView {
	return applicationView{
		ID:             a.ID,
		JobID:          a.JobID,
		EmployerID:     a.EmployerID,
		ApplicantID:    a.ApplicantID,
		Job:            a.Snapshot.Data(),
		ApplicantName:  a.ApplicantName,
		ApplicantEmail: a.ApplicantEmail,
		ApplicantPhone: a.ApplicantPhone,
		ResumeName:     a.ResumeName,
		AppliedAt:      a.AppliedAt,
		Experience:     a.Experience,
		Status:         a.Status,
		Actionable:     applications.Actionable(a.Status),
	}
}

func toApplicationViews(list []database.Application) []applicationView {
	out := make([]applicationView, 0, len(list))
	for _, a := range list {
		out = append(out, toApplicationView(a))
	}
	return out
}
