package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobboard/internal/apperror"
	"jobboard/internal/database"
)

const validCIN = "U72900KA2015PTC082988"

func validDraft() Draft {
	return Draft{
		Title:               "Backend Engineer",
		Description:         "Build APIs in Go",
		Location:            "Bengaluru",
		JobType:             "Full Time",
		Experience:          "1-3 Years",
		MinSalary:           25000,
		MaxSalary:           40500,
		CompanyName:         "Acme Labs",
		CompanyWebsite:      "https://acme.example",
		CompanyCIN:          validCIN,
		CompanyAddress:      "12 MG Road",
		DisclaimerConfirmed: true,
	}
}

func TestValidateCIN(t *testing.T) {
	assert.NoError(t, ValidateCIN(validCIN))

	for _, cin := range []string{"", "U72900KA2015PTC08298", "X72900KA2015PTC082988", "u72900ka2015ptc082988"} {
		err := ValidateCIN(cin)
		assert.True(t, apperror.IsValidation(err), "cin %q", cin)
	}
}

func TestFormatSalary(t *testing.T) {
	assert.Equal(t, "₹25k - ₹40.5k/month", FormatSalary(25000, 40500))
	assert.Equal(t, "₹800 - ₹1k/month", FormatSalary(800, 1000))
}

func TestDraftValidate(t *testing.T) {
	require.NoError(t, validDraft().Validate())

	mutations := map[string]func(*Draft){
		"missing title":      func(d *Draft) { d.Title = " " },
		"missing company":    func(d *Draft) { d.CompanyName = "" },
		"no disclaimer":      func(d *Draft) { d.DisclaimerConfirmed = false },
		"inverted salary":    func(d *Draft) { d.MaxSalary = 1000 },
		"missing salary":     func(d *Draft) { d.MinSalary = 0 },
		"malformed cin":      func(d *Draft) { d.CompanyCIN = "ABC" },
		"missing location":   func(d *Draft) { d.Location = "" },
		"missing describing": func(d *Draft) { d.Description = "" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			d := validDraft()
			mutate(&d)
			assert.True(t, apperror.IsValidation(d.Validate()))
		})
	}
}

func TestBuildInitialState(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	job := validDraft().build(42, now)

	assert.Equal(t, database.JobPending, job.Status)
	assert.True(t, job.IsVerified)
	assert.True(t, job.IsFree)
	assert.False(t, job.IsHidden)
	assert.False(t, job.HasWarning)
	assert.Equal(t, uint(42), job.EmployerID)
	assert.Equal(t, now, job.PostedAt)
	assert.Equal(t, "1-3 Years • Full Time", job.Type)
	assert.Equal(t, "1", job.Vacancies)
	assert.Equal(t, "12 MG Road", job.CompanyDescription)
	assert.False(t, job.VisibleToJobSeekers())
}
