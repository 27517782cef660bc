package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel(t *testing.T) {
	assert.Equal(t, "user_notify:42", Channel(42))
}

func TestMessageFieldNames(t *testing.T) {
	b, err := json.Marshal(CompanyVerificationMessage{
		Type:        TypeCompanyVerification,
		CompanyName: "Acme",
		Approve:     true,
		Succeeded:   []uint{1, 2},
		Failed:      map[uint]string{3: "job 3 not found"},
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "company_verification", got["type"])
	assert.Equal(t, "Acme", got["company_name"])
	assert.Equal(t, map[string]any{"3": "job 3 not found"}, got["failed"])
	assert.Contains(t, got, "error_code")
}
