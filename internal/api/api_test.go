package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobboard/internal/applications"
	"jobboard/internal/auth"
	"jobboard/internal/auth/authtest"
	"jobboard/internal/company"
	"jobboard/internal/config"
	"jobboard/internal/database"
	"jobboard/internal/database/dbtest"
	"jobboard/internal/feed"
	"jobboard/internal/jobs"
	"jobboard/internal/role"
	"jobboard/internal/storage"
)

const testCIN = "U72900KA2015PTC082988"

type fakeStorage struct {
	mu       sync.Mutex
	uploaded map[string][]byte
	deleted  []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploaded: map[string][]byte{}}
}

func (s *fakeStorage) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) (*minio.UploadInfo, error) {
	b, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded[objectName] = b
	return &minio.UploadInfo{Key: objectName}, nil
}

func (s *fakeStorage) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://example.invalid/" + objectKey, nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, objectKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, objectKey)
	delete(s.uploaded, objectKey)
	return nil
}

type nopNotifier struct{}

func (nopNotifier) NotifyUser(context.Context, uint, any) error { return nil }

type rejectingScanner struct{}

func (rejectingScanner) Scan(io.Reader) error { return storage.ErrMalicious }

// unavailableScanner 模拟 clamd 不可用。
type unavailableScanner struct{}

func (unavailableScanner) Scan(io.Reader) error { return errors.New("dial tcp: connection refused") }

// newRedisCounter 返回一个连不上的客户端：限流与锁定检查失败时按放行处理。
func newRedisCounter(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type testServer struct {
	engine     *gin.Engine
	auth       *auth.AuthService
	principals *database.PrincipalRepository
	jobs       *jobs.Manager
	bus        *feed.MemoryBus
	storage    *fakeStorage
	deps       Dependencies
}

func newTestServer(t *testing.T, scanner storage.Scanner) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.OpenTestDB(t)
	bus := feed.NewMemoryBus()
	principals := database.NewPrincipalRepository(db)
	resolver := role.NewResolver(principals, nil)
	jm := jobs.NewManager(database.NewJobRepository(db, bus, nil), nil)
	files := newFakeStorage()
	am := applications.NewManager(database.NewApplicationRepository(db, bus, nil), jm, files, nopNotifier{}, nil, 1<<20)

	cfg := &config.Config{}
	cfg.Auth.LoginRateLimitPerHour = 10
	cfg.Auth.LoginLockThreshold = 5
	cfg.Auth.LoginLockTTL = time.Minute

	deps := Dependencies{
		Config:       cfg,
		Redis:        newRedisCounter(t),
		Auth:         authtest.NewService(t),
		Resolver:     resolver,
		Principals:   principals,
		Jobs:         jm,
		Applications: am,
		Verifier:     company.NewVerifier(jm, jm, nil, 2),
		Scanner:      scanner,
		Bus:          bus,
	}
	router := NewRouter(cfg, nil)
	RegisterRoutes(router, deps)

	return &testServer{
		engine:     router,
		auth:       deps.Auth,
		principals: principals,
		jobs:       jm,
		bus:        bus,
		storage:    files,
		deps:       deps,
	}
}

// signIn 直接写入账号并签发 access token。
func (s *testServer) signIn(t *testing.T, email string, r role.Role) (uint, string) {
	t.Helper()
	hash, err := s.auth.HashPassword("password123")
	require.NoError(t, err)

	var p *database.Principal
	if r == role.Admin {
		_, err = s.principals.EnsureAdministrator(context.Background(), email, hash)
		require.NoError(t, err)
		p, err = s.principals.FindByEmail(context.Background(), email)
		require.NoError(t, err)
		// 引导账号默认要求改密，测试中直接放行。
		p.MustChangePassword = false
	} else {
		p, err = s.principals.Register(context.Background(), email, hash, r)
		require.NoError(t, err)
	}

	pair, err := s.auth.GenerateTokenPair(auth.Identity{
		UserID:             p.ID,
		Email:              p.Email,
		Superuser:          p.Superuser,
		MustChangePassword: p.MustChangePassword,
	})
	require.NoError(t, err)
	return p.ID, pair.AccessToken
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func jobRequest(companyName string) createJobRequest {
	return createJobRequest{
		Title:               "Backend Engineer",
		Description:         "Build and operate hiring services.",
		Location:            "Bengaluru",
		MinSalary:           40000,
		MaxSalary:           60000,
		CompanyName:         companyName,
		CompanyCIN:          testCIN,
		DisclaimerConfirmed: true,
	}
}

func (s *testServer) postJob(t *testing.T, token, companyName string) uint {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/employer/jobs", token, jobRequest(companyName))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return uint(decode(t, rec)["id"].(float64))
}

func applyForm(t *testing.T, contentType string, resume []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("full_name", "Asha Rao"))
	require.NoError(t, w.WriteField("email", "asha@example.com"))
	require.NoError(t, w.WriteField("phone", "+91 98765 43210"))
	if resume != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="resume"; filename="cv.pdf"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(resume)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func (s *testServer) apply(t *testing.T, token string, jobID uint) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := applyForm(t, "application/pdf", []byte("%PDF-1.4 resume"))
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/jobs/%d/apply", jobID), body)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{"email": "Hire@Acme.io", "password": "password123", "role": "employer"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "employer", decode(t, rec)["role"])

	rec = s.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{"email": "hire@acme.io", "password": "password123"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{"email": "root@acme.io", "password": "password123", "role": "admin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "hire@acme.io", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "HIRE@acme.io", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "employer", out["role"])
	token, _ := out["access_token"].(string)
	require.NotEmpty(t, token)

	rec = s.do(t, http.MethodGet, "/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "employer", decode(t, rec)["role"])
}

func TestRegisterDefaultsToJobSeeker(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{"email": "seeker@example.com", "password": "password123"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "job-seeker", decode(t, rec)["role"])
}

func TestNavigationDecisions(t *testing.T) {
	s := newTestServer(t, nil)
	_, employer := s.signIn(t, "hire@acme.io", role.Employer)

	rec := s.do(t, http.MethodGet, "/v1/navigation/employer-dashboard", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, false, out["allowed"])
	assert.Equal(t, "login", out["target"])

	rec = s.do(t, http.MethodGet, "/v1/navigation/employer-dashboard", employer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["allowed"])

	rec = s.do(t, http.MethodGet, "/v1/navigation/admin-dashboard", employer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["allowed"])

	rec = s.do(t, http.MethodGet, "/v1/navigation/nowhere", employer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobLifecycleThroughAPI(t *testing.T) {
	s := newTestServer(t, nil)
	_, employer := s.signIn(t, "hire@acme.io", role.Employer)
	_, seeker := s.signIn(t, "seeker@example.com", role.JobSeeker)
	_, admin := s.signIn(t, "root@jobboard.local", role.Admin)

	rec := s.do(t, http.MethodPost, "/v1/employer/jobs", seeker, jobRequest("Acme"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	bad := jobRequest("Acme")
	bad.CompanyCIN = "123"
	rec = s.do(t, http.MethodPost, "/v1/employer/jobs", employer, bad)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "company_cin", decode(t, rec)["field"])

	id := s.postJob(t, employer, "Acme")

	rec = s.do(t, http.MethodGet, "/v1/jobs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["items"])

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/v1/jobs/%d", id), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/v1/admin/jobs/%d/approve", id), employer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/v1/admin/jobs/%d/approve", id), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "approved", decode(t, rec)["status"])

	rec = s.do(t, http.MethodGet, "/v1/jobs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	assert.NotContains(t, items[0], "risk")

	rec = s.do(t, http.MethodGet, "/v1/admin/jobs", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	adminItems := decode(t, rec)["items"].([]any)
	require.Len(t, adminItems, 1)
	assert.Contains(t, adminItems[0], "risk")

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/v1/employer/jobs/%d/visibility", id), employer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["is_hidden"])

	rec = s.do(t, http.MethodGet, "/v1/jobs", "", nil)
	assert.Empty(t, decode(t, rec)["items"])

	rec = s.do(t, http.MethodGet, "/v1/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	assert.EqualValues(t, 1, stats["jobs_posted"])
	assert.EqualValues(t, 3, stats["total_principals"])

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/v1/employer/jobs/%d", id), employer, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestApplyRoleGate(t *testing.T) {
	s := newTestServer(t, nil)
	_, employer := s.signIn(t, "hire@acme.io", role.Employer)
	_, admin := s.signIn(t, "root@jobboard.local", role.Admin)
	id := s.postJob(t, employer, "Acme")
	rec := s.do(t, http.MethodPost, fmt.Sprintf("/v1/admin/jobs/%d/approve", id), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.apply(t, "", id)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "login", decode(t, rec)["redirect"])

	rec = s.apply(t, employer, id)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "Employers cannot apply for jobs")
	assert.Empty(t, s.storage.uploaded)
}

func TestApplyAndReview(t *testing.T) {
	s := newTestServer(t, nil)
	_, employer := s.signIn(t, "hire@acme.io", role.Employer)
	_, other := s.signIn(t, "other@globex.io", role.Employer)
	seekerID, seeker := s.signIn(t, "seeker@example.com", role.JobSeeker)
	_, admin := s.signIn(t, "root@jobboard.local", role.Admin)

	jobID := s.postJob(t, employer, "Acme")
	rec := s.do(t, http.MethodPost, fmt.Sprintf("/v1/admin/jobs/%d/approve", jobID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.apply(t, seeker, jobID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	app := decode(t, rec)
	appID := uint(app["id"].(float64))
	assert.Equal(t, "Pending", app["status"])
	assert.EqualValues(t, seekerID, app["applicant_id"])
	assert.Equal(t, "Backend Engineer", app["job"].(map[string]any)["title"])
	assert.Len(t, s.storage.uploaded, 1)

	rec = s.do(t, http.MethodGet, "/v1/applications/mine", seeker, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)

	rec = s.do(t, http.MethodGet, "/v1/applications/received", other, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["items"])

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/v1/applications/%d/shortlist", appID), other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/v1/applications/%d/open", appID), employer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Reviewed", decode(t, rec)["status"])

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/v1/applications/%d/reject", appID), employer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "Rejected", out["status"])
	assert.Equal(t, false, out["actionable"])

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/v1/applications/%d/shortlist", appID), employer, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/v1/applications/%d/resume-link", appID), employer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec)["url"], "resumes/")
}

func TestApplyRejectsMaliciousResume(t *testing.T) {
	s := newTestServer(t, rejectingScanner{})
	_, employer := s.signIn(t, "hire@acme.io", role.Employer)
	_, seeker := s.signIn(t, "seeker@example.com", role.JobSeeker)
	_, admin := s.signIn(t, "root@jobboard.local", role.Admin)
	jobID := s.postJob(t, employer, "Acme")
	rec := s.do(t, http.MethodPost, fmt.Sprintf("/v1/admin/jobs/%d/approve", jobID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.apply(t, seeker, jobID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, s.storage.uploaded)
}

func TestApplyChecksRoleBeforeScanning(t *testing.T) {
	for name, scanner := range map[string]storage.Scanner{
		"malicious":   rejectingScanner{},
		"unavailable": unavailableScanner{},
	} {
		t.Run(name, func(t *testing.T) {
			s := newTestServer(t, scanner)
			_, employer := s.signIn(t, "hire@acme.io", role.Employer)
			_, admin := s.signIn(t, "root@jobboard.local", role.Admin)
			jobID := s.postJob(t, employer, "Acme")
			rec := s.do(t, http.MethodPost, fmt.Sprintf("/v1/admin/jobs/%d/approve", jobID), admin, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			rec = s.apply(t, "", jobID)
			require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
			assert.Equal(t, "login", decode(t, rec)["redirect"])

			rec = s.apply(t, employer, jobID)
			require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
			assert.Contains(t, decode(t, rec)["error"], "Employers cannot apply for jobs")
			assert.Empty(t, s.storage.uploaded)
		})
	}
}

func TestVerifyCompanySync(t *testing.T) {
	s := newTestServer(t, nil)
	_, employer := s.signIn(t, "hire@acme.io", role.Employer)
	_, admin := s.signIn(t, "root@jobboard.local", role.Admin)
	first := s.postJob(t, employer, "Acme")
	second := s.postJob(t, employer, "Acme")
	s.postJob(t, employer, "Globex")

	rec := s.do(t, http.MethodPost, "/v1/admin/companies/verify", employer, gin.H{"company_name": "Acme", "approve": true})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/admin/companies/verify", admin, gin.H{"company_name": "Acme", "approve": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.ElementsMatch(t, []any{float64(first), float64(second)}, out["succeeded"])
	assert.Equal(t, "Approved", out["aggregate"].(map[string]any)["status"])

	rec = s.do(t, http.MethodPost, "/v1/admin/companies/verify", admin, gin.H{"company_name": "Initech", "approve": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/admin/companies", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/v1/jobs/%d/company", first), "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestVerifyCompanyAsyncWithoutQueue(t *testing.T) {
	s := newTestServer(t, nil)
	_, admin := s.signIn(t, "root@jobboard.local", role.Admin)

	rec := s.do(t, http.MethodPost, "/v1/admin/companies/verify", admin, gin.H{"company_name": "Acme", "approve": true, "async": true})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVerifyCIN(t *testing.T) {
	s := newTestServer(t, nil)
	_, employer := s.signIn(t, "hire@acme.io", role.Employer)

	rec := s.do(t, http.MethodPost, "/v1/company/verify-cin", employer, gin.H{"cin": testCIN})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["valid"])

	rec = s.do(t, http.MethodPost, "/v1/company/verify-cin", employer, gin.H{"cin": "L123"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["valid"])
}

func TestPasswordGateBlocksBootstrapAdmin(t *testing.T) {
	s := newTestServer(t, nil)
	hash, err := s.auth.HashPassword("password123")
	require.NoError(t, err)
	_, err = s.principals.EnsureAdministrator(context.Background(), "root@jobboard.local", hash)
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "root@jobboard.local", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, true, out["must_change_password"])
	assert.Equal(t, "admin", out["role"])

	rec = s.do(t, http.MethodGet, "/v1/admin/stats", out["access_token"].(string), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginKeys(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	assert.Equal(t, "rate:login:10.0.0.1:a@b.io:2024030909", loginRateKey("10.0.0.1", "a@b.io", at))
	assert.Equal(t, "lock:login:a@b.io", loginLockKey("a@b.io"))
	assert.Equal(t, "lock:login:fail:a@b.io", loginFailKey("a@b.io"))
}
