package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"internship-intake/internal/common/config"
	"internship-intake/internal/common/errors"
	"internship-intake/internal/common/logger"
	"internship-intake/internal/common/platform"
	"internship-intake/internal/intake/catalog"
	"internship-intake/internal/intake/session"
	"internship-intake/internal/intake/submission"
	"internship-intake/internal/intake/wizard"
	"internship-intake/internal/models"
	submitonboarding "internship-intake/internal/workers/intake/submit-onboarding"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeIdentity struct{}

func (fakeIdentity) SendOTP(_ context.Context, _ string) (string, error) {
	return "OTP sent", nil
}

func (fakeIdentity) VerifyOTP(_ context.Context, _, _ string) (models.VerificationResult, error) {
	return models.VerificationResult{Verified: true, Eligible: true, Message: "✅ ELIGIBLE"}, nil
}

type fakeParser struct{}

func (fakeParser) QuickParseResume(_ context.Context, _ string, _ *models.Document) (*platform.QuickParse, error) {
	q := &platform.QuickParse{ParsedSkills: []string{"Go", "SQL"}}
	q.Autofill.Name = "Asha Rao"
	return q, nil
}

func (fakeParser) FullParseResume(_ context.Context, _ string) (*platform.FullParse, error) {
	return nil, fmt.Errorf("parser offline")
}

func (fakeParser) ParseResumeSkills(_ context.Context, _ string) ([]string, error) {
	return nil, fmt.Errorf("parser offline")
}

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) Run(ctx context.Context, sagaID string, snap models.IntakeSnapshot) (*submission.Result, error) {
	args := m.Called(ctx, sagaID, snap)
	res, _ := args.Get(0).(*submission.Result)
	return res, args.Error(1)
}

type mockRedriver struct {
	mock.Mock
}

func (m *mockRedriver) StartProcess(ctx context.Context, bpmnProcessID string, vars interface{}) (int64, error) {
	args := m.Called(ctx, bpmnProcessID, vars)
	return args.Get(0).(int64), args.Error(1)
}

type testServer struct {
	*httptest.Server
	srv       *Server
	submitter *mockSubmitter
	redriver  *mockRedriver
	snapshots *submission.MemorySnapshots
	sessions  *session.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithStore(t, session.NewMemoryStore(), time.Hour)
}

func newTestServerWithStore(t *testing.T, store session.Store, ttl time.Duration) *testServer {
	t.Helper()
	log := logger.NewTestLogger(t)
	sub := &mockSubmitter{}
	rd := &mockRedriver{}
	snaps := submission.NewMemorySnapshots()
	sessions := session.NewManager(store, ttl, log)

	srv, err := New(Options{
		Config:   config.ServerConfig{Address: ":0", MaxUploadMB: 1},
		Sessions: sessions,
		Wizard: wizard.Dependencies{
			Identity:  fakeIdentity{},
			Resumes:   fakeParser{},
			Catalog:   catalog.New(nil, log),
			Submitter: sub,
		},
		Redriver:  rd,
		Snapshots: snaps,
		Logger:    log,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, srv: srv, submitter: sub, redriver: rd, snapshots: snaps, sessions: sessions}
}

func (ts *testServer) heldWizards() int {
	ts.srv.mu.Lock()
	defer ts.srv.mu.Unlock()
	return len(ts.srv.wizards)
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) upload(t *testing.T, path, filename string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPut, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) login(t *testing.T) string {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/sessions", loginRequest{StudentID: "42", Email: "asha@example.com"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sc session.Context
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sc))
	require.NotEmpty(t, sc.SessionID)
	return sc.SessionID
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type errorEnvelope struct {
	Error struct {
		Code     string                 `json:"code"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"error"`
}

func expectError(t *testing.T, resp *http.Response, status int, code errors.ErrorCode) errorEnvelope {
	t.Helper()
	require.Equal(t, status, resp.StatusCode)
	env := decode[errorEnvelope](t, resp)
	assert.Equal(t, string(code), env.Error.Code)
	return env
}

func expectStatus(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	if !assert.Equal(t, status, resp.StatusCode) {
		var env errorEnvelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		t.Logf("error body: %+v", env)
	}
}

func (ts *testServer) advance(t *testing.T, base string, want models.Step) {
	t.Helper()
	resp := ts.do(t, http.MethodPost, base+"/wizard/advance", nil)
	expectStatus(t, resp, http.StatusOK)
	step := decode[stepResponse](t, resp)
	require.Equal(t, want, step.Step)
}

// toConfirmation drives a session through the first four steps over HTTP.
func (ts *testServer) toConfirmation(t *testing.T, sessionID string) {
	t.Helper()
	base := "/sessions/" + sessionID

	expectStatus(t, ts.do(t, http.MethodPut, base+"/identity", map[string]string{"identifier": "123412341234"}), http.StatusNoContent)
	captcha := decode[map[string]string](t, ts.do(t, http.MethodGet, base+"/identity/captcha", nil))
	expectStatus(t, ts.do(t, http.MethodPost, base+"/identity/captcha/solve", map[string]string{"answer": captcha["captcha"]}), http.StatusNoContent)
	expectStatus(t, ts.do(t, http.MethodPost, base+"/identity/otp", nil), http.StatusOK)
	verified := decode[models.VerificationResult](t, ts.do(t, http.MethodPost, base+"/identity/otp/verify", map[string]string{"otp": "123456"}))
	require.True(t, verified.Passed())
	ts.advance(t, base, models.StepPersonal)

	expectStatus(t, ts.do(t, http.MethodPut, base+"/personal", models.PersonalDetails{
		FullName:     "Asha Rao",
		DateOfBirth:  "2003-04-01",
		Mobile:       "9800000000",
		FatherName:   "Ravi Rao",
		FatherMobile: "9800000001",
		MotherName:   "Mira Rao",
		MotherMobile: "9800000002",
		AnnualIncome: "250000",
	}), http.StatusNoContent)
	expectStatus(t, ts.upload(t, base+"/personal/income-certificate", "income.pdf", []byte("%PDF-income")), http.StatusNoContent)
	ts.advance(t, base, models.StepResume)

	expectStatus(t, ts.upload(t, base+"/resume", "cv.pdf", []byte("%PDF-cv")), http.StatusOK)
	expectStatus(t, ts.do(t, http.MethodPut, base+"/resume/education/tenth", wizard.EducationInput{
		Label:   "10th",
		Address: "St. Mary's, Pune",
		Score:   "91%",
	}), http.StatusNoContent)
	expectStatus(t, ts.upload(t, base+"/resume/education/tenth/marksheet", "10th.pdf", []byte("%PDF-10th")), http.StatusNoContent)
	ts.advance(t, base, models.StepPreferences)

	expectStatus(t, ts.do(t, http.MethodPut, base+"/preferences/1/category", valueRequest{Value: "IT/Consulting"}), http.StatusNoContent)
	expectStatus(t, ts.do(t, http.MethodPut, base+"/preferences/1/role", valueRequest{Value: "Tech Intern"}), http.StatusNoContent)
	expectStatus(t, ts.do(t, http.MethodPut, base+"/preferences/1/location", valueRequest{Value: "Pune, Maharashtra"}), http.StatusNoContent)
	ts.advance(t, base, models.StepConfirmation)
}

// ==========================
// Tests
// ==========================

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"payload", errors.NewPayloadInvalidError("bad"), http.StatusBadRequest},
		{"incomplete step", errors.NewStepIncompleteError("identity", []string{"captcha"}), http.StatusUnprocessableEntity},
		{"captcha exhausted", errors.NewCaptchaExhaustedError(), http.StatusTooManyRequests},
		{"pending", errors.NewOperationPendingError(), http.StatusConflict},
		{"claimed location", errors.NewLocationClaimedError(2, "Pune"), http.StatusConflict},
		{"unknown session", errors.NewSessionNotFoundError("x"), http.StatusNotFound},
		{"expired session", errors.NewSessionExpiredError("x"), http.StatusUnauthorized},
		{"preference commit", errors.NewPreferenceCommitFailedError("p-1", fmt.Errorf("503")), http.StatusBadGateway},
		{"zeebe", errors.NewExternalServiceError("zeebe", fmt.Errorf("down")), http.StatusBadGateway},
		{"cache", errors.NewCacheUnavailableError(fmt.Errorf("down")), http.StatusServiceUnavailable},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	sessions := session.NewManager(session.NewMemoryStore(), time.Hour, nil)
	_, err = New(Options{Sessions: sessions})
	assert.Error(t, err)

	_, err = New(Options{
		Sessions: sessions,
		Wizard:   wizard.Dependencies{Catalog: catalog.New(nil, nil), Submitter: &mockSubmitter{}},
		Redriver: &mockRedriver{},
	})
	assert.Error(t, err, "re-drive without a snapshot store")
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", decode[map[string]string](t, resp)["status"])
}

func TestServer_NewSessionStartsOnIdentity(t *testing.T) {
	ts := newTestServer(t)
	id := ts.login(t)

	resp := ts.do(t, http.MethodGet, "/sessions/"+id+"/wizard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[wizard.State](t, resp)

	assert.Equal(t, models.StepIdentity, st.Step)
	assert.Equal(t, "identity", st.StepName)
	assert.Contains(t, st.Missing, "identifier")
	assert.Equal(t, "42", st.Record.StudentID)
	assert.NotEmpty(t, st.SagaID)
}

func TestServer_LoginRequiresStudent(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodPost, "/sessions", loginRequest{})
	expectError(t, resp, http.StatusNotFound, errors.ErrCodeSessionNotFound)
}

func TestServer_UnknownSession(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/sessions/nope/wizard", nil)
	expectError(t, resp, http.StatusNotFound, errors.ErrCodeSessionNotFound)
}

func TestServer_AdvanceBlockedListsMissing(t *testing.T) {
	ts := newTestServer(t)
	id := ts.login(t)

	resp := ts.do(t, http.MethodPost, "/sessions/"+id+"/wizard/advance", nil)
	env := expectError(t, resp, http.StatusUnprocessableEntity, errors.ErrCodeStepIncomplete)
	assert.Equal(t, "identity", env.Error.Metadata["step"])
	assert.Contains(t, env.Error.Metadata["missing"], "captcha")
}

func TestServer_RetreatFromIdentityIsRejected(t *testing.T) {
	ts := newTestServer(t)
	id := ts.login(t)

	resp := ts.do(t, http.MethodPost, "/sessions/"+id+"/wizard/retreat", nil)
	expectError(t, resp, http.StatusConflict, errors.ErrCodeInvalidTransition)
}

func TestServer_WrongCaptcha(t *testing.T) {
	ts := newTestServer(t)
	id := ts.login(t)

	resp := ts.do(t, http.MethodPost, "/sessions/"+id+"/identity/captcha/solve", map[string]string{"answer": "!!!!!!"})
	expectError(t, resp, http.StatusUnprocessableEntity, errors.ErrCodeCaptchaMismatch)

	resp = ts.do(t, http.MethodPost, "/sessions/"+id+"/identity/otp", nil)
	expectError(t, resp, http.StatusUnprocessableEntity, errors.ErrCodeIdentityNotReady)
}

func TestServer_FullFlowSubmits(t *testing.T) {
	ts := newTestServer(t)
	id := ts.login(t)
	ts.toConfirmation(t, id)

	ts.submitter.On("Run", mock.Anything, mock.AnythingOfType("string"), mock.MatchedBy(func(s models.IntakeSnapshot) bool {
		return s.StudentID == "42" &&
			s.Personal.FullName == "Asha Rao" &&
			s.Resume.Tenth.Document.Present() &&
			s.Preferences.Slots[0].Location != nil
	})).Return(&submission.Result{ProfileID: "p-77", PreferencesSubmitted: 1, ScoresComputed: true}, nil).Once()

	resp := ts.do(t, http.MethodPost, "/sessions/"+id+"/wizard/submit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[submission.Result](t, resp)
	assert.Equal(t, "p-77", res.ProfileID)

	st := decode[wizard.State](t, ts.do(t, http.MethodGet, "/sessions/"+id+"/wizard", nil))
	assert.Equal(t, models.StepSubmitted, st.Step)
	require.NotNil(t, st.Record.Resume.Resume)
	assert.Equal(t, "cv.pdf", st.Record.Resume.Resume.Name)
	assert.Empty(t, st.Record.Resume.Resume.Data)
	assert.Empty(t, st.Record.Personal.IncomeCertificate.Data)
	assert.Equal(t, []string{"Go", "SQL"}, st.Record.Resume.Skills)

	resp = ts.do(t, http.MethodPut, "/sessions/"+id+"/resume/skills", map[string][]string{"skills": {"Rust"}})
	expectError(t, resp, http.StatusConflict, errors.ErrCodeInvalidTransition)

	ts.submitter.AssertExpectations(t)
	ts.redriver.AssertNotCalled(t, "StartProcess", mock.Anything, mock.Anything, mock.Anything)
}

func TestServer_SubmitSchedulesRedriveAfterPreferenceFailure(t *testing.T) {
	ts := newTestServer(t)
	id := ts.login(t)
	ts.toConfirmation(t, id)

	st := decode[wizard.State](t, ts.do(t, http.MethodGet, "/sessions/"+id+"/wizard", nil))

	ts.submitter.On("Run", mock.Anything, st.SagaID, mock.Anything).
		Return(nil, errors.NewPreferenceCommitFailedError("p-77", fmt.Errorf("status 503"))).Once()
	ts.redriver.On("StartProcess", mock.Anything, submitonboarding.ProcessID, submitonboarding.Input{SagaID: st.SagaID}).
		Return(int64(2251799813685249), nil).Once()

	resp := ts.do(t, http.MethodPost, "/sessions/"+id+"/wizard/submit", nil)
	env := expectError(t, resp, http.StatusBadGateway, errors.ErrCodePreferenceCommitFailed)
	assert.Equal(t, "p-77", env.Error.Metadata["profileId"])
	assert.EqualValues(t, 2251799813685249, env.Error.Metadata["redriveInstanceKey"])

	parked, ok, err := ts.snapshots.Get(context.Background(), st.SagaID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "42", parked.StudentID)
	assert.True(t, parked.Resume.Tenth.Document.Present(), "parked snapshot keeps document bytes")

	after := decode[wizard.State](t, ts.do(t, http.MethodGet, "/sessions/"+id+"/wizard", nil))
	assert.Equal(t, models.StepConfirmation, after.Step)

	ts.submitter.AssertExpectations(t)
	ts.redriver.AssertExpectations(t)
}

func TestServer_RedriveScheduleFailureDiscardsSnapshot(t *testing.T) {
	ts := newTestServer(t)
	id := ts.login(t)
	ts.toConfirmation(t, id)

	st := decode[wizard.State](t, ts.do(t, http.MethodGet, "/sessions/"+id+"/wizard", nil))

	ts.submitter.On("Run", mock.Anything, st.SagaID, mock.Anything).
		Return(nil, errors.NewPreferenceCommitFailedError("p-77", fmt.Errorf("status 503"))).Once()
	ts.redriver.On("StartProcess", mock.Anything, submitonboarding.ProcessID, mock.Anything).
		Return(int64(0), fmt.Errorf("broker unavailable")).Once()

	resp := ts.do(t, http.MethodPost, "/sessions/"+id+"/wizard/submit", nil)
	env := expectError(t, resp, http.StatusBadGateway, errors.ErrCodePreferenceCommitFailed)
	assert.NotContains(t, env.Error.Metadata, "redriveInstanceKey")

	_, ok, err := ts.snapshots.Get(context.Background(), st.SagaID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestServer_ProfileFailureIsNotRedriven(t *testing.T) {
	ts := newTestServer(t)
	id := ts.login(t)
	ts.toConfirmation(t, id)

	ts.submitter.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.NewProfileCommitFailedError(fmt.Errorf("status 500"))).Once()

	resp := ts.do(t, http.MethodPost, "/sessions/"+id+"/wizard/submit", nil)
	expectError(t, resp, http.StatusBadGateway, errors.ErrCodeProfileCommitFailed)
	ts.redriver.AssertNotCalled(t, "StartProcess", mock.Anything, mock.Anything, mock.Anything)
}

func TestServer_Preferences(t *testing.T) {
	ts := newTestServer(t)
	id := ts.login(t)
	base := "/sessions/" + id + "/preferences"

	t.Run("role before category", func(t *testing.T) {
		resp := ts.do(t, http.MethodPut, base+"/2/role", valueRequest{Value: "Tech Intern"})
		expectError(t, resp, http.StatusUnprocessableEntity, errors.ErrCodeDependentFieldUnset)
	})

	t.Run("slot out of range", func(t *testing.T) {
		resp := ts.do(t, http.MethodPut, base+"/6/category", valueRequest{Value: "Telecom"})
		expectError(t, resp, http.StatusUnprocessableEntity, errors.ErrCodeSlotOutOfRange)
	})

	t.Run("slot not a number", func(t *testing.T) {
		resp := ts.do(t, http.MethodGet, base+"/first/locations", nil)
		expectError(t, resp, http.StatusBadRequest, errors.ErrCodePayloadInvalid)
	})

	t.Run("unknown field", func(t *testing.T) {
		resp := ts.do(t, http.MethodPut, base+"/1/stipend", valueRequest{Value: "high"})
		expectError(t, resp, http.StatusBadRequest, errors.ErrCodePayloadInvalid)
	})

	t.Run("unoffered category", func(t *testing.T) {
		resp := ts.do(t, http.MethodPut, base+"/1/category", valueRequest{Value: "Astronomy"})
		expectError(t, resp, http.StatusUnprocessableEntity, errors.ErrCodeOptionUnavailable)
	})

	t.Run("claimed location disabled for sibling", func(t *testing.T) {
		for _, slot := range []string{"1", "2"} {
			expectStatus(t, ts.do(t, http.MethodPut, base+"/"+slot+"/category", valueRequest{Value: "IT/Consulting"}), http.StatusNoContent)
			expectStatus(t, ts.do(t, http.MethodPut, base+"/"+slot+"/role", valueRequest{Value: "Tech Intern"}), http.StatusNoContent)
		}
		expectStatus(t, ts.do(t, http.MethodPut, base+"/1/location", valueRequest{Value: "Mumbai, Maharashtra"}), http.StatusNoContent)

		resp := ts.do(t, http.MethodPut, base+"/2/location", valueRequest{Value: "Mumbai, Maharashtra"})
		expectError(t, resp, http.StatusConflict, errors.ErrCodeLocationClaimed)

		body := decode[struct {
			Locations []struct {
				Value    string `json:"value"`
				Disabled bool   `json:"disabled"`
			} `json:"locations"`
		}](t, ts.do(t, http.MethodGet, base+"/2/locations", nil))
		require.NotEmpty(t, body.Locations)
		for _, loc := range body.Locations {
			assert.Equal(t, loc.Value == "Mumbai, Maharashtra", loc.Disabled, loc.Value)
		}

		expectStatus(t, ts.do(t, http.MethodDelete, base+"/1", nil), http.StatusNoContent)
		expectStatus(t, ts.do(t, http.MethodPut, base+"/2/location", valueRequest{Value: "Mumbai, Maharashtra"}), http.StatusNoContent)
	})
}

func TestServer_Uploads(t *testing.T) {
	ts := newTestServer(t)
	id := ts.login(t)
	base := "/sessions/" + id

	t.Run("missing file part", func(t *testing.T) {
		resp := ts.do(t, http.MethodPut, base+"/resume", map[string]string{"file": "cv.pdf"})
		expectError(t, resp, http.StatusBadRequest, errors.ErrCodePayloadInvalid)
	})

	t.Run("empty resume", func(t *testing.T) {
		resp := ts.upload(t, base+"/resume", "cv.pdf", nil)
		expectError(t, resp, http.StatusUnprocessableEntity, errors.ErrCodeInvalidDocument)
	})

	t.Run("unknown education level", func(t *testing.T) {
		resp := ts.upload(t, base+"/resume/education/phd/marksheet", "phd.pdf", []byte("%PDF"))
		expectError(t, resp, http.StatusUnprocessableEntity, errors.ErrCodeInvalidEducation)
	})

	t.Run("resume autofill reports quick parse", func(t *testing.T) {
		resp := ts.upload(t, base+"/resume", "cv.pdf", []byte("%PDF-cv"))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		fill := decode[wizard.Autofill](t, resp)
		assert.Equal(t, wizard.AutofillQuick, fill.Source)
		assert.Equal(t, "Asha Rao", fill.Name)
	})
}

func TestServer_LogoutDropsWizard(t *testing.T) {
	ts := newTestServer(t)
	id := ts.login(t)
	expectStatus(t, ts.do(t, http.MethodPut, "/sessions/"+id+"/identity", map[string]string{"identifier": "123412341234"}), http.StatusNoContent)

	expectStatus(t, ts.do(t, http.MethodDelete, "/sessions/"+id, nil), http.StatusNoContent)

	assert.Equal(t, 0, ts.heldWizards())

	resp := ts.do(t, http.MethodGet, "/sessions/"+id+"/wizard", nil)
	expectError(t, resp, http.StatusNotFound, errors.ErrCodeSessionNotFound)
}

func TestServer_ExpiredRedisSessionDropsWizard(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ts := newTestServerWithStore(t, session.NewRedisStore(rdb), time.Minute)
	id := ts.login(t)

	expectStatus(t, ts.do(t, http.MethodGet, "/sessions/"+id+"/wizard", nil), http.StatusOK)
	require.Equal(t, 1, ts.heldWizards())

	mr.FastForward(2 * time.Minute)

	resp := ts.do(t, http.MethodGet, "/sessions/"+id+"/wizard", nil)
	expectError(t, resp, http.StatusNotFound, errors.ErrCodeSessionNotFound)
	assert.Equal(t, 0, ts.heldWizards())
}

func TestServer_Catalog(t *testing.T) {
	ts := newTestServer(t)

	cats := decode[map[string][]models.Option](t, ts.do(t, http.MethodGet, "/catalog/categories", nil))
	assert.NotEmpty(t, cats["categories"])

	roles := decode[map[string][]models.Option](t, ts.do(t, http.MethodGet, "/catalog/roles?category=Telecom", nil))
	_, ok := models.FindOption(roles["roles"], "Tech Intern")
	assert.True(t, ok)

	locs := decode[map[string][]models.Option](t, ts.do(t, http.MethodGet, "/catalog/locations?category=Banking+%26+Finance&role=Finance+Intern", nil))
	assert.Len(t, locs["locations"], 2)

	resp := ts.do(t, http.MethodGet, "/catalog/roles", nil)
	expectError(t, resp, http.StatusUnprocessableEntity, errors.ErrCodeDependentFieldUnset)
}
