// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	awsclient "internship-intake/internal/common/aws"
	"internship-intake/internal/common/config"
	"internship-intake/internal/common/logger"
	"internship-intake/internal/common/platform"
	"internship-intake/internal/intake/catalog"
	"internship-intake/internal/intake/notify"
	"internship-intake/internal/intake/session"
	"internship-intake/internal/intake/submission"
	"internship-intake/internal/intake/wizard"
	"internship-intake/internal/models"
	"internship-intake/internal/server"
	submitonboarding "internship-intake/internal/workers/intake/submit-onboarding"
)

// ==========================
// Fake matching platform
// ==========================

type fakePlatform struct {
	mu sync.Mutex

	hits           map[string]int
	profileKeys    []string
	preferenceKeys []string
	scoreKeys      []string
	profileFields  map[string]string
	profileFiles   []string
	submitted      []models.SubmittedPreference

	// failPreferences makes the next n preference commits return 503.
	failPreferences int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{hits: make(map[string]int)}
}

var fakeCatalog = map[string]map[string][]string{
	"IT/Consulting": {
		"Tech Intern": {"Pune, Maharashtra", "Bengaluru, Karnataka"},
		"Data Intern": {"Hyderabad, Telangana"},
	},
	"Banking & Finance": {
		"Finance Intern": {"Mumbai, Maharashtra"},
	},
}

func options(values ...string) []models.Option {
	out := make([]models.Option, 0, len(values))
	for _, v := range values {
		out = append(out, models.NewOption(v))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakePlatform) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[name]
}

func (f *fakePlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && path == "/api/sectors":
		f.hits["sectors"]++
		sectors := make([]string, 0, len(fakeCatalog))
		for s := range fakeCatalog {
			sectors = append(sectors, s)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"sectors": options(sectors...)})

	case r.Method == http.MethodGet && path == "/api/roles":
		f.hits["roles"]++
		roles := make([]string, 0)
		for role := range fakeCatalog[r.URL.Query().Get("sector")] {
			roles = append(roles, role)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"roles": options(roles...)})

	case r.Method == http.MethodGet && path == "/api/locations":
		f.hits["locations"]++
		q := r.URL.Query()
		locs := fakeCatalog[q.Get("sector")][q.Get("role")]
		writeJSON(w, http.StatusOK, map[string]interface{}{"locations": options(locs...)})

	case r.Method == http.MethodPost && path == "/send-otp":
		f.hits["send-otp"]++
		writeJSON(w, http.StatusOK, map[string]string{"message": "OTP sent to registered mobile"})

	case r.Method == http.MethodPost && path == "/verify-otp":
		f.hits["verify-otp"]++
		var body struct {
			Aadhaar string `json:"aadhaar"`
			OTP     string `json:"otp"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.OTP != "123456" {
			writeJSON(w, http.StatusOK, map[string]string{"message": "❌ Invalid OTP"})
			return
		}
		// Legacy message-only response; the client derives the flags.
		writeJSON(w, http.StatusOK, map[string]string{"message": "✅ OTP verified. ELIGIBLE for the scheme"})

	case r.Method == http.MethodPost && strings.HasPrefix(path, "/upload/resume/"):
		f.hits["upload-resume"]++
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"autofill":      map[string]string{"name": "Asha Rao"},
			"parsed_skills": []string{"Go"},
		})

	case r.Method == http.MethodGet && strings.HasSuffix(path, "/parse-resume-full"):
		f.hits["parse-full"]++
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"name":   "Asha Rao",
			"skills": map[string]interface{}{"array": []string{"Go", "PostgreSQL", "Redis"}, "count": 3},
			"education": map[string]interface{}{
				"college_name":  "COEP Technological University",
				"degree":        "B.Tech",
				"qualification": "Bachelor's",
				"branch":        "Computer Engineering",
				"cgpa":          8.4,
				"grad_year":     2025,
				"twelth_school": "Fergusson College",
				"twelth_pct":    "86",
				"tenth_school":  "Kendriya Vidyalaya, Pune",
				"tenth_pct":     88.5,
			},
		})

	case r.Method == http.MethodGet && strings.HasSuffix(path, "/parse-resume-skills"):
		f.hits["parse-skills"]++
		writeJSON(w, http.StatusOK, map[string]interface{}{"skills": []string{"Go"}})

	case r.Method == http.MethodPost && strings.HasPrefix(path, "/student/profile/"):
		f.hits["profile"]++
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.profileKeys = append(f.profileKeys, r.Header.Get(platform.IdempotencyHeader))
		f.profileFields = make(map[string]string)
		for k, v := range r.MultipartForm.Value {
			f.profileFields[k] = v[0]
		}
		f.profileFiles = f.profileFiles[:0]
		for k := range r.MultipartForm.File {
			f.profileFiles = append(f.profileFiles, k)
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{"profile_id": 9001, "message": "profile saved"})

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/preferences"):
		f.hits["preferences"]++
		f.preferenceKeys = append(f.preferenceKeys, r.Header.Get(platform.IdempotencyHeader))
		if f.failPreferences > 0 {
			f.failPreferences--
			http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
			return
		}
		var body struct {
			Preferences []models.SubmittedPreference `json:"preferences"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.submitted = body.Preferences
		writeJSON(w, http.StatusOK, map[string]string{"message": "preferences saved"})

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/calculate-scores"):
		f.hits["scores"]++
		f.scoreKeys = append(f.scoreKeys, r.Header.Get(platform.IdempotencyHeader))
		writeJSON(w, http.StatusOK, map[string]string{"message": "scores computed"})

	default:
		http.NotFound(w, r)
	}
}

// ==========================
// AWS fakes
// ==========================

type mockSES struct {
	mock.Mock
}

func (m *mockSES) SendEmail(ctx context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*ses.SendEmailOutput)
	return out, args.Error(1)
}

type mockSNS struct {
	mock.Mock
}

func (m *mockSNS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

// ==========================
// Stack wiring
// ==========================

// recordingRedriver stands in for the Zeebe client and keeps the job
// payloads it was asked to start.
type recordingRedriver struct {
	mu     sync.Mutex
	inputs []submitonboarding.Input
}

func (r *recordingRedriver) StartProcess(_ context.Context, _ string, vars interface{}) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, vars.(submitonboarding.Input))
	return int64(len(r.inputs)), nil
}

type stack struct {
	api       *httptest.Server
	platform  *fakePlatform
	redis     *miniredis.Miniredis
	ses       *mockSES
	sns       *mockSNS
	pipeline  *submission.Pipeline
	snapshots *submission.RedisSnapshots
	notifier  *notify.Notifier
	redriver  *recordingRedriver
}

// newStack wires the real components the way intake-manager does, with
// miniredis standing in for Redis and an in-process fake platform.
func newStack(t *testing.T) *stack {
	t.Helper()
	log := logger.NewTestLogger(t)

	fp := newFakePlatform()
	upstream := httptest.NewServer(fp)
	t.Cleanup(upstream.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	pl := platform.NewClient(config.PlatformConfig{BaseURL: upstream.URL, Timeout: 5000}, log)

	source := catalog.NewCachedSource(catalog.NewHTTPSource(pl), rdb, 10*time.Minute, log)
	options := catalog.New(source, log)

	sessions := session.NewManager(session.NewRedisStore(rdb), time.Hour, log)
	pipeline := submission.NewForPlatform(pl, submission.NewRedisLedger(rdb, 24*time.Hour),
		submission.Config{PhaseTimeout: 5 * time.Second}, log)

	sesSvc := &mockSES{}
	snsSvc := &mockSNS{}
	notifier := notify.New(
		awsclient.NewSESClientWithService(sesSvc, "noreply@internships.example"),
		awsclient.NewSNSClientWithService(snsSvc, "INTERN"),
		notify.Config{EmailEnabled: true, SMSEnabled: true},
		log,
	)

	snapshots := submission.NewRedisSnapshots(rdb, 24*time.Hour)
	redriver := &recordingRedriver{}

	srv, err := server.New(server.Options{
		Config:   config.ServerConfig{Address: ":0", MaxUploadMB: 2},
		Sessions: sessions,
		Wizard: wizard.Dependencies{
			Identity:   pl,
			Resumes:    pl,
			Catalog:    options,
			Submitter:  pipeline,
			OnComplete: notifier.OnComplete,
		},
		Redriver:  redriver,
		Snapshots: snapshots,
		Logger:    log,
	})
	require.NoError(t, err)

	api := httptest.NewServer(srv.Handler())
	t.Cleanup(api.Close)

	return &stack{
		api:       api,
		platform:  fp,
		redis:     mr,
		ses:       sesSvc,
		sns:       snsSvc,
		pipeline:  pipeline,
		snapshots: snapshots,
		notifier:  notifier,
		redriver:  redriver,
	}
}

func (s *stack) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.api.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.api.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *stack) upload(t *testing.T, path, filename string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPut, s.api.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := s.api.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
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
		Message  string                 `json:"message"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"error"`
}

func requireStatus(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	if resp.StatusCode != status {
		var env errorEnvelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		require.Failf(t, "unexpected status", "want %d, got %d: %+v", status, resp.StatusCode, env.Error)
	}
}

func (s *stack) login(t *testing.T) string {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/sessions", map[string]string{
		"studentId": "1042",
		"email":     "asha@example.com",
	})
	requireStatus(t, resp, http.StatusCreated)
	sc := decode[session.Context](t, resp)
	return sc.SessionID
}

func (s *stack) advance(t *testing.T, base string, want models.Step) {
	t.Helper()
	resp := s.do(t, http.MethodPost, base+"/wizard/advance", nil)
	requireStatus(t, resp, http.StatusOK)
	var step struct {
		Step models.Step `json:"step"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&step))
	require.Equal(t, want, step.Step)
}

func (s *stack) state(t *testing.T, base string) wizard.State {
	t.Helper()
	resp := s.do(t, http.MethodGet, base+"/wizard", nil)
	requireStatus(t, resp, http.StatusOK)
	return decode[wizard.State](t, resp)
}

// fillWizard walks a fresh session up to the confirmation step through
// the public API, relying on the platform's résumé parse for education.
func (s *stack) fillWizard(t *testing.T, sessionID string) {
	t.Helper()
	base := "/sessions/" + sessionID

	// Identity
	requireStatus(t, s.do(t, http.MethodPut, base+"/identity", map[string]string{"identifier": "123456789012"}), http.StatusNoContent)
	captcha := decode[map[string]string](t, s.do(t, http.MethodGet, base+"/identity/captcha", nil))
	requireStatus(t, s.do(t, http.MethodPost, base+"/identity/captcha/solve", map[string]string{"answer": captcha["captcha"]}), http.StatusNoContent)
	requireStatus(t, s.do(t, http.MethodPost, base+"/identity/otp", nil), http.StatusOK)

	wrong := decode[models.VerificationResult](t, s.do(t, http.MethodPost, base+"/identity/otp/verify", map[string]string{"otp": "000000"}))
	require.False(t, wrong.Passed())
	verified := decode[models.VerificationResult](t, s.do(t, http.MethodPost, base+"/identity/otp/verify", map[string]string{"otp": "123456"}))
	require.True(t, verified.Verified)
	require.True(t, verified.Eligible)
	s.advance(t, base, models.StepPersonal)

	// Personal
	requireStatus(t, s.do(t, http.MethodPut, base+"/personal", models.PersonalDetails{
		FullName:     "Asha Rao",
		DateOfBirth:  "2003-04-01",
		Mobile:       "98000 00000",
		FatherName:   "Ravi Rao",
		FatherMobile: "9800000001",
		MotherName:   "Mira Rao",
		MotherMobile: "9800000002",
		AnnualIncome: "250000",
	}), http.StatusNoContent)

	resp := s.do(t, http.MethodPost, base+"/wizard/advance", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "income certificate is required")

	requireStatus(t, s.upload(t, base+"/personal/income-certificate", "income.pdf", []byte("%PDF-1.4 income")), http.StatusNoContent)
	s.advance(t, base, models.StepResume)

	// Résumé
	resp = s.upload(t, base+"/resume", "asha-cv.pdf", []byte("%PDF-1.4 resume"))
	requireStatus(t, resp, http.StatusOK)
	af := decode[wizard.Autofill](t, resp)
	assert.Equal(t, wizard.AutofillFull, af.Source)
	assert.True(t, af.Education)

	st := s.state(t, base)
	assert.Equal(t, "Kendriya Vidyalaya, Pune", st.Record.Resume.Tenth.Address)
	assert.Equal(t, "88.5%", st.Record.Resume.Tenth.Score)
	assert.Equal(t, []string{"Go", "PostgreSQL", "Redis"}, st.Record.Resume.Skills)

	resp = s.do(t, http.MethodPost, base+"/wizard/advance", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	env := decode[errorEnvelope](t, resp)
	assert.Contains(t, env.Error.Metadata["missing"], "tenth.document")

	requireStatus(t, s.upload(t, base+"/resume/education/tenth/marksheet", "10th.pdf", []byte("%PDF-1.4 tenth")), http.StatusNoContent)
	s.advance(t, base, models.StepPreferences)

	// Preferences: slot 1 complete, slot 2 without a location.
	requireStatus(t, s.do(t, http.MethodPut, base+"/preferences/1/category", map[string]string{"value": "IT/Consulting"}), http.StatusNoContent)
	requireStatus(t, s.do(t, http.MethodPut, base+"/preferences/1/role", map[string]string{"value": "Tech Intern"}), http.StatusNoContent)
	requireStatus(t, s.do(t, http.MethodPut, base+"/preferences/1/location", map[string]string{"value": "Pune, Maharashtra"}), http.StatusNoContent)
	requireStatus(t, s.do(t, http.MethodPut, base+"/preferences/2/category", map[string]string{"value": "Banking & Finance"}), http.StatusNoContent)
	requireStatus(t, s.do(t, http.MethodPut, base+"/preferences/2/role", map[string]string{"value": "Finance Intern"}), http.StatusNoContent)

	resp = s.do(t, http.MethodPut, base+"/preferences/3/location", map[string]string{"value": "Pune, Maharashtra"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "location before category and role")

	s.advance(t, base, models.StepConfirmation)
}

func expectNotification(s *stack) {
	s.ses.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
		return len(in.Destination.ToAddresses) == 1 &&
			in.Destination.ToAddresses[0] == "asha@example.com" &&
			strings.Contains(aws.ToString(in.Message.Body.Text.Data), "9001")
	})).Return(&ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil).Once()
	s.sns.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.PhoneNumber) == "+919800000000"
	})).Return(&sns.PublishOutput{MessageId: aws.String("sns-1")}, nil).Once()
}

// ==========================
// Tests
// ==========================

func TestE2E_OnboardingSubmits(t *testing.T) {
	s := newStack(t)
	id := s.login(t)
	base := "/sessions/" + id

	s.fillWizard(t, id)
	expectNotification(s)

	resp := s.do(t, http.MethodPost, base+"/wizard/submit", nil)
	requireStatus(t, resp, http.StatusOK)
	res := decode[submission.Result](t, resp)

	assert.Equal(t, "9001", res.ProfileID)
	assert.Equal(t, 2, res.PreferencesSubmitted)
	assert.True(t, res.ScoresComputed)
	assert.Empty(t, res.Reused)
	assert.Empty(t, res.Warnings)

	fp := s.platform
	fp.mu.Lock()
	assert.Equal(t, "Asha Rao", fp.profileFields["name"])
	assert.Equal(t, "250000", fp.profileFields["annual_income"])
	assert.Equal(t, "88.5", fp.profileFields["tenth_pct"])
	assert.Equal(t, "8.4", fp.profileFields["cgpa"])
	assert.Equal(t, "Go,PostgreSQL,Redis", fp.profileFields["skills"])
	assert.ElementsMatch(t, []string{"resume", "income_certificate", "tenth_marksheet"}, fp.profileFiles)
	assert.Equal(t, []models.SubmittedPreference{
		{Sector: "IT/Consulting", Role: "Tech Intern", Location: "Pune, Maharashtra"},
		{Sector: "Banking & Finance", Role: "Finance Intern", Location: ""},
	}, fp.submitted)
	require.Len(t, fp.profileKeys, 1)
	assert.True(t, strings.HasPrefix(fp.profileKeys[0], res.SagaID+":profile:"))
	require.Len(t, fp.scoreKeys, 1)
	fp.mu.Unlock()

	st := s.state(t, base)
	assert.Equal(t, models.StepSubmitted, st.Step)

	resp = s.do(t, http.MethodPost, base+"/wizard/submit", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 1, fp.count("profile"))

	s.ses.AssertExpectations(t)
	s.sns.AssertExpectations(t)

	var acknowledged int
	for _, k := range s.redis.Keys() {
		if strings.HasPrefix(k, "intake:saga:"+res.SagaID) {
			acknowledged++
		}
	}
	assert.Equal(t, 3, acknowledged, "every phase is acknowledged in the ledger")
}

func TestE2E_RetryAfterPreferenceFailureReusesProfile(t *testing.T) {
	s := newStack(t)
	id := s.login(t)
	base := "/sessions/" + id

	s.fillWizard(t, id)
	s.platform.mu.Lock()
	s.platform.failPreferences = 1
	s.platform.mu.Unlock()

	resp := s.do(t, http.MethodPost, base+"/wizard/submit", nil)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	env := decode[errorEnvelope](t, resp)
	assert.Equal(t, "PREFERENCE_COMMIT_FAILED", env.Error.Code)
	assert.Equal(t, "9001", env.Error.Metadata["profileId"])
	assert.Equal(t, models.StepConfirmation, s.state(t, base).Step)

	expectNotification(s)
	resp = s.do(t, http.MethodPost, base+"/wizard/submit", nil)
	requireStatus(t, resp, http.StatusOK)
	res := decode[submission.Result](t, resp)

	assert.Equal(t, "9001", res.ProfileID)
	assert.Equal(t, []submission.Phase{submission.PhaseProfile}, res.Reused)
	assert.True(t, res.ScoresComputed)

	fp := s.platform
	assert.Equal(t, 1, fp.count("profile"), "profile is committed once")
	assert.Equal(t, 2, fp.count("preferences"))
	fp.mu.Lock()
	require.Len(t, fp.preferenceKeys, 2)
	assert.Equal(t, fp.preferenceKeys[0], fp.preferenceKeys[1], "retry reuses the idempotency key")
	fp.mu.Unlock()

	s.ses.AssertExpectations(t)
	s.sns.AssertExpectations(t)
}

func TestE2E_RedriveWorkerFinishesFromParkedSnapshot(t *testing.T) {
	s := newStack(t)
	id := s.login(t)
	base := "/sessions/" + id

	s.fillWizard(t, id)
	s.platform.mu.Lock()
	s.platform.failPreferences = 1
	s.platform.mu.Unlock()

	resp := s.do(t, http.MethodPost, base+"/wizard/submit", nil)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	env := decode[errorEnvelope](t, resp)
	assert.EqualValues(t, 1, env.Error.Metadata["redriveInstanceKey"])

	s.redriver.mu.Lock()
	require.Len(t, s.redriver.inputs, 1)
	input := s.redriver.inputs[0]
	s.redriver.mu.Unlock()

	sagaID := s.state(t, base).SagaID
	assert.Equal(t, sagaID, input.SagaID)
	payload, err := json.Marshal(input)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sagaId":"`+sagaID+`"}`, string(payload), "job variables carry no documents")
	require.True(t, s.redis.Exists("intake:redrive:"+sagaID))

	h, err := submitonboarding.NewHandler(submitonboarding.HandlerOptions{
		CustomConfig: submitonboarding.DefaultConfig(),
		Pipeline:     s.pipeline,
		Snapshots:    s.snapshots,
		OnComplete:   s.notifier.OnComplete,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)

	expectNotification(s)
	out, err := h.Execute(context.Background(), &input)
	require.NoError(t, err)

	assert.Equal(t, "9001", out.ProfileID)
	assert.Equal(t, 2, out.PreferencesSubmitted)
	assert.Equal(t, []string{"profile"}, out.ReusedPhases)
	assert.Equal(t, 1, s.platform.count("profile"), "profile is committed once")
	assert.Equal(t, 2, s.platform.count("preferences"))
	assert.False(t, s.redis.Exists("intake:redrive:"+sagaID), "completed saga discards its snapshot")

	s.platform.mu.Lock()
	assert.ElementsMatch(t, []string{"resume", "income_certificate", "tenth_marksheet"}, s.platform.profileFiles)
	s.platform.mu.Unlock()

	s.ses.AssertExpectations(t)
	s.sns.AssertExpectations(t)
}

func TestE2E_CatalogIsCachedAndLocationsAreExclusive(t *testing.T) {
	s := newStack(t)

	for i := 0; i < 3; i++ {
		resp := s.do(t, http.MethodGet, "/catalog/categories", nil)
		requireStatus(t, resp, http.StatusOK)
		body := decode[map[string][]models.Option](t, resp)
		assert.Len(t, body["categories"], 2)
	}
	assert.Equal(t, 1, s.platform.count("sectors"))

	id := s.login(t)
	base := "/sessions/" + id
	set := func(slot, field, value string) *http.Response {
		return s.do(t, http.MethodPut, base+"/preferences/"+slot+"/"+field, map[string]string{"value": value})
	}
	requireStatus(t, set("1", "category", "IT/Consulting"), http.StatusNoContent)
	requireStatus(t, set("1", "role", "Tech Intern"), http.StatusNoContent)
	requireStatus(t, set("1", "location", "Pune, Maharashtra"), http.StatusNoContent)
	requireStatus(t, set("2", "category", "IT/Consulting"), http.StatusNoContent)
	requireStatus(t, set("2", "role", "Tech Intern"), http.StatusNoContent)

	resp := set("2", "location", "Pune, Maharashtra")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "LOCATION_CLAIMED", decode[errorEnvelope](t, resp).Error.Code)

	requireStatus(t, set("2", "location", "Bengaluru, Karnataka"), http.StatusNoContent)
	assert.Equal(t, 1, s.platform.count("locations"), "second slot reads the cached location list")
}

func TestE2E_LogoutRemovesSession(t *testing.T) {
	s := newStack(t)
	id := s.login(t)

	requireStatus(t, s.do(t, http.MethodGet, "/sessions/"+id+"/wizard", nil), http.StatusOK)
	require.True(t, s.redis.Exists("intake:session:"+id))

	requireStatus(t, s.do(t, http.MethodDelete, "/sessions/"+id, nil), http.StatusNoContent)
	resp := s.do(t, http.MethodGet, "/sessions/"+id+"/wizard", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestE2E_ExpiredSession(t *testing.T) {
	s := newStack(t)
	id := s.login(t)

	s.redis.FastForward(2 * time.Hour)
	resp := s.do(t, http.MethodGet, "/sessions/"+id+"/wizard", nil)
	assert.Contains(t, []int{http.StatusNotFound, http.StatusUnauthorized}, resp.StatusCode)
}

// ==========================
// Benchmarks
// ==========================

func BenchmarkE2E_CatalogRoles(b *testing.B) {
	log := logger.NewNoOpLogger()
	fp := newFakePlatform()
	upstream := httptest.NewServer(fp)
	defer upstream.Close()

	mr, err := miniredis.Run()
	if err != nil {
		b.Fatal(err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	pl := platform.NewClient(config.PlatformConfig{BaseURL: upstream.URL, Timeout: 5000}, log)
	options := catalog.New(catalog.NewCachedSource(catalog.NewHTTPSource(pl), rdb, time.Minute, log), log)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if len(options.Roles(ctx, "IT/Consulting")) == 0 {
			b.Fatal("no roles")
		}
	}
}
