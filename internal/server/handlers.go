package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"internship-intake/internal/common/errors"
	"internship-intake/internal/intake/wizard"
	"internship-intake/internal/models"
	submitonboarding "internship-intake/internal/workers/intake/submit-onboarding"
)

type loginRequest struct {
	StudentID string `json:"studentId"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile"`
}

type valueRequest struct {
	Value string `json:"value"`
}

type stepResponse struct {
	Step     models.Step `json:"step"`
	StepName string      `json:"stepName"`
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// stateView drops document bytes from the state; clients see names and
// content types only.
func stateView(st wizard.State) wizard.State {
	rec := &st.Record
	rec.Personal.IncomeCertificate = documentMeta(rec.Personal.IncomeCertificate)
	rec.Resume.Resume = documentMeta(rec.Resume.Resume)
	for _, level := range models.EducationLevels {
		b := rec.Resume.Block(level)
		b.Document = documentMeta(b.Document)
	}
	return st
}

func documentMeta(d *models.Document) *models.Document {
	if d == nil {
		return nil
	}
	return &models.Document{Name: d.Name, ContentType: d.ContentType}
}

// Sessions

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	sc, err := s.sessions.Login(r.Context(), req.StudentID, req.Email, req.Mobile)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, sc)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("session_id")
	if err := s.sessions.Logout(r.Context(), id); err != nil {
		s.errorResponse(w, r, errors.NewCacheUnavailableError(err))
		return
	}
	s.drop(id)
	w.WriteHeader(http.StatusNoContent)
}

// Navigation

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stateView(c.State()))
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.move(w, r, (*wizard.Controller).Advance)
}

func (s *Server) handleRetreat(w http.ResponseWriter, r *http.Request) {
	s.move(w, r, (*wizard.Controller).Retreat)
}

func (s *Server) move(w http.ResponseWriter, r *http.Request, fn func(*wizard.Controller) (models.Step, error)) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	step, err := fn(c)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stepResponse{Step: step, StepName: step.String()})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	res, err := c.SubmitFinal(r.Context())
	if err != nil {
		s.redrive(r, c, err)
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// redrive hands a submission that failed after its profile was saved to
// the background worker. The snapshot is parked under the saga ID and the
// job carries only that ID. The response still reports the failure.
func (s *Server) redrive(r *http.Request, c *wizard.Controller, err error) {
	if s.redriver == nil || !errors.HasCode(err, errors.ErrCodePreferenceCommitFailed) {
		return
	}
	st := c.State()
	if perr := s.snapshots.Put(r.Context(), st.SagaID, c.Snapshot()); perr != nil {
		s.logger.Error("failed to park snapshot for re-drive", map[string]interface{}{
			"sagaId": st.SagaID,
			"error":  perr.Error(),
		})
		return
	}
	key, rerr := s.redriver.StartProcess(r.Context(), submitonboarding.ProcessID, submitonboarding.Input{SagaID: st.SagaID})
	if rerr != nil {
		s.logger.Error("failed to schedule submission re-drive", map[string]interface{}{
			"sagaId": st.SagaID,
			"error":  rerr.Error(),
		})
		_ = s.snapshots.Delete(r.Context(), st.SagaID)
		return
	}
	if se, ok := errors.AsStandard(err); ok {
		se.WithMetadata("redriveInstanceKey", key)
	}
	s.logger.Info("submission re-drive scheduled", map[string]interface{}{
		"sagaId":             st.SagaID,
		"processInstanceKey": key,
	})
}

// Identity

func (s *Server) handleSetIdentifier(w http.ResponseWriter, r *http.Request) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req struct {
		Identifier string `json:"identifier"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := c.SetIdentifier(req.Identifier); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCaptcha(w http.ResponseWriter, r *http.Request) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"captcha": c.CaptchaText()})
}

func (s *Server) handleRefreshCaptcha(w http.ResponseWriter, r *http.Request) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	text, err := c.RefreshCaptcha()
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"captcha": text})
}

func (s *Server) handleSolveCaptcha(w http.ResponseWriter, r *http.Request) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req struct {
		Answer string `json:"answer"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := c.SolveCaptcha(req.Answer); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	msg, err := c.SendOTP(r.Context())
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req struct {
		OTP string `json:"otp"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	res, err := c.VerifyOTP(r.Context(), req.OTP)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// Personal details

func (s *Server) handleUpdatePersonal(w http.ResponseWriter, r *http.Request) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var p models.PersonalDetails
	if err := decodeJSON(r, &p); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	// The certificate only arrives through its upload endpoint.
	p.IncomeCertificate = nil
	if err := c.UpdatePersonal(p); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIncomeCertificate(w http.ResponseWriter, r *http.Request) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	doc, err := s.readUpload(w, r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := c.AttachIncomeCertificate(doc); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Résumé and education

func (s *Server) handleAttachResume(w http.ResponseWriter, r *http.Request) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	doc, err := s.readUpload(w, r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	fill, err := c.AttachResume(r.Context(), doc)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, fill)
}

func (s *Server) handleSetSkills(w http.ResponseWriter, r *http.Request) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req struct {
		Skills []string `json:"skills"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := c.SetSkills(req.Skills); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateEducation(w http.ResponseWriter, r *http.Request) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	level, err := educationLevel(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var in wizard.EducationInput
	if err := decodeJSON(r, &in); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := c.UpdateEducation(level, in); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAttachMarksheet(w http.ResponseWriter, r *http.Request) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	level, err := educationLevel(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	doc, err := s.readUpload(w, r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := c.AttachMarksheet(level, doc); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func educationLevel(r *http.Request) (models.EducationLevel, error) {
	raw := r.PathValue("level")
	level, ok := models.ParseEducationLevel(raw)
	if !ok {
		return "", errors.NewInvalidEducationBlockError(fmt.Sprintf("unknown education level %q", raw))
	}
	return level, nil
}

// readUpload reads the "file" part of a multipart request.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*models.Document, error) {
	maxMB := s.cfg.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 10
	}
	limit := int64(maxMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))

	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, badRequest(fmt.Sprintf("invalid upload: %v", err))
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, badRequest("multipart field \"file\" is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, badRequest(fmt.Sprintf("failed to read upload: %v", err))
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &models.Document{Name: header.Filename, ContentType: contentType, Data: data}, nil
}

// Preferences

func slotIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(r.PathValue("slot"))
	if err != nil {
		return 0, badRequest(fmt.Sprintf("slot must be a number, got %q", r.PathValue("slot")))
	}
	return index, nil
}

func (s *Server) handleSetPreference(w http.ResponseWriter, r *http.Request) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	index, err := slotIndex(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req valueRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	switch field := r.PathValue("field"); field {
	case "category":
		err = c.SetCategory(r.Context(), index, req.Value)
	case "role":
		err = c.SetRole(r.Context(), index, req.Value)
	case "location":
		err = c.SetLocation(r.Context(), index, req.Value)
	default:
		err = badRequest(fmt.Sprintf("unknown preference field %q", field))
	}
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearSlot(w http.ResponseWriter, r *http.Request) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	index, err := slotIndex(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := c.ClearSlot(index); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectableLocations(w http.ResponseWriter, r *http.Request) {
	c, err := s.wizard(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	index, err := slotIndex(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	opts, err := c.SelectableLocations(r.Context(), index)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{"locations": opts})
}

// Catalog

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string][]models.Option{
		"categories": s.deps.Catalog.Categories(r.Context()),
	})
}

func (s *Server) handleRoles(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		s.errorResponse(w, r, errors.NewDependentFieldUnsetError("role", "category"))
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string][]models.Option{
		"roles": s.deps.Catalog.Roles(r.Context(), category),
	})
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category, role := q.Get("category"), q.Get("role")
	if category == "" || role == "" {
		s.errorResponse(w, r, errors.NewDependentFieldUnsetError("location", "category and role"))
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string][]models.Option{
		"locations": s.deps.Catalog.Locations(r.Context(), category, role),
	})
}
