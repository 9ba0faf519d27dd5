// Package wizard sequences the five intake steps over one IntakeRecord.
// Forward moves are gated on the current step's predicate; external calls
// run without the lock held and mark the controller busy until they
// resolve.
package wizard

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"internship-intake/internal/common/errors"
	"internship-intake/internal/common/logger"
	"internship-intake/internal/common/metrics"
	"internship-intake/internal/common/platform"
	"internship-intake/internal/intake/captcha"
	"internship-intake/internal/intake/session"
	"internship-intake/internal/intake/submission"
	"internship-intake/internal/models"
)

type IdentityVerifier interface {
	SendOTP(ctx context.Context, identifier string) (string, error)
	VerifyOTP(ctx context.Context, identifier, otp string) (models.VerificationResult, error)
}

type ResumeParser interface {
	QuickParseResume(ctx context.Context, studentID string, doc *models.Document) (*platform.QuickParse, error)
	FullParseResume(ctx context.Context, studentID string) (*platform.FullParse, error)
	ParseResumeSkills(ctx context.Context, studentID string) ([]string, error)
}

// OptionCatalog is satisfied by *catalog.Catalog.
type OptionCatalog interface {
	Categories(ctx context.Context) []models.Option
	Roles(ctx context.Context, category string) []models.Option
	Locations(ctx context.Context, category, role string) []models.Option
}

// Submitter is satisfied by *submission.Pipeline.
type Submitter interface {
	Run(ctx context.Context, sagaID string, snap models.IntakeSnapshot) (*submission.Result, error)
}

// CompletionFunc is called once after a successful submission, outside the
// controller lock.
type CompletionFunc func(ctx context.Context, snap models.IntakeSnapshot, res *submission.Result)

type Dependencies struct {
	Identity   IdentityVerifier
	Resumes    ResumeParser
	Catalog    OptionCatalog
	Submitter  Submitter
	OnComplete CompletionFunc
}

type Config struct {
	Captcha captcha.Config
}

// State is a read-only view of the controller.
type State struct {
	SessionID string                `json:"sessionId"`
	SagaID    string                `json:"sagaId"`
	Step      models.Step           `json:"step"`
	StepName  string                `json:"stepName"`
	Busy      bool                  `json:"busy"`
	Missing   []string              `json:"missing,omitempty"`
	Record    models.IntakeSnapshot `json:"record"`
	Result    *submission.Result    `json:"result,omitempty"`
}

type Controller struct {
	mu      sync.Mutex
	session session.Context
	sagaID  string
	step    models.Step
	record  *models.IntakeRecord
	captcha *captcha.Challenge
	busy    bool
	result  *submission.Result

	deps   Dependencies
	logger logger.Logger
}

// New starts a wizard on the identity step for the given session.
func New(sc session.Context, deps Dependencies, cfg Config, log logger.Logger) (*Controller, error) {
	if sc.StudentID == "" {
		return nil, errors.NewSessionNotFoundError(sc.SessionID)
	}
	c := &Controller{
		session: sc,
		sagaID:  uuid.NewString(),
		step:    models.StepIdentity,
		record:  models.NewIntakeRecord(),
		captcha: captcha.New(cfg.Captcha),
		deps:    deps,
	}
	c.logger = logger.ForComponent(log, "wizard").WithFields(map[string]interface{}{
		"sessionId": sc.SessionID,
		"studentId": sc.StudentID,
		"sagaId":    c.sagaID,
	})
	return c, nil
}

func (c *Controller) Session() session.Context {
	return c.session
}

func (c *Controller) Step() models.Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := State{
		SessionID: c.session.SessionID,
		SagaID:    c.sagaID,
		Step:      c.step,
		StepName:  c.step.String(),
		Busy:      c.busy,
		Record:    c.snapshotLocked(),
		Result:    c.result,
	}
	if c.step < models.StepSubmitted {
		st.Missing = Missing(c.step, c.record)
	}
	return st
}

// Snapshot returns an immutable copy of the record.
func (c *Controller) Snapshot() models.IntakeSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() models.IntakeSnapshot {
	return c.record.Snapshot(c.session.StudentID, c.session.SessionID, c.session.Email)
}

// Advance moves to the next step when the current one is complete.
func (c *Controller) Advance() (models.Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.step
	if c.busy {
		return from, errors.NewOperationPendingError()
	}
	if from >= models.StepConfirmation {
		c.countTransition(from, from, "rejected")
		return from, errors.NewInvalidTransitionError(from.String(), "advance")
	}
	if missing := Missing(from, c.record); len(missing) > 0 {
		c.countTransition(from, from+1, "blocked")
		c.logger.Debug("advance blocked", map[string]interface{}{"step": from.String(), "missing": missing})
		return from, errors.NewStepIncompleteError(from.String(), missing)
	}

	c.step = from + 1
	c.countTransition(from, c.step, "ok")
	c.logger.Info("step advanced", map[string]interface{}{"from": from.String(), "to": c.step.String()})
	return c.step, nil
}

// Retreat moves back one step. Entered data is kept.
func (c *Controller) Retreat() (models.Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.step
	if c.busy {
		return from, errors.NewOperationPendingError()
	}
	if from <= models.StepIdentity || from == models.StepSubmitted {
		c.countTransition(from, from, "rejected")
		return from, errors.NewInvalidTransitionError(from.String(), "retreat")
	}

	c.step = from - 1
	c.countTransition(from, c.step, "ok")
	return c.step, nil
}

// SubmitFinal runs the submission pipeline from the confirmation step. On
// failure the controller stays on confirmation and may be retried; the
// saga ID is stable for the life of the controller.
func (c *Controller) SubmitFinal(ctx context.Context) (*submission.Result, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return nil, errors.NewOperationPendingError()
	}
	if c.step != models.StepConfirmation {
		from := c.step
		c.mu.Unlock()
		return nil, errors.NewInvalidTransitionError(from.String(), "submit")
	}
	snap := c.snapshotLocked()
	c.busy = true
	c.mu.Unlock()

	res, err := c.deps.Submitter.Run(ctx, c.sagaID, snap)

	c.mu.Lock()
	c.busy = false
	if err != nil {
		c.countTransition(models.StepConfirmation, models.StepSubmitted, "failed")
		c.mu.Unlock()
		c.logger.Error("submission failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	c.step = models.StepSubmitted
	c.result = res
	c.countTransition(models.StepConfirmation, models.StepSubmitted, "ok")
	c.mu.Unlock()

	if c.deps.OnComplete != nil {
		c.deps.OnComplete(ctx, snap, res)
	}
	return res, nil
}

// external marks the controller busy, runs fn without the lock, and
// clears the flag afterwards.
func (c *Controller) external(ctx context.Context, fn func(ctx context.Context) error) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return errors.NewOperationPendingError()
	}
	if c.step == models.StepSubmitted {
		c.mu.Unlock()
		return errors.NewInvalidTransitionError(c.step.String(), "edit")
	}
	c.busy = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()
	return fn(ctx)
}

// edit applies fn to the record under the lock.
func (c *Controller) edit(fn func(r *models.IntakeRecord) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step == models.StepSubmitted {
		return errors.NewInvalidTransitionError(c.step.String(), "edit")
	}
	return fn(c.record)
}

func (c *Controller) read(fn func(r *models.IntakeRecord)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.record)
}

func (c *Controller) countTransition(from, to models.Step, outcome string) {
	metrics.StepTransitions.WithLabelValues(from.String(), to.String(), outcome).Inc()
}
