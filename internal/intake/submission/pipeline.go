// Package submission commits a finished intake to the platform in three
// ordered phases: profile, preferences, scores. The first two are fatal on
// failure; scores are best effort. Each phase carries an idempotency key so
// a retry skips what the platform already acknowledged.
package submission

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"internship-intake/internal/common/errors"
	"internship-intake/internal/common/logger"
	"internship-intake/internal/common/metrics"
	"internship-intake/internal/common/observability"
	"internship-intake/internal/common/platform"
	"internship-intake/internal/intake/preference"
	"internship-intake/internal/models"
)

type Phase string

const (
	PhaseProfile     Phase = "profile"
	PhasePreferences Phase = "preferences"
	PhaseScores      Phase = "scores"
)

type ProfileCommitter interface {
	CommitProfile(ctx context.Context, studentID string, form platform.ProfileForm, idempotencyKey string) (string, error)
}

type PreferenceCommitter interface {
	CommitPreferences(ctx context.Context, studentID string, prefs []models.SubmittedPreference, idempotencyKey string) error
}

type ScoreComputer interface {
	ComputeScores(ctx context.Context, studentID string, idempotencyKey string) error
}

// Platform is everything the pipeline calls; *platform.Client satisfies it.
type Platform interface {
	ProfileCommitter
	PreferenceCommitter
	ScoreComputer
}

// Warning is a non-fatal phase failure.
type Warning struct {
	Phase   Phase  `json:"phase"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

type Result struct {
	SagaID               string    `json:"sagaId"`
	ProfileID            string    `json:"profileId"`
	PreferencesSubmitted int       `json:"preferencesSubmitted"`
	PreferencesSkipped   bool      `json:"preferencesSkipped"`
	ScoresComputed       bool      `json:"scoresComputed"`
	Reused               []Phase   `json:"reused,omitempty"`
	Warnings             []Warning `json:"warnings,omitempty"`
}

type Config struct {
	PhaseTimeout time.Duration
}

type Pipeline struct {
	profiles    ProfileCommitter
	preferences PreferenceCommitter
	scores      ScoreComputer
	ledger      Ledger
	obs         *observability.Observability
	tracer      trace.Tracer
	cfg         Config
	logger      logger.Logger
}

type Option func(*Pipeline)

func WithObservability(o *observability.Observability) Option {
	return func(p *Pipeline) { p.obs = o }
}

func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

func New(profiles ProfileCommitter, prefs PreferenceCommitter, scores ScoreComputer, ledger Ledger, cfg Config, log logger.Logger, opts ...Option) *Pipeline {
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	p := &Pipeline{
		profiles:    profiles,
		preferences: prefs,
		scores:      scores,
		ledger:      ledger,
		tracer:      observability.Tracer(),
		cfg:         cfg,
		logger:      logger.ForComponent(log, "submission"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// NewForPlatform wires all three phases to one platform client.
func NewForPlatform(pl Platform, ledger Ledger, cfg Config, log logger.Logger, opts ...Option) *Pipeline {
	return New(pl, pl, pl, ledger, cfg, log, opts...)
}

// Key is the idempotency key of one phase.
func Key(sagaID string, phase Phase, digest string) string {
	return fmt.Sprintf("%s:%s:%s", sagaID, phase, digest)
}

// Run executes the saga for snap. Phase 2 starts only after phase 1 is
// acknowledged, phase 3 only after phase 2 is acknowledged or skipped.
func (p *Pipeline) Run(ctx context.Context, sagaID string, snap models.IntakeSnapshot) (*Result, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "submission.run", trace.WithAttributes(
		attribute.String("saga.id", sagaID),
		attribute.String("student.id", snap.StudentID),
	))
	defer span.End()

	log := p.logger.WithFields(map[string]interface{}{"sagaId": sagaID, "studentId": snap.StudentID})
	result := &Result{SagaID: sagaID}

	finish := func(outcome string, err error) {
		metrics.SubmissionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		p.obs.RecordSubmission(ctx, outcome, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
	}

	profileID, err := p.commitProfile(ctx, sagaID, snap, result, log)
	if err != nil {
		finish("profile_failed", err)
		return nil, err
	}
	result.ProfileID = profileID

	if err := p.commitPreferences(ctx, sagaID, snap, result, log); err != nil {
		finish("preferences_failed", err)
		return nil, err
	}

	p.computeScores(ctx, sagaID, snap, result, log)

	outcome := "success"
	if len(result.Warnings) > 0 {
		outcome = "success_with_warnings"
	}
	finish(outcome, nil)
	log.Info("submission completed", map[string]interface{}{
		"profileId":            result.ProfileID,
		"preferencesSubmitted": result.PreferencesSubmitted,
		"preferencesSkipped":   result.PreferencesSkipped,
		"warnings":             len(result.Warnings),
		"durationMs":           time.Since(start).Milliseconds(),
	})
	return result, nil
}

func (p *Pipeline) commitProfile(ctx context.Context, sagaID string, snap models.IntakeSnapshot, result *Result, log logger.Logger) (string, error) {
	form := BuildProfileForm(snap)
	key := Key(sagaID, PhaseProfile, digestForm(form))

	if e, ok := p.acknowledged(ctx, key, log); ok {
		result.Reused = append(result.Reused, PhaseProfile)
		metrics.SubmissionPhases.WithLabelValues(string(PhaseProfile), "reused").Inc()
		return e.ProfileID, nil
	}

	var profileID string
	err := p.phase(ctx, PhaseProfile, func(ctx context.Context) error {
		var err error
		profileID, err = p.profiles.CommitProfile(ctx, snap.StudentID, form, key)
		return err
	})
	if err != nil {
		log.Error("profile commit failed", map[string]interface{}{"error": err.Error()})
		return "", errors.NewProfileCommitFailedError(err)
	}

	p.record(ctx, key, Entry{Phase: PhaseProfile, ProfileID: profileID}, log)
	return profileID, nil
}

func (p *Pipeline) commitPreferences(ctx context.Context, sagaID string, snap models.IntakeSnapshot, result *Result, log logger.Logger) error {
	view := preference.SubmissionView(snap.Preferences)
	if len(view) == 0 {
		result.PreferencesSkipped = true
		metrics.SubmissionPhases.WithLabelValues(string(PhasePreferences), "skipped").Inc()
		log.Info("no submittable preferences, skipping preference commit", nil)
		return nil
	}

	payload := map[string]interface{}{"preferences": view}
	vr, err := preferencePayloadSchema.Validate(payload)
	if err != nil {
		return errors.NewPreferenceCommitFailedError(result.ProfileID, err)
	}
	if !vr.Valid {
		return errors.NewPayloadInvalidError(vr.String()).WithMetadata("profileId", result.ProfileID)
	}

	key := Key(sagaID, PhasePreferences, digestJSON(view))
	if _, ok := p.acknowledged(ctx, key, log); ok {
		result.Reused = append(result.Reused, PhasePreferences)
		result.PreferencesSubmitted = len(view)
		metrics.SubmissionPhases.WithLabelValues(string(PhasePreferences), "reused").Inc()
		return nil
	}

	err = p.phase(ctx, PhasePreferences, func(ctx context.Context) error {
		return p.preferences.CommitPreferences(ctx, snap.StudentID, view, key)
	})
	if err != nil {
		log.Error("preference commit failed after profile was saved", map[string]interface{}{
			"profileId": result.ProfileID,
			"error":     err.Error(),
		})
		return errors.NewPreferenceCommitFailedError(result.ProfileID, err)
	}

	result.PreferencesSubmitted = len(view)
	p.record(ctx, key, Entry{Phase: PhasePreferences, ProfileID: result.ProfileID, Count: len(view)}, log)
	return nil
}

func (p *Pipeline) computeScores(ctx context.Context, sagaID string, snap models.IntakeSnapshot, result *Result, log logger.Logger) {
	key := Key(sagaID, PhaseScores, digestJSON([]string{snap.StudentID, result.ProfileID}))
	if _, ok := p.acknowledged(ctx, key, log); ok {
		result.Reused = append(result.Reused, PhaseScores)
		result.ScoresComputed = true
		metrics.SubmissionPhases.WithLabelValues(string(PhaseScores), "reused").Inc()
		return
	}

	err := p.phase(ctx, PhaseScores, func(ctx context.Context) error {
		return p.scores.ComputeScores(ctx, snap.StudentID, key)
	})
	if err != nil {
		se := errors.NewScoreComputationFailedError(err)
		log.Warn("score computation failed, continuing", map[string]interface{}{"error": err.Error()})
		result.Warnings = append(result.Warnings, Warning{
			Phase:   PhaseScores,
			Code:    string(se.Code),
			Message: se.Message,
			Err:     se,
		})
		return
	}

	result.ScoresComputed = true
	p.record(ctx, key, Entry{Phase: PhaseScores, ProfileID: result.ProfileID}, log)
}

// phase runs fn under the phase timeout inside its own span.
func (p *Pipeline) phase(ctx context.Context, phase Phase, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "submission."+string(phase))
	defer span.End()

	if p.cfg.PhaseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.PhaseTimeout)
		defer cancel()
	}

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "phase failed")
		metrics.SubmissionPhases.WithLabelValues(string(phase), "failed").Inc()
		return err
	}
	metrics.SubmissionPhases.WithLabelValues(string(phase), "ok").Inc()
	return nil
}

func (p *Pipeline) acknowledged(ctx context.Context, key string, log logger.Logger) (Entry, bool) {
	e, ok, err := p.ledger.Lookup(ctx, key)
	if err != nil {
		log.Warn("ledger lookup failed, re-running phase", map[string]interface{}{"key": key, "error": err.Error()})
		return Entry{}, false
	}
	return e, ok
}

func (p *Pipeline) record(ctx context.Context, key string, e Entry, log logger.Logger) {
	e.At = time.Now().UTC()
	if err := p.ledger.Record(ctx, key, e); err != nil {
		log.Warn("ledger write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
