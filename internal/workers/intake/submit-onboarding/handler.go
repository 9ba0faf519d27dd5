// Package submitonboarding re-drives the submission saga for a parked
// intake snapshot as a Zeebe job. The saga ID is reused, so phases the
// platform already acknowledged are skipped.
package submitonboarding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"internship-intake/internal/common/config"
	"internship-intake/internal/common/errors"
	"internship-intake/internal/common/logger"
	"internship-intake/internal/common/metrics"
	"internship-intake/internal/intake/submission"
	"internship-intake/internal/models"
)

const (
	TaskType   = "intake.submission.redrive"
	WorkerName = "submit-onboarding"
	ProcessID  = "intake-submission-redrive"
)

// Runner is satisfied by *submission.Pipeline.
type Runner interface {
	Run(ctx context.Context, sagaID string, snap models.IntakeSnapshot) (*submission.Result, error)
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Pipeline     Runner
	Snapshots    submission.SnapshotStore
	OnComplete   func(ctx context.Context, snap models.IntakeSnapshot, res *submission.Result)
	Logger       logger.Logger
}

type Handler struct {
	config     *Config
	pipeline   Runner
	snapshots  submission.SnapshotStore
	onComplete func(ctx context.Context, snap models.IntakeSnapshot, res *submission.Result)
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", WorkerName, err)
	}
	if opts.Pipeline == nil {
		return nil, fmt.Errorf("%s requires a submission pipeline", WorkerName)
	}
	if opts.Snapshots == nil {
		return nil, fmt.Errorf("%s requires a snapshot store", WorkerName)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:     cfg,
		pipeline:   opts.Pipeline,
		snapshots:  opts.Snapshots,
		onComplete: opts.OnComplete,
		errHandler: errors.NewErrorHandler(log),
		logger:     log,
	}, nil
}

func (h *Handler) Config() *Config {
	return h.config
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	raw := job.GetVariables()

	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, errors.NewPayloadInvalidError(fmt.Sprintf("job variables are not JSON: %v", err))
	}
	res, err := inputSchema.Validate(doc)
	if err != nil {
		return nil, errors.NewPayloadInvalidError(err.Error())
	}
	if !res.Valid {
		return nil, errors.NewPayloadInvalidError(res.String())
	}

	var input Input
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, errors.NewPayloadInvalidError(fmt.Sprintf("failed to decode input: %v", err))
	}
	return &input, nil
}

// Execute runs the saga for input. It is the unit the job handler wraps.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	snap, err := h.loadSnapshot(ctx, input.SagaID)
	if err != nil {
		return nil, err
	}

	res, err := h.pipeline.Run(ctx, input.SagaID, snap)
	if err != nil {
		return nil, err
	}

	out := &Output{
		ProfileID:            res.ProfileID,
		PreferencesSubmitted: res.PreferencesSubmitted,
		PreferencesSkipped:   res.PreferencesSkipped,
		ScoresComputed:       res.ScoresComputed,
		CompletedAt:          time.Now().UTC().Format(time.RFC3339),
	}
	for _, p := range res.Reused {
		out.ReusedPhases = append(out.ReusedPhases, string(p))
	}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, w.Code)
	}

	if h.onComplete != nil {
		h.onComplete(ctx, snap, res)
	}
	if err := h.snapshots.Delete(ctx, input.SagaID); err != nil {
		h.logger.Warn("failed to discard parked snapshot", map[string]interface{}{
			"sagaId": input.SagaID,
			"error":  err.Error(),
		})
	}

	h.logger.Info("submission re-driven", map[string]interface{}{
		"sagaId":    input.SagaID,
		"studentId": snap.StudentID,
		"profileId": out.ProfileID,
		"reused":    out.ReusedPhases,
	})
	return out, nil
}

// loadSnapshot fetches the snapshot parked for sagaID. A missing one means
// it expired or the saga already completed, so retrying cannot help.
func (h *Handler) loadSnapshot(ctx context.Context, sagaID string) (models.IntakeSnapshot, error) {
	snap, ok, err := h.snapshots.Get(ctx, sagaID)
	if err != nil {
		return models.IntakeSnapshot{}, errors.NewCacheUnavailableError(err)
	}
	if !ok {
		return models.IntakeSnapshot{}, errors.NewPayloadInvalidError(fmt.Sprintf("no snapshot parked for saga %s", sagaID))
	}
	if snap.StudentID == "" {
		return models.IntakeSnapshot{}, errors.NewPayloadInvalidError("parked snapshot has no student")
	}
	return snap, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	se := errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(se.Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, se)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	h.logger.Info("job completed", map[string]interface{}{"jobKey": job.GetKey()})
}
