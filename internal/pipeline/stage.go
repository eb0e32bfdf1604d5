package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/autovideo/api/internal/model"
	"github.com/autovideo/api/internal/store"
	"github.com/autovideo/api/internal/telemetry"
)

// runner owns persistence of a job's working record.
type runner struct {
	store    store.JobStore
	observer Observer
	logger   *slog.Logger
	now      func() time.Time

	tracer        trace.Tracer
	stageRuns     metric.Int64Counter
	stageDuration metric.Float64Histogram
}

func newRunner(st store.JobStore, logger *slog.Logger) *runner {
	if logger == nil {
		logger = slog.Default()
	}
	runs, dur := stageInstruments(telemetry.Meter("autovideo/pipeline"), logger)
	return &runner{
		store:         st,
		logger:        logger,
		now:           time.Now,
		tracer:        telemetry.Tracer("autovideo/pipeline"),
		stageRuns:     runs,
		stageDuration: dur,
	}
}

// stageInstruments creates the stage metrics. An instrument that cannot be created
// is logged and left nil; record skips it.
func stageInstruments(meter metric.Meter, logger *slog.Logger) (metric.Int64Counter, metric.Float64Histogram) {
	runs, err := meter.Int64Counter("autovideo.stage.runs",
		metric.WithDescription("Stage executions by outcome"),
	)
	if err != nil {
		logger.Warn("failed to create stage run counter", "error", err)
		runs = nil
	}
	dur, err := meter.Float64Histogram("autovideo.stage.duration",
		metric.WithDescription("Time spent inside a stage (ms)"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		logger.Warn("failed to create stage duration histogram", "error", err)
		dur = nil
	}
	return runs, dur
}

// persist recomputes the job status and writes the record.
func (r *runner) persist(ctx context.Context, job *model.JobRecord) error {
	job.Refresh(r.now())
	if err := r.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist job %s: %w", job.ID, err)
	}
	if r.observer != nil {
		r.observer.JobUpdated(job.Clone())
	}
	return nil
}

// stage describes one unit of work and where its output goes on the record.
type stage[T any] struct {
	name  model.StageName
	run   func(ctx context.Context) (T, error)
	ref   func(T) string
	apply func(job *model.JobRecord, out T)
}

// runStage moves a stage through running to ready or error, persisting each
// transition. The result of run is returned unchanged.
func runStage[T any](ctx context.Context, r *runner, job *model.JobRecord, st stage[T]) (T, error) {
	var zero T
	log := r.logger.With("job_id", job.ID, "stage", string(st.name))

	job.Stages.Set(st.name, model.Running(""))
	if err := r.persist(ctx, job); err != nil {
		return zero, err
	}
	log.Info("stage started")

	ctx, span := r.tracer.Start(ctx, "stage."+string(st.name),
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("stage", string(st.name)),
		),
	)
	defer span.End()

	start := time.Now()
	out, err := st.run(ctx)
	elapsed := time.Since(start)

	if err != nil {
		msg := stageMessage(err)
		job.Stages.Set(st.name, model.Failed(msg))
		if perr := r.persist(ctx, job); perr != nil {
			log.Error("failed to persist stage failure", "error", perr)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		r.record(ctx, st.name, "error", elapsed)
		log.Error("stage failed", "error", msg, "duration_ms", elapsed.Milliseconds())
		return zero, &StageError{JobID: job.ID, Stage: st.name, Err: err}
	}

	ref := ""
	if st.ref != nil {
		ref = st.ref(out)
	}
	if st.apply != nil {
		st.apply(job, out)
	}
	job.Stages.Set(st.name, model.Ready(ref))
	if err := r.persist(ctx, job); err != nil {
		return zero, err
	}
	r.record(ctx, st.name, "ready", elapsed)
	log.Info("stage ready", "duration_ms", elapsed.Milliseconds())
	return out, nil
}

func (r *runner) record(ctx context.Context, name model.StageName, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("stage", string(name)),
		attribute.String("outcome", outcome),
	)
	if r.stageRuns != nil {
		r.stageRuns.Add(ctx, 1, attrs)
	}
	if r.stageDuration != nil {
		r.stageDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
	}
}
