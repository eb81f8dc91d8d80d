// Package batch runs registration and update batches against the registry.
//
// Every input row goes through Built, Validated, DeviceRegistered and
// OwnershipRegistered before it is Recorded; a failure at any step moves the
// row to Errored with the error captured in its entry, and the rest of the
// batch carries on. Rows run sequentially or on a bounded worker pool. Each
// row owns one result slot, so summaries are in input order either way.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/electroop-engineering/gib-esu/internal/esu"
	"github.com/electroop-engineering/gib-esu/internal/gib"
	"github.com/electroop-engineering/gib-esu/internal/logging"
	"github.com/electroop-engineering/gib-esu/internal/records"
)

// Service is the registry facade the orchestrator drives. *gib.Service
// implements it.
type Service interface {
	Company() esu.Company
	RegisterDevice(ctx context.Context, d esu.Device) (*gib.Response, error)
	RegisterOwnership(ctx context.Context, s esu.OwnershipStatus) (*gib.Response, error)
	UpdateOwnership(ctx context.Context, u esu.OwnershipUpdate) (*gib.Response, error)
}

// Recorder stores finished runs. Recording failures are logged and do not
// fail the run.
type Recorder interface {
	RecordRun(ctx context.Context, run Run) error
}

// Orchestrator executes batches.
type Orchestrator struct {
	svc      Service
	workers  int
	metrics  *Metrics
	recorder Recorder
	report   ReportWriter
	newID    func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers bounds the concurrent mode. Values below 1 select the default
// of max(NumCPU-2, 1).
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithMetrics records run metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithRecorder stores every finished run.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithReport writes every summary after the run completes.
func WithReport(w ReportWriter) Option {
	return func(o *Orchestrator) { o.report = w }
}

// NewOrchestrator creates an orchestrator submitting through svc.
func NewOrchestrator(svc Service, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		svc:     svc,
		workers: DefaultWorkers(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DefaultWorkers is max(NumCPU-2, 1).
func DefaultWorkers() int {
	return max(runtime.NumCPU()-2, 1)
}

// Workers returns the concurrent-mode bound.
func (o *Orchestrator) Workers() int {
	return o.workers
}

// Register runs the two-step registration for every row: device first, then
// the ownership status. The returned error is non-nil only when ctx ended
// before every row ran, or when the report could not be written; the
// summary is complete in both cases.
func (o *Orchestrator) Register(ctx context.Context, rows []records.Row, parallel bool) (*RegistrationSummary, string, error) {
	entries := make([]RegistrationEntry, len(rows))
	company := o.svc.Company()

	runID, err := o.execute(ctx, KindRegister, len(rows), parallel, func(ctx context.Context, i int) RunEntry {
		entries[i] = o.registerRow(ctx, company, rows[i])
		return entries[i].runEntry()
	})

	summary := &RegistrationSummary{Results: entries, Total: len(entries)}
	if werr := o.writeReport(ctx, summary); werr != nil && err == nil {
		err = werr
	}
	return summary, runID, err
}

// Update sends an ownership update for every row.
func (o *Orchestrator) Update(ctx context.Context, rows []records.Row, parallel bool) (*UpdateSummary, string, error) {
	entries := make([]UpdateEntry, len(rows))

	runID, err := o.execute(ctx, KindUpdate, len(rows), parallel, func(ctx context.Context, i int) RunEntry {
		entries[i] = o.updateRow(ctx, rows[i])
		return entries[i].runEntry()
	})

	summary := &UpdateSummary{Results: entries, Total: len(entries)}
	if werr := o.writeReport(ctx, summary); werr != nil && err == nil {
		err = werr
	}
	return summary, runID, err
}

// execute runs process once per row index and returns after all of them
// finished. process writes only its own slot.
func (o *Orchestrator) execute(ctx context.Context, kind Kind, n int, parallel bool, process func(context.Context, int) RunEntry) (string, error) {
	runID := o.newID()
	ctx = logging.WithRunID(ctx, runID)
	log := logging.FromContext(ctx)

	run := Run{
		ID:        runID,
		Kind:      kind,
		Parallel:  parallel,
		StartedAt: time.Now().UTC(),
		Entries:   make([]RunEntry, n),
	}

	log.Info("batch started", "kind", kind, "records", n, "mode", modeLabel(parallel), "workers", o.workers)

	if parallel {
		var g errgroup.Group
		g.SetLimit(o.workers)
		for i := 0; i < n; i++ {
			g.Go(func() error {
				run.Entries[i] = process(ctx, i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := 0; i < n; i++ {
			run.Entries[i] = process(ctx, i)
		}
	}

	run.FinishedAt = time.Now().UTC()
	run.Total = n
	for _, e := range run.Entries {
		if e.State == StateErrored {
			run.Errored++
		}
		o.metrics.observeRecord(kind, e.State)
	}
	o.metrics.observeBatch(kind, parallel, run.FinishedAt.Sub(run.StartedAt))

	log.Info("batch finished",
		"kind", kind,
		"total", run.Total,
		"errored", run.Errored,
		"duration", run.FinishedAt.Sub(run.StartedAt).String(),
	)

	if o.recorder != nil {
		// The ledger write outlives a cancelled run.
		if err := o.recorder.RecordRun(context.WithoutCancel(ctx), run); err != nil {
			log.Error("failed to record run", "error", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return runID, fmt.Errorf("batch %s interrupted: %w", runID, err)
	}
	return runID, nil
}

func (o *Orchestrator) registerRow(ctx context.Context, company esu.Company, row records.Row) RegistrationEntry {
	e := RegistrationEntry{Serial: strings.TrimSpace(row.Get(esu.ColSerial)), state: StateBuilt}
	log := logging.WithFields(ctx, "esu_seri_no", e.Serial)

	fail := func(step string, err error) RegistrationEntry {
		log.Warn("record failed", "step", step, "error", err)
		e.Error = err.Error()
		e.state = StateErrored
		return e
	}

	if err := ctx.Err(); err != nil {
		return fail("start", err)
	}

	device, err := esu.DeviceFromRow(row)
	if err != nil {
		return fail("build", err)
	}
	status := esu.OwnershipFromRow(row, company, device.Serial)

	if err := esu.ValidateDevice(device); err != nil {
		return fail("validate", err)
	}
	if err := esu.ValidateOwnership(status); err != nil {
		return fail("validate", err)
	}
	e.state = StateValidated

	resp, err := o.svc.RegisterDevice(ctx, device)
	if err != nil {
		return fail("register_device", err)
	}
	e.DeviceResult = resp.Message()
	e.state = StateDeviceRegistered

	resp, err = o.svc.RegisterOwnership(ctx, status)
	if err != nil {
		return fail("register_ownership", err)
	}
	e.OwnershipResult = resp.Message()
	e.state = StateOwnershipRegistered

	log.Debug("record registered", "esu_kayit_sonucu", e.DeviceResult, "mukellef_kayit_sonucu", e.OwnershipResult)
	e.state = StateRecorded
	return e
}

func (o *Orchestrator) updateRow(ctx context.Context, row records.Row) UpdateEntry {
	e := UpdateEntry{Serial: strings.TrimSpace(row.Get(esu.ColSerial)), state: StateBuilt}
	log := logging.WithFields(ctx, "esu_seri_no", e.Serial)

	fail := func(step string, err error) UpdateEntry {
		log.Warn("record failed", "step", step, "error", err)
		e.Error = err.Error()
		e.state = StateErrored
		return e
	}

	if err := ctx.Err(); err != nil {
		return fail("start", err)
	}

	update := esu.UpdateFromRow(row)
	if err := esu.ValidateUpdate(update); err != nil {
		return fail("validate", err)
	}
	e.state = StateValidated

	resp, err := o.svc.UpdateOwnership(ctx, update)
	if err != nil {
		return fail("update", err)
	}
	e.UpdateResult = resp.Message()
	e.state = StateOwnershipRegistered

	log.Debug("record updated", "guncelleme_kayit_sonucu", e.UpdateResult)
	e.state = StateRecorded
	return e
}

func (o *Orchestrator) writeReport(ctx context.Context, summary any) error {
	if o.report == nil {
		return nil
	}
	if err := o.report.WriteReport(summary); err != nil {
		logging.FromContext(ctx).Error("failed to write report", "error", err)
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
