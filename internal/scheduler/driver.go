package scheduler

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/sandunwb/labsheet/internal/metrics"
	"github.com/sandunwb/labsheet/internal/models"
	"github.com/sandunwb/labsheet/internal/notifications"
	"github.com/sandunwb/labsheet/internal/render"
)

// ConfirmationSender delivers the post-generation confirmation email.
type ConfirmationSender interface {
	SendGenerationConfirmation(to string, data notifications.GenerationData) error
}

// DriverConfig holds the settings the firing driver needs beyond the
// schedules themselves.
type DriverConfig struct {
	StudentName string
	StudentID   string
	OutputDir   string
	NotifyEmail string
	// CloudFolder is the remote directory generated documents are
	// uploaded under, e.g. "LabSheets".
	CloudFolder string
	// ScanSpec is the cron spec for the due-schedule scan.
	ScanSpec string
}

// Driver scans active schedules and fires due generations: render the
// sheet, record history, advance the schedule, then best-effort upload
// and confirmation email.
type Driver struct {
	manager  *Manager
	renderer render.Renderer
	history  *HistoryStore
	remote   RemoteStore
	notifier ConfirmationSender
	metrics  *metrics.Metrics
	cfg      DriverConfig
	cron     *cron.Cron
	logger   zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool

	// scanMu serializes scans; a scan triggered from the CLI may overlap
	// a cron tick. Separate from mu so Stop can wait out a running scan.
	scanMu sync.Mutex
	// handled maps schedule id to the trigger time already fired, so a
	// schedule fires once per occurrence even when persisting the
	// generation marker fails.
	handled map[uuid.UUID]time.Time
}

// NewDriver creates a firing driver over the given manager and renderer.
// History store, remote store, notifier and metrics are optional and
// attached with the setters.
func NewDriver(manager *Manager, renderer render.Renderer, cfg DriverConfig, logger zerolog.Logger) *Driver {
	if cfg.ScanSpec == "" {
		cfg.ScanSpec = "@every 1m"
	}
	return &Driver{
		manager:  manager,
		renderer: renderer,
		cfg:      cfg,
		cron:     cron.New(),
		logger:   logger.With().Str("component", "driver").Logger(),
		now:      time.Now,
		handled:  make(map[uuid.UUID]time.Time),
	}
}

// SetHistoryStore attaches the generation history store.
func (d *Driver) SetHistoryStore(h *HistoryStore) { d.history = h }

// SetRemoteStore attaches the cloud store documents are uploaded to.
func (d *Driver) SetRemoteStore(r RemoteStore) { d.remote = r }

// SetNotifier attaches the confirmation email sender.
func (d *Driver) SetNotifier(n ConfirmationSender) { d.notifier = n }

// SetMetrics attaches the Prometheus instrumentation.
func (d *Driver) SetMetrics(m *metrics.Metrics) { d.metrics = m }

// Start begins the periodic due-schedule scan.
func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("driver already running")
	}

	if _, err := d.cron.AddFunc(d.cfg.ScanSpec, func() {
		d.Scan(context.Background())
	}); err != nil {
		return fmt.Errorf("schedule scan job: %w", err)
	}

	d.cron.Start()
	d.running = true
	d.logger.Info().Str("scan_spec", d.cfg.ScanSpec).Msg("driver started")
	return nil
}

// Stop halts the scan loop, waiting for a running scan to finish.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}
	ctx := d.cron.Stop()
	<-ctx.Done()
	d.running = false
	d.logger.Info().Msg("driver stopped")
}

// Scan fires every active schedule whose trigger time has arrived and has
// not been handled yet. Exported so a CLI run can force an immediate pass.
func (d *Driver) Scan(ctx context.Context) {
	d.scanMu.Lock()
	defer d.scanMu.Unlock()

	now := d.now()

	counts := map[string]int{}
	for _, s := range d.manager.GetAll() {
		counts[string(s.Status)]++
	}
	if d.metrics != nil {
		d.metrics.SetScheduleCounts(counts)
	}

	for _, s := range d.manager.GetActive() {
		trigger := nextGenerationTime(now, s)
		if trigger.After(now) {
			continue
		}
		if s.LastGeneratedAt != nil && !s.LastGeneratedAt.Before(trigger) {
			continue
		}
		if fired, ok := d.handled[s.ID]; ok && !fired.Before(trigger) {
			continue
		}
		d.handled[s.ID] = trigger

		d.fire(ctx, s, trigger)
	}
}

// fire generates the sheet for one due schedule occurrence.
func (d *Driver) fire(ctx context.Context, s *models.Schedule, trigger time.Time) {
	labDate := trigger.Add(time.Duration(s.GenerateBeforeMinutes) * time.Minute).Format("2006-01-02")
	log := d.logger.With().
		Str("schedule_id", s.ID.String()).
		Str("module_code", s.ModuleCode).
		Str("lab_date", labDate).
		Logger()

	if s.HasSkipDate(labDate) {
		log.Info().Msg("lab date skipped")
		d.record(ctx, &HistoryEntry{
			ScheduleID:  s.ID,
			ModuleCode:  s.ModuleCode,
			SheetLabel:  s.SheetLabel(),
			Status:      HistoryStatusSkipped,
			StartedAt:   d.now(),
			CompletedAt: d.now(),
		})
		return
	}

	started := d.now()
	outputPath, err := d.renderer.Render(ctx, render.Request{
		StudentName: d.cfg.StudentName,
		StudentID:   d.cfg.StudentID,
		ModuleCode:  s.ModuleCode,
		ModuleName:  s.ModuleName,
		SheetLabel:  s.SheetLabel(),
		TemplateID:  s.TemplateID,
		OutputDir:   d.cfg.OutputDir,
	})
	elapsed := d.now().Sub(started).Seconds()

	if err != nil {
		log.Error().Err(err).Msg("sheet generation failed")
		if d.metrics != nil {
			d.metrics.ObserveGeneration(s.ModuleCode, "failed", elapsed)
		}
		d.record(ctx, &HistoryEntry{
			ScheduleID:  s.ID,
			ModuleCode:  s.ModuleCode,
			SheetLabel:  s.SheetLabel(),
			Status:      HistoryStatusFailed,
			Error:       err.Error(),
			StartedAt:   started,
			CompletedAt: d.now(),
		})
		return
	}

	log.Info().Str("path", outputPath).Msg("sheet generated")
	if d.metrics != nil {
		d.metrics.ObserveGeneration(s.ModuleCode, "completed", elapsed)
	}

	sheetLabel := s.SheetLabel()
	d.record(ctx, &HistoryEntry{
		ScheduleID:  s.ID,
		ModuleCode:  s.ModuleCode,
		SheetLabel:  sheetLabel,
		OutputPath:  outputPath,
		Status:      HistoryStatusCompleted,
		StartedAt:   started,
		CompletedAt: d.now(),
	})

	d.manager.MarkGenerated(ctx, s.ID)
	d.manager.IncrementPracticalNumber(ctx, s.ID)

	uploaded := false
	if s.UploadToOneDrive && d.remote != nil && d.remote.IsAuthenticated() {
		remotePath := path.Join(d.cfg.CloudFolder, s.ModuleCode, filepath.Base(outputPath))
		if err := d.remote.Upload(ctx, outputPath, remotePath); err != nil {
			log.Warn().Err(err).Str("remote_path", remotePath).Msg("document upload failed")
			if d.metrics != nil {
				d.metrics.ObserveRemoteSync("failure")
			}
		} else {
			uploaded = true
			log.Info().Str("remote_path", remotePath).Msg("document uploaded")
			if d.metrics != nil {
				d.metrics.ObserveRemoteSync("success")
			}
		}
	}

	if s.SendConfirmation && d.notifier != nil && d.cfg.NotifyEmail != "" {
		data := notifications.GenerationData{
			ModuleCode:  s.ModuleCode,
			ModuleName:  s.ModuleName,
			SheetLabel:  sheetLabel,
			OutputPath:  outputPath,
			GeneratedAt: d.now(),
			Uploaded:    uploaded,
		}
		if err := d.notifier.SendGenerationConfirmation(d.cfg.NotifyEmail, data); err != nil {
			log.Warn().Err(err).Msg("confirmation email failed")
		}
	}
}

func (d *Driver) record(ctx context.Context, entry *HistoryEntry) {
	if d.history == nil {
		return
	}
	if err := d.history.Record(ctx, entry); err != nil {
		d.logger.Warn().Err(err).Msg("failed to record history entry")
	}
}
