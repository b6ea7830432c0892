// Package scheduler owns the schedule collection: CRUD, local persistence,
// best-effort cloud mirroring and next-occurrence computation.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sandunwb/labsheet/internal/models"
)

// CloudSchedulePath is the fixed remote location the schedule file is
// mirrored to, scoped under the application's cloud folder.
const CloudSchedulePath = "LabSheets/.config/schedules.json"

// defaultSyncTimeout bounds a single remote upload attempt.
const defaultSyncTimeout = 30 * time.Second

// ErrRemoteUnavailable is reported when no remote store is configured or
// the configured store is not authenticated.
var ErrRemoteUnavailable = errors.New("remote store unavailable")

// RemoteStore is the cloud mirror consumed by the manager. Implementations
// live in the cloud package; the manager never depends on a concrete one.
type RemoteStore interface {
	// IsAuthenticated reports whether the store can accept uploads.
	IsAuthenticated() bool

	// Upload copies a local file to the given remote path.
	Upload(ctx context.Context, localPath, remotePath string) error
}

// SyncResult carries the local and remote outcome of a persisting
// operation separately, so callers can tell a degraded-but-successful
// operation (local saved, mirror failed) from a full failure.
type SyncResult struct {
	Local  error
	Remote error
}

// LocalOK reports whether the local save succeeded.
func (r SyncResult) LocalOK() bool { return r.Local == nil }

// RemoteOK reports whether the cloud mirror succeeded.
func (r SyncResult) RemoteOK() bool { return r.Remote == nil }

// Manager owns the ordered schedule collection. All operations are safe
// for concurrent use; the collection and the file write sequence share one
// lock so persisted state always reflects completed operations in order.
type Manager struct {
	mu          sync.Mutex
	schedules   []*models.Schedule
	store       *localStore
	remote      RemoteStore
	logger      zerolog.Logger
	now         func() time.Time
	syncTimeout time.Duration
}

// NewManager creates a manager persisting to configDir/schedules.json and
// loads any existing collection. remote may be nil; all cloud mirroring is
// then reported as unavailable without error. A load failure resets the
// collection to empty and is logged, never fatal.
func NewManager(configDir string, remote RemoteStore, logger zerolog.Logger) *Manager {
	m := &Manager{
		store:       newLocalStore(filepath.Join(configDir, "schedules.json"), logger),
		remote:      remote,
		logger:      logger.With().Str("component", "schedule_manager").Logger(),
		now:         time.Now,
		syncTimeout: defaultSyncTimeout,
	}

	if err := m.Load(); err != nil {
		m.logger.Error().Err(err).Msg("failed to load schedules, starting empty")
	}

	m.logger.Info().Int("count", m.Count()).Msg("schedule manager initialized")
	return m
}

// Load reads the collection from the local file. A missing file yields an
// empty collection and no error. A corrupt file resets the in-memory
// collection to empty and returns the error.
func (m *Manager) Load() error {
	schedules, err := m.store.Read()

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.schedules = []*models.Schedule{}
		return err
	}
	m.schedules = schedules
	return nil
}

// Save writes the full collection back to the local file.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Write(m.schedules)
}

// SyncToCloud saves locally, then uploads the schedule file to the fixed
// remote path. Returns ErrRemoteUnavailable when no authenticated remote
// store is configured. The local save is never rolled back on a failed
// upload.
func (m *Manager) SyncToCloud(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Write(m.schedules); err != nil {
		return err
	}
	return m.uploadLocked(ctx)
}

// uploadLocked mirrors the on-disk schedule file to the remote store.
// Callers must hold m.mu.
func (m *Manager) uploadLocked(ctx context.Context) error {
	if m.remote == nil || !m.remote.IsAuthenticated() {
		return ErrRemoteUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, m.syncTimeout)
	defer cancel()

	if err := m.remote.Upload(ctx, m.store.Path(), CloudSchedulePath); err != nil {
		return fmt.Errorf("upload schedules: %w", err)
	}
	m.logger.Info().Str("remote_path", CloudSchedulePath).Msg("schedules synced to cloud")
	return nil
}

// persistLocked saves locally and attempts the cloud mirror. Callers must
// hold m.mu. The in-memory collection keeps the attempted state regardless
// of outcome, so a caller can retry Save or SyncToCloud without redoing
// the mutation.
func (m *Manager) persistLocked(ctx context.Context) SyncResult {
	res := SyncResult{}
	res.Local = m.store.Write(m.schedules)
	if res.Local != nil {
		m.logger.Error().Err(res.Local).Msg("failed to save schedules")
		res.Remote = ErrRemoteUnavailable
		return res
	}

	res.Remote = m.uploadLocked(ctx)
	if res.Remote != nil && !errors.Is(res.Remote, ErrRemoteUnavailable) {
		m.logger.Warn().Err(res.Remote).Msg("cloud sync failed, local state saved")
	}
	return res
}

// Create builds a schedule with defaults plus the given overrides, appends
// it to the collection and persists. Construction errors (invalid day of
// week or override) are returned before anything is stored.
func (m *Manager) Create(ctx context.Context, moduleCode, moduleName string, dayOfWeek int, labTime models.ClockTime, opts ...models.Option) (*models.Schedule, SyncResult, error) {
	sched, err := models.NewSchedule(moduleCode, moduleName, dayOfWeek, labTime, opts...)
	if err != nil {
		return nil, SyncResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.schedules = append(m.schedules, sched)
	res := m.persistLocked(ctx)

	m.logger.Info().
		Str("schedule_id", sched.ID.String()).
		Str("module_code", sched.ModuleCode).
		Str("day", sched.DayName()).
		Str("time", sched.FormattedTime()).
		Msg("created schedule")

	out := *sched
	return &out, res, nil
}

// GetAll returns a copy of every schedule in insertion order.
func (m *Manager) GetAll() []*models.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		c := *s
		out = append(out, &c)
	}
	return out
}

// GetByID returns a copy of the schedule with the given id, or false when
// no such schedule exists.
func (m *Manager) GetByID(id uuid.UUID) (*models.Schedule, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.findLocked(id)
	if s == nil {
		return nil, false
	}
	c := *s
	return &c, true
}

// GetActive returns copies of the active schedules, preserving order.
func (m *Manager) GetActive() []*models.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		if s.IsActive() {
			c := *s
			out = append(out, &c)
		}
	}
	return out
}

// Count returns the number of schedules.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.schedules)
}

// findLocked returns the stored schedule with the given id, or nil.
// Callers must hold m.mu.
func (m *Manager) findLocked(id uuid.UUID) *models.Schedule {
	for _, s := range m.schedules {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Update replaces the stored schedule that shares the given schedule's id
// and persists. Returns false when the id is unknown; an update never
// inserts.
func (m *Manager) Update(ctx context.Context, sched *models.Schedule) (bool, SyncResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.schedules {
		if s.ID == sched.ID {
			c := *sched
			c.LastUpdatedAt = m.now()
			m.schedules[i] = &c
			res := m.persistLocked(ctx)
			m.logger.Info().Str("schedule_id", c.ID.String()).Str("module_code", c.ModuleCode).Msg("updated schedule")
			return true, res
		}
	}

	m.logger.Warn().Str("schedule_id", sched.ID.String()).Msg("schedule not found for update")
	return false, SyncResult{}
}

// Delete removes the schedule with the given id and persists. Returns
// whether a deletion occurred.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) (bool, SyncResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.schedules {
		if s.ID == id {
			m.schedules = append(m.schedules[:i], m.schedules[i+1:]...)
			res := m.persistLocked(ctx)
			m.logger.Info().Str("schedule_id", id.String()).Str("module_code", s.ModuleCode).Msg("deleted schedule")
			return true, res
		}
	}

	m.logger.Warn().Str("schedule_id", id.String()).Msg("schedule not found for deletion")
	return false, SyncResult{}
}

// mutate applies fn to the stored schedule with the given id and persists.
func (m *Manager) mutate(ctx context.Context, id uuid.UUID, action string, fn func(*models.Schedule)) (bool, SyncResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.findLocked(id)
	if s == nil {
		m.logger.Warn().Str("schedule_id", id.String()).Str("action", action).Msg("schedule not found")
		return false, SyncResult{}
	}

	fn(s)
	res := m.persistLocked(ctx)
	m.logger.Info().Str("schedule_id", id.String()).Str("module_code", s.ModuleCode).Msg(action)
	return true, res
}

// Pause suspends the schedule with the given id.
func (m *Manager) Pause(ctx context.Context, id uuid.UUID) (bool, SyncResult) {
	return m.mutate(ctx, id, "paused schedule", func(s *models.Schedule) { s.Pause() })
}

// Resume reactivates the schedule with the given id.
func (m *Manager) Resume(ctx context.Context, id uuid.UUID) (bool, SyncResult) {
	return m.mutate(ctx, id, "resumed schedule", func(s *models.Schedule) { s.Resume() })
}

// Disable switches the schedule with the given id off.
func (m *Manager) Disable(ctx context.Context, id uuid.UUID) (bool, SyncResult) {
	return m.mutate(ctx, id, "disabled schedule", func(s *models.Schedule) { s.Disable() })
}

// IncrementPracticalNumber advances the practical number of the schedule
// with the given id, subject to its auto-increment and repeat-mode flags.
func (m *Manager) IncrementPracticalNumber(ctx context.Context, id uuid.UUID) (bool, SyncResult) {
	return m.mutate(ctx, id, "incremented practical number", func(s *models.Schedule) { s.IncrementPracticalNumber() })
}

// MarkGenerated records a successful generation on the schedule with the
// given id.
func (m *Manager) MarkGenerated(ctx context.Context, id uuid.UUID) (bool, SyncResult) {
	return m.mutate(ctx, id, "recorded generation", func(s *models.Schedule) { s.UpdateLastGenerated() })
}

// AddSkipDate marks an ISO date ("2006-01-02") as skipped for the schedule
// with the given id. Returns false when the id is unknown or the date is
// already present; the duplicate case persists nothing.
func (m *Manager) AddSkipDate(ctx context.Context, id uuid.UUID, date string) (bool, SyncResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.findLocked(id)
	if s == nil {
		m.logger.Warn().Str("schedule_id", id.String()).Msg("schedule not found for skip date")
		return false, SyncResult{}
	}
	if s.HasSkipDate(date) {
		return false, SyncResult{}
	}

	s.SkipDates = append(s.SkipDates, date)
	s.LastUpdatedAt = m.now()
	res := m.persistLocked(ctx)
	m.logger.Info().Str("schedule_id", id.String()).Str("date", date).Msg("added skip date")
	return true, res
}
