package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/sandunwb/labsheet/internal/models"
)

// storeVersion tags the schedule file schema. Kept at 3.0.0 so files
// written by earlier releases of the application load unchanged.
const storeVersion = "3.0.0"

// storeFile is the on-disk shape of the schedule collection.
type storeFile struct {
	Version     string            `json:"version"`
	LastUpdated time.Time         `json:"last_updated"`
	Schedules   []json.RawMessage `json:"schedules"`
}

// localStore persists the schedule collection as a single JSON document.
// Every write replaces the whole file.
type localStore struct {
	path   string
	logger zerolog.Logger
}

func newLocalStore(path string, logger zerolog.Logger) *localStore {
	return &localStore{
		path:   path,
		logger: logger.With().Str("component", "schedule_store").Logger(),
	}
}

// Read loads the schedule collection. A missing file is a fresh start, not
// an error. A corrupt file is an error; a corrupt individual entry is
// skipped and logged so one bad schedule never takes down the rest.
func (s *localStore) Read() ([]*models.Schedule, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info().Str("path", s.path).Msg("no schedules file found, starting fresh")
			return []*models.Schedule{}, nil
		}
		return nil, fmt.Errorf("read schedules file: %w", err)
	}

	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse schedules file: %w", err)
	}

	schedules := make([]*models.Schedule, 0, len(file.Schedules))
	for i, raw := range file.Schedules {
		var sched models.Schedule
		if err := json.Unmarshal(raw, &sched); err != nil {
			s.logger.Error().
				Err(err).
				Int("entry", i).
				Msg("skipping unreadable schedule entry")
			continue
		}
		schedules = append(schedules, &sched)
	}

	s.logger.Info().Int("count", len(schedules)).Msg("loaded schedules from file")
	return schedules, nil
}

// Write replaces the schedule file with the given collection. The document
// is written to a temporary file and renamed into place so an interrupted
// write never leaves a half-written file behind.
func (s *localStore) Write(schedules []*models.Schedule) error {
	raws := make([]json.RawMessage, 0, len(schedules))
	for _, sched := range schedules {
		raw, err := json.Marshal(sched)
		if err != nil {
			return fmt.Errorf("marshal schedule %s: %w", sched.ID, err)
		}
		raws = append(raws, raw)
	}

	data, err := json.MarshalIndent(storeFile{
		Version:     storeVersion,
		LastUpdated: time.Now(),
		Schedules:   raws,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schedules file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create schedules directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".schedules-*.json")
	if err != nil {
		return fmt.Errorf("create temp schedules file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp schedules file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp schedules file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace schedules file: %w", err)
	}

	s.logger.Debug().Int("count", len(schedules)).Msg("saved schedules to file")
	return nil
}

// Path returns the location of the schedule file on disk.
func (s *localStore) Path() string {
	return s.path
}
