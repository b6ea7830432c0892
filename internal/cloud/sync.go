package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Remote paths the user configuration is mirrored under.
const (
	CloudConfigPath = "LabSheets/.config/user_config.json"
	syncStatusFile  = ".sync_status.json"
)

// Store is the full remote contract: the manager's upload surface plus
// download for pulling state onto a new machine.
type Store interface {
	IsAuthenticated() bool
	Upload(ctx context.Context, localPath, remotePath string) error
	Download(ctx context.Context, remotePath, localPath string) error
}

// SyncStatus records the outcome of the most recent config sync.
type SyncStatus struct {
	LastSyncAt time.Time `json:"last_sync_at"`
	Direction  string    `json:"direction"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
}

// SyncManager mirrors the user configuration file between the local
// config directory and the remote store.
type SyncManager struct {
	store      Store
	configDir  string
	configPath string
	logger     zerolog.Logger
}

// NewSyncManager creates a sync manager for the config file at
// configDir/user_config.json.
func NewSyncManager(store Store, configDir string, logger zerolog.Logger) *SyncManager {
	return &SyncManager{
		store:      store,
		configDir:  configDir,
		configPath: filepath.Join(configDir, "user_config.json"),
		logger:     logger.With().Str("component", "sync_manager").Logger(),
	}
}

// Push uploads the local config file to the remote store.
func (s *SyncManager) Push(ctx context.Context) error {
	err := s.transfer(ctx, "push", func() error {
		if _, statErr := os.Stat(s.configPath); statErr != nil {
			return fmt.Errorf("local config: %w", statErr)
		}
		return s.store.Upload(ctx, s.configPath, CloudConfigPath)
	})
	return err
}

// Pull downloads the remote config file over the local one.
func (s *SyncManager) Pull(ctx context.Context) error {
	return s.transfer(ctx, "pull", func() error {
		return s.store.Download(ctx, CloudConfigPath, s.configPath)
	})
}

func (s *SyncManager) transfer(ctx context.Context, direction string, fn func() error) error {
	if s.store == nil || !s.store.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	status := SyncStatus{LastSyncAt: time.Now(), Direction: direction, Success: true}
	err := fn()
	if err != nil {
		status.Success = false
		status.Error = err.Error()
		s.logger.Warn().Err(err).Str("direction", direction).Msg("config sync failed")
	} else {
		s.logger.Info().Str("direction", direction).Msg("config synced")
	}

	if writeErr := s.writeStatus(status); writeErr != nil {
		s.logger.Warn().Err(writeErr).Msg("failed to record sync status")
	}
	return err
}

func (s *SyncManager) writeStatus(status SyncStatus) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sync status: %w", err)
	}
	return os.WriteFile(filepath.Join(s.configDir, syncStatusFile), data, 0600)
}

// Status returns the recorded outcome of the last sync, or false when no
// sync has happened yet.
func (s *SyncManager) Status() (SyncStatus, bool) {
	data, err := os.ReadFile(filepath.Join(s.configDir, syncStatusFile))
	if err != nil {
		return SyncStatus{}, false
	}
	var status SyncStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return SyncStatus{}, false
	}
	return status, true
}

// writeLocal streams r into localPath, creating parent directories.
func writeLocal(localPath string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", localPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write %s: %w", localPath, err)
	}
	return nil
}
