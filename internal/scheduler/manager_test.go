package scheduler

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandunwb/labsheet/internal/models"
)

type fakeRemote struct {
	authenticated bool
	uploadErr     error
	uploads       [][2]string
}

func (f *fakeRemote) IsAuthenticated() bool { return f.authenticated }

func (f *fakeRemote) Upload(_ context.Context, localPath, remotePath string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, [2]string{localPath, remotePath})
	return nil
}

func mustClockTime(t *testing.T, hour, minute int) models.ClockTime {
	t.Helper()
	ct, err := models.NewClockTime(hour, minute)
	require.NoError(t, err)
	return ct
}

func newTestManager(t *testing.T, remote RemoteStore) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	return NewManager(dir, remote, zerolog.Nop()), dir
}

func TestManagerCreateAndReload(t *testing.T) {
	mgr, dir := newTestManager(t, nil)

	created, res, err := mgr.Create(context.Background(), "SE3040", "Application Frameworks", 2, mustClockTime(t, 14, 0))
	require.NoError(t, err)
	assert.True(t, res.LocalOK())
	assert.ErrorIs(t, res.Remote, ErrRemoteUnavailable)
	require.Equal(t, 1, mgr.Count())

	reloaded := NewManager(dir, nil, zerolog.Nop())
	require.Equal(t, 1, reloaded.Count())

	got, ok := reloaded.GetByID(created.ID)
	require.True(t, ok)
	assert.Equal(t, "SE3040", got.ModuleCode)
	assert.Equal(t, "Application Frameworks", got.ModuleName)
	assert.Equal(t, 2, got.DayOfWeek)
	assert.Equal(t, "14:00", got.LabTime.String())
	assert.Equal(t, models.StatusActive, got.Status)
}

func TestManagerCreateInvalidDay(t *testing.T) {
	mgr, _ := newTestManager(t, nil)

	_, _, err := mgr.Create(context.Background(), "SE3040", "Application Frameworks", 7, mustClockTime(t, 14, 0))
	require.Error(t, err)
	assert.Equal(t, 0, mgr.Count())
}

func TestManagerGetAllReturnsCopies(t *testing.T) {
	mgr, _ := newTestManager(t, nil)

	created, _, err := mgr.Create(context.Background(), "SE3040", "Application Frameworks", 2, mustClockTime(t, 14, 0))
	require.NoError(t, err)

	all := mgr.GetAll()
	require.Len(t, all, 1)
	all[0].ModuleCode = "TAMPERED"

	got, ok := mgr.GetByID(created.ID)
	require.True(t, ok)
	assert.Equal(t, "SE3040", got.ModuleCode)
}

func TestManagerGetActive(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	ctx := context.Background()

	a, _, err := mgr.Create(ctx, "SE3040", "Application Frameworks", 2, mustClockTime(t, 14, 0))
	require.NoError(t, err)
	b, _, err := mgr.Create(ctx, "IT1010", "Introduction to Programming", 0, mustClockTime(t, 9, 0))
	require.NoError(t, err)

	ok, _ := mgr.Pause(ctx, a.ID)
	require.True(t, ok)

	active := mgr.GetActive()
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)
}

func TestManagerUpdateNotFoundNeverInserts(t *testing.T) {
	mgr, _ := newTestManager(t, nil)

	stray, err := models.NewSchedule("SE3040", "Application Frameworks", 2, mustClockTime(t, 14, 0))
	require.NoError(t, err)

	ok, res := mgr.Update(context.Background(), stray)
	assert.False(t, ok)
	assert.Equal(t, SyncResult{}, res)
	assert.Equal(t, 0, mgr.Count())
}

func TestManagerDeleteNotFound(t *testing.T) {
	mgr, _ := newTestManager(t, nil)

	_, _, err := mgr.Create(context.Background(), "SE3040", "Application Frameworks", 2, mustClockTime(t, 14, 0))
	require.NoError(t, err)

	ok, _ := mgr.Delete(context.Background(), uuid.New())
	assert.False(t, ok)
	assert.Equal(t, 1, mgr.Count())
}

func TestManagerPauseResumeDisable(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	ctx := context.Background()

	created, _, err := mgr.Create(ctx, "SE3040", "Application Frameworks", 2, mustClockTime(t, 14, 0))
	require.NoError(t, err)

	ok, _ := mgr.Pause(ctx, created.ID)
	require.True(t, ok)
	got, _ := mgr.GetByID(created.ID)
	assert.Equal(t, models.StatusPaused, got.Status)

	ok, _ = mgr.Resume(ctx, created.ID)
	require.True(t, ok)
	got, _ = mgr.GetByID(created.ID)
	assert.Equal(t, models.StatusActive, got.Status)

	ok, _ = mgr.Disable(ctx, created.ID)
	require.True(t, ok)
	got, _ = mgr.GetByID(created.ID)
	assert.Equal(t, models.StatusDisabled, got.Status)
	assert.False(t, got.IsActive())
}

func TestManagerAddSkipDateDuplicate(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	ctx := context.Background()

	created, _, err := mgr.Create(ctx, "SE3040", "Application Frameworks", 2, mustClockTime(t, 14, 0))
	require.NoError(t, err)

	ok, _ := mgr.AddSkipDate(ctx, created.ID, "2026-03-04")
	require.True(t, ok)

	ok, res := mgr.AddSkipDate(ctx, created.ID, "2026-03-04")
	assert.False(t, ok)
	assert.Equal(t, SyncResult{}, res)

	got, _ := mgr.GetByID(created.ID)
	assert.Equal(t, []string{"2026-03-04"}, got.SkipDates)
}

func TestManagerAddSkipDateUnknownSchedule(t *testing.T) {
	mgr, _ := newTestManager(t, nil)

	ok, _ := mgr.AddSkipDate(context.Background(), uuid.New(), "2026-03-04")
	assert.False(t, ok)
}

func TestManagerMarkGeneratedAndIncrement(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	ctx := context.Background()

	created, _, err := mgr.Create(ctx, "SE3040", "Application Frameworks", 2, mustClockTime(t, 14, 0))
	require.NoError(t, err)
	require.Nil(t, created.LastGeneratedAt)

	ok, _ := mgr.MarkGenerated(ctx, created.ID)
	require.True(t, ok)
	ok, _ = mgr.IncrementPracticalNumber(ctx, created.ID)
	require.True(t, ok)

	got, _ := mgr.GetByID(created.ID)
	require.NotNil(t, got.LastGeneratedAt)
	assert.Equal(t, 2, got.CurrentPracticalNumber)
}

func TestManagerSyncToCloudNoRemote(t *testing.T) {
	mgr, dir := newTestManager(t, nil)

	_, _, err := mgr.Create(context.Background(), "SE3040", "Application Frameworks", 2, mustClockTime(t, 14, 0))
	require.NoError(t, err)

	err = mgr.SyncToCloud(context.Background())
	assert.ErrorIs(t, err, ErrRemoteUnavailable)

	// local file must still be written
	_, statErr := os.Stat(filepath.Join(dir, "schedules.json"))
	assert.NoError(t, statErr)
}

func TestManagerSyncToCloudUnauthenticated(t *testing.T) {
	remote := &fakeRemote{authenticated: false}
	mgr, _ := newTestManager(t, remote)

	err := mgr.SyncToCloud(context.Background())
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
	assert.Empty(t, remote.uploads)
}

func TestManagerSyncToCloudUploads(t *testing.T) {
	remote := &fakeRemote{authenticated: true}
	mgr, dir := newTestManager(t, remote)

	_, res, err := mgr.Create(context.Background(), "SE3040", "Application Frameworks", 2, mustClockTime(t, 14, 0))
	require.NoError(t, err)
	assert.True(t, res.LocalOK())
	assert.True(t, res.RemoteOK())

	require.Len(t, remote.uploads, 1)
	assert.Equal(t, filepath.Join(dir, "schedules.json"), remote.uploads[0][0])
	assert.Equal(t, CloudSchedulePath, remote.uploads[0][1])
}

func TestManagerRemoteFailureKeepsLocalState(t *testing.T) {
	remote := &fakeRemote{authenticated: true, uploadErr: assert.AnError}
	mgr, dir := newTestManager(t, remote)

	created, res, err := mgr.Create(context.Background(), "SE3040", "Application Frameworks", 2, mustClockTime(t, 14, 0))
	require.NoError(t, err)
	assert.True(t, res.LocalOK())
	assert.False(t, res.RemoteOK())

	reloaded := NewManager(dir, nil, zerolog.Nop())
	_, ok := reloaded.GetByID(created.ID)
	assert.True(t, ok)
}

func TestManagerLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schedules.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	mgr := NewManager(dir, nil, zerolog.Nop())
	assert.Equal(t, 0, mgr.Count())
	assert.Error(t, mgr.Load())
}

func TestManagerLoadSkipsCorruptEntry(t *testing.T) {
	dir := t.TempDir()

	good, err := models.NewSchedule("SE3040", "Application Frameworks", 2, mustClockTime(t, 14, 0))
	require.NoError(t, err)
	goodRaw, err := json.Marshal(good)
	require.NoError(t, err)

	file := storeFile{
		Version:   storeVersion,
		Schedules: []json.RawMessage{json.RawMessage(`{"id":"not-a-uuid"}`), goodRaw},
	}
	data, err := json.Marshal(file)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schedules.json"), data, 0600))

	mgr := NewManager(dir, nil, zerolog.Nop())
	require.Equal(t, 1, mgr.Count())

	got, ok := mgr.GetByID(good.ID)
	require.True(t, ok)
	assert.Equal(t, "SE3040", got.ModuleCode)
}

func TestManagerMissingFileStartsEmpty(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	assert.Equal(t, 0, mgr.Count())
	assert.NoError(t, mgr.Load())
}
