package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/perscom/personnel-api/internal/models"
	"github.com/perscom/personnel-api/internal/repository"
)

type stubActivityRepo struct {
	mu      sync.Mutex
	entries []models.ActivityLog
}

func (s *stubActivityRepo) Create(_ context.Context, entry *models.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubActivityRepo) List(context.Context, repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	return nil, 0, nil
}

func (s *stubActivityRepo) stored() []models.ActivityLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ActivityLog, len(s.entries))
	copy(out, s.entries)
	return out
}

func TestWriterPersistsEntriesAsynchronously(t *testing.T) {
	repo := &stubActivityRepo{}
	writer := NewWriter(repo, 8, zerolog.Nop())
	writer.Start(context.Background())

	userID := uint(12)
	writer.Record(Entry{
		ActorType:   models.ActorTypeUser,
		UserID:      &userID,
		Action:      models.ActionLogin,
		Description: "Logged in",
		IPAddress:   "10.0.0.1",
		UserAgent:   "test",
		Metadata:    map[string]interface{}{"method": "POST", "path": "/api/v1/auth/login", "body": []string{"password", "service_number"}},
	})

	require.Eventually(t, func() bool {
		return len(repo.stored()) == 1
	}, time.Second, 10*time.Millisecond)

	stored := repo.stored()[0]
	require.Equal(t, models.ActionLogin, stored.Action)
	require.Equal(t, models.ActorTypeUser, stored.ActorType)
	require.NotNil(t, stored.UserID)
	require.Equal(t, userID, *stored.UserID)
	require.Equal(t, "POST", stored.Metadata["method"])

	writer.Close()
}

func TestWriterRecordNeverBlocksWhenQueueFull(t *testing.T) {
	repo := &stubActivityRepo{}
	// Not started, so nothing drains: capacity 1 forces the drop path.
	writer := NewWriter(repo, 1, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		writer.Record(Entry{Action: models.ActionLogin})
		writer.Record(Entry{Action: models.ActionLogout})
		writer.Record(Entry{Action: models.ActionSignup})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	writer.Start(context.Background())
	writer.Close()

	stored := repo.stored()
	require.Len(t, stored, 1, "overflow entries must be dropped, not queued")
	require.Equal(t, models.ActionLogin, stored[0].Action)
}

func TestWriterCloseDrainsQueue(t *testing.T) {
	repo := &stubActivityRepo{}
	writer := NewWriter(repo, 16, zerolog.Nop())

	for i := 0; i < 5; i++ {
		writer.Record(Entry{Action: models.ActionProfileUpdate})
	}

	writer.Start(context.Background())
	writer.Close()

	require.Len(t, repo.stored(), 5)
}

func TestWriterSurvivesParentContextCancellation(t *testing.T) {
	repo := &stubActivityRepo{}
	writer := NewWriter(repo, 8, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	writer.Start(ctx)
	cancel()

	writer.Record(Entry{Action: models.ActionLogout})

	require.Eventually(t, func() bool {
		return len(repo.stored()) == 1
	}, time.Second, 10*time.Millisecond)

	writer.Close()
}

func TestWriterCloseWithoutStartReturns(t *testing.T) {
	writer := NewWriter(&stubActivityRepo{}, 4, zerolog.Nop())
	writer.Record(Entry{Action: models.ActionLogin})

	closed := make(chan struct{})
	go func() {
		writer.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return for a writer that was never started")
	}

	// Starting after Close must not revive the worker or panic.
	writer.Start(context.Background())
	writer.Close()
}
