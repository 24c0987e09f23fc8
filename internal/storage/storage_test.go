package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/rewired-gh/autoinvest/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRef(videoID string) models.VideoRef {
	return models.VideoRef{
		VideoID:     videoID,
		ChannelID:   "UC123",
		PublishedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}
}

func TestStorage_MarkAndSeen(t *testing.T) {
	s := newTestStorage(t)

	seen, err := s.Seen("vid-1")
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if seen {
		t.Error("vid-1 reported seen before marking")
	}

	if err := s.MarkSeen(testRef("vid-1")); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	seen, err = s.Seen("vid-1")
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if !seen {
		t.Error("vid-1 not reported seen after marking")
	}
}

func TestStorage_MarkSeenIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ref := testRef("vid-1")
	if err := s.MarkSeen(ref); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if err := s.MarkSeen(ref); err != nil {
		t.Errorf("re-marking seen video failed: %v", err)
	}
}

func TestStorage_FilterUnseen(t *testing.T) {
	s := newTestStorage(t)
	if err := s.MarkSeen(testRef("vid-2")); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	refs := []models.VideoRef{testRef("vid-1"), testRef("vid-2"), testRef("vid-3")}
	unseen, err := s.FilterUnseen(refs)
	if err != nil {
		t.Fatalf("FilterUnseen: %v", err)
	}
	if len(unseen) != 2 {
		t.Fatalf("got %d unseen, want 2", len(unseen))
	}
	if unseen[0].VideoID != "vid-1" || unseen[1].VideoID != "vid-3" {
		t.Errorf("unseen order wrong: %+v", unseen)
	}
}

func TestStorage_Prune(t *testing.T) {
	s := newTestStorage(t)
	for i := 0; i < 3; i++ {
		if err := s.MarkSeen(testRef(fmt.Sprintf("vid-%d", i))); err != nil {
			t.Fatalf("MarkSeen: %v", err)
		}
	}

	// Cutoff in the past removes nothing.
	n, err := s.Prune(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 0 {
		t.Errorf("pruned %d rows, want 0", n)
	}

	// Cutoff in the future removes everything.
	n, err = s.Prune(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 3 {
		t.Errorf("pruned %d rows, want 3", n)
	}
}
