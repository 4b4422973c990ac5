package review

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashdeck-backend/internal/models"
)

type fakeStore struct {
	mu          sync.Mutex
	calls       int
	lastRecords []models.BatchFlashcardRecord
	lastSaveAll bool
	err         error
	started     chan struct{} // closed on first call, if set
	release     chan struct{} // blocks the call until closed, if set
	panicWith   interface{}
}

func (f *fakeStore) CreateFlashcardsBatch(ctx context.Context, userID uuid.UUID, generationID int64, records []models.BatchFlashcardRecord, saveAll bool) (int, error) {
	f.mu.Lock()
	f.calls++
	f.lastRecords = records
	f.lastSaveAll = saveAll
	started := f.started
	release := f.release
	err := f.err
	panicWith := f.panicWith
	f.mu.Unlock()

	if started != nil {
		close(started)
		f.mu.Lock()
		f.started = nil
		f.mu.Unlock()
	}
	if release != nil {
		<-release
	}
	if panicWith != nil {
		panic(panicWith)
	}
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testProposals(n int) []models.FlashcardProposal {
	props := make([]models.FlashcardProposal, n)
	for i := range props {
		props[i] = models.FlashcardProposal{
			Front: fmt.Sprintf("Front %d", i),
			Back:  fmt.Sprintf("Back %d", i),
		}
	}
	return props
}

func testGeneration() *models.Generation {
	return &models.Generation{ID: 42, Model: "mock-generator-v1", GeneratedCount: 3}
}

func newTestSession(t *testing.T, n int, store *fakeStore) *Session {
	t.Helper()
	return NewSession(uuid.New(), testGeneration(), testProposals(n), store)
}

// ─── Transitions ───

func TestNewSession_AllItemsPending(t *testing.T) {
	s := newTestSession(t, 3, &fakeStore{})

	snap := s.Snapshot()
	require.Len(t, snap.Items, 3)
	for _, it := range snap.Items {
		assert.Equal(t, StatusPending, it.Status)
		assert.False(t, it.Edited)
		assert.Equal(t, it.Front, it.Original.Front)
		assert.Equal(t, it.Back, it.Original.Back)
	}
	assert.Equal(t, -1, snap.SelectedIndex)
	assert.Equal(t, CommitIdle, snap.Commit.Phase)
}

func TestAccept_SetsStatusAndSelection(t *testing.T) {
	s := newTestSession(t, 3, &fakeStore{})

	require.NoError(t, s.Apply(Accept{Index: 1}))

	snap := s.Snapshot()
	assert.Equal(t, StatusAccepted, snap.Items[1].Status)
	assert.Equal(t, 1, snap.SelectedIndex)
}

func TestReject_DoesNotMoveSelection(t *testing.T) {
	s := newTestSession(t, 3, &fakeStore{})

	require.NoError(t, s.Apply(Accept{Index: 0}))
	require.NoError(t, s.Apply(Reject{Index: 2}))

	snap := s.Snapshot()
	assert.Equal(t, StatusRejected, snap.Items[2].Status)
	assert.Equal(t, 0, snap.SelectedIndex)
}

func TestStatusIsAlwaysExactlyOneValue(t *testing.T) {
	s := newTestSession(t, 1, &fakeStore{})

	transitions := []Transition{
		Accept{Index: 0},
		Reject{Index: 0},
		Accept{Index: 0},
		Edit{Index: 0, Front: "X", Back: "Y"},
		Reject{Index: 0},
		Reject{Index: 0},
	}
	want := []Status{StatusAccepted, StatusRejected, StatusAccepted, StatusAccepted, StatusRejected, StatusRejected}

	for i, tr := range transitions {
		require.NoError(t, s.Apply(tr))
		got := s.Snapshot().Items[0].Status
		assert.Equal(t, want[i], got, "after transition %d (%T)", i, tr)
		assert.Contains(t, []Status{StatusPending, StatusAccepted, StatusRejected}, got)
	}
}

func TestEdit_ForcesAcceptEvenAfterReject(t *testing.T) {
	s := newTestSession(t, 2, &fakeStore{})

	require.NoError(t, s.Apply(Reject{Index: 0}))
	require.NoError(t, s.Apply(Edit{Index: 0, Front: "New front", Back: "New back"}))

	snap := s.Snapshot()
	assert.Equal(t, StatusAccepted, snap.Items[0].Status)
	assert.True(t, snap.Items[0].Edited)
	assert.Equal(t, 0, snap.SelectedIndex)
}

func TestEdit_ComparesAgainstOriginalNotIntermediate(t *testing.T) {
	s := newTestSession(t, 1, &fakeStore{})
	original := s.Snapshot().Items[0].Original

	require.NoError(t, s.Apply(Edit{Index: 0, Front: "X", Back: "Y"}))
	snap := s.Snapshot()
	assert.True(t, snap.Items[0].Edited)
	assert.Equal(t, original, snap.Items[0].Original, "original must not change on edit")

	// Reverting to the original content clears the edited flag.
	require.NoError(t, s.Apply(Edit{Index: 0, Front: original.Front, Back: original.Back}))
	snap = s.Snapshot()
	assert.False(t, snap.Items[0].Edited)
	assert.Equal(t, StatusAccepted, snap.Items[0].Status)
	assert.Equal(t, original, snap.Items[0].Original)
}

func TestSelect_DoesNotTouchStatus(t *testing.T) {
	s := newTestSession(t, 3, &fakeStore{})

	require.NoError(t, s.Apply(Select{Index: 2}))

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.SelectedIndex)
	assert.Equal(t, StatusPending, snap.Items[2].Status)

	// -1 clears selection
	require.NoError(t, s.Apply(Select{Index: -1}))
	assert.Equal(t, -1, s.Snapshot().SelectedIndex)
}

func TestApply_OutOfRangeIndexIsTypedError(t *testing.T) {
	s := newTestSession(t, 2, &fakeStore{})

	for _, tr := range []Transition{
		Accept{Index: -1},
		Accept{Index: 2},
		Reject{Index: 5},
		Edit{Index: 2, Front: "a", Back: "b"},
		Select{Index: -2},
		Select{Index: 2},
	} {
		err := s.Apply(tr)
		var indexErr *IndexError
		require.ErrorAs(t, err, &indexErr, "transition %T", tr)
	}

	// State untouched by failed transitions.
	snap := s.Snapshot()
	for _, it := range snap.Items {
		assert.Equal(t, StatusPending, it.Status)
	}
	assert.Equal(t, -1, snap.SelectedIndex)
}

// ─── Derived predicates ───

func TestDerivedPredicates(t *testing.T) {
	s := newTestSession(t, 3, &fakeStore{})

	assert.False(t, s.AllReviewed())
	assert.Equal(t, 0, s.AcceptedCount())
	assert.False(t, s.CanSaveSelected())
	assert.True(t, s.CanSaveAll())

	s.Apply(Accept{Index: 0})
	s.Apply(Reject{Index: 1})
	assert.False(t, s.AllReviewed(), "one item still pending")
	assert.False(t, s.CanSaveSelected())

	s.Apply(Accept{Index: 2})
	assert.True(t, s.AllReviewed())
	assert.Equal(t, 2, s.AcceptedCount())
	assert.True(t, s.CanSaveSelected())
}

func TestCanSaveSelected_FalseWhenAllRejected(t *testing.T) {
	s := newTestSession(t, 2, &fakeStore{})
	s.Apply(Reject{Index: 0})
	s.Apply(Reject{Index: 1})

	assert.True(t, s.AllReviewed())
	assert.False(t, s.CanSaveSelected())
}

// ─── SaveSelected ───

func TestSaveSelected_RejectsWhenPendingRemain(t *testing.T) {
	store := &fakeStore{}
	s := newTestSession(t, 3, store)
	s.Apply(Accept{Index: 0})

	_, err := s.SaveSelected(context.Background())

	var unreviewed *UnreviewedError
	require.ErrorAs(t, err, &unreviewed)
	assert.Equal(t, 2, unreviewed.Count)
	assert.Equal(t, 0, store.callCount(), "validation errors must not reach the store")
}

func TestSaveSelected_RejectsWhenNoAccepted(t *testing.T) {
	store := &fakeStore{}
	s := newTestSession(t, 2, store)
	s.Apply(Reject{Index: 0})
	s.Apply(Reject{Index: 1})

	_, err := s.SaveSelected(context.Background())

	require.ErrorIs(t, err, ErrNoAcceptedItems)
	assert.Equal(t, 0, store.callCount())
}

func TestSaveSelected_RejectsWithoutGeneration(t *testing.T) {
	store := &fakeStore{}
	s := NewSession(uuid.New(), nil, testProposals(1), store)
	s.Apply(Accept{Index: 0})

	_, err := s.SaveSelected(context.Background())

	require.ErrorIs(t, err, ErrNoActiveGeneration)
	assert.Equal(t, 0, store.callCount())
}

func TestSaveSelected_PayloadContainsOnlyAcceptedItems(t *testing.T) {
	store := &fakeStore{}
	s := newTestSession(t, 3, store)
	s.Apply(Accept{Index: 0})
	s.Apply(Reject{Index: 1})
	s.Apply(Edit{Index: 2, Front: "Edited front", Back: "Edited back"})

	saved, err := s.SaveSelected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, saved)

	require.Len(t, store.lastRecords, 2)
	assert.Equal(t, "Front 0", store.lastRecords[0].Front)
	assert.Equal(t, models.SourceAIFull, store.lastRecords[0].Source)
	assert.Equal(t, "Edited front", store.lastRecords[1].Front)
	assert.Equal(t, models.SourceAIEdited, store.lastRecords[1].Source)
	for _, rec := range store.lastRecords {
		assert.EqualValues(t, 42, rec.GenerationID)
	}
	assert.False(t, store.lastSaveAll)
}

// For any random status assignment, payload length equals the accepted count
// and every record's source tag matches its item's edited flag.
func TestSaveSelected_PayloadProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 50; trial++ {
		store := &fakeStore{}
		n := 1 + rng.Intn(8)
		s := newTestSession(t, n, store)

		accepted := 0
		editedBySlot := make(map[int]bool)
		for i := 0; i < n; i++ {
			switch rng.Intn(3) {
			case 0:
				s.Apply(Accept{Index: i})
				accepted++
			case 1:
				s.Apply(Reject{Index: i})
			case 2:
				s.Apply(Edit{Index: i, Front: fmt.Sprintf("E%d", i), Back: fmt.Sprintf("B%d", i)})
				editedBySlot[accepted] = true
				accepted++
			}
		}

		saved, err := s.SaveSelected(context.Background())
		if accepted == 0 {
			require.ErrorIs(t, err, ErrNoAcceptedItems)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, accepted, saved)
		require.Len(t, store.lastRecords, accepted)
		for slot, rec := range store.lastRecords {
			want := models.SourceAIFull
			if editedBySlot[slot] {
				want = models.SourceAIEdited
			}
			assert.Equal(t, want, rec.Source)
		}
	}
}

func TestSaveSelected_SuccessResetsSession(t *testing.T) {
	s := newTestSession(t, 2, &fakeStore{})
	s.Apply(Accept{Index: 0})
	s.Apply(Accept{Index: 1})

	saved, err := s.SaveSelected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, saved)

	snap := s.Snapshot()
	assert.Empty(t, snap.Items)
	assert.Nil(t, snap.Generation)
	assert.Equal(t, -1, snap.SelectedIndex)
	assert.Equal(t, CommitSucceeded, snap.Commit.Phase)
	assert.Contains(t, snap.Commit.Message, "2")
}

func TestSaveSelected_FailureLeavesStateUntouched(t *testing.T) {
	store := &fakeStore{err: errors.New("500 Internal Server Error: insert failed")}
	s := newTestSession(t, 2, store)
	s.Apply(Accept{Index: 0})
	s.Apply(Reject{Index: 1})

	before := s.Snapshot()
	_, err := s.SaveSelected(context.Background())
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, before.Items, snap.Items, "items must survive a failed commit")
	require.NotNil(t, snap.Generation)
	assert.Equal(t, before.Generation.ID, snap.Generation.ID)
	assert.Equal(t, CommitFailed, snap.Commit.Phase)
	assert.Contains(t, snap.Commit.Message, "500 Internal Server Error", "upstream error text must be preserved")

	// Retry succeeds once the store recovers.
	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()
	saved, err := s.SaveSelected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
}

func TestSaveSelected_StorePanicEndsInFailed(t *testing.T) {
	store := &fakeStore{panicWith: "boom"}
	s := newTestSession(t, 1, store)
	s.Apply(Accept{Index: 0})

	_, err := s.SaveSelected(context.Background())
	require.Error(t, err)
	assert.Equal(t, CommitFailed, s.Snapshot().Commit.Phase)
	assert.False(t, s.Snapshot().Commit.Phase == CommitRunning)
}

// ─── SaveAll ───

func TestSaveAll_IncludesEveryItemRegardlessOfStatus(t *testing.T) {
	store := &fakeStore{}
	s := newTestSession(t, 4, store)
	s.Apply(Accept{Index: 0})
	s.Apply(Reject{Index: 1})
	s.Apply(Edit{Index: 2, Front: "E", Back: "B"})
	// index 3 left pending

	saved, err := s.SaveAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, saved)
	require.Len(t, store.lastRecords, 4)
	assert.True(t, store.lastSaveAll)

	// Edited flag is preserved in source tags even though statuses are overridden.
	assert.Equal(t, models.SourceAIFull, store.lastRecords[0].Source)
	assert.Equal(t, models.SourceAIFull, store.lastRecords[1].Source)
	assert.Equal(t, models.SourceAIEdited, store.lastRecords[2].Source)
	assert.Equal(t, models.SourceAIFull, store.lastRecords[3].Source)

	snap := s.Snapshot()
	assert.Empty(t, snap.Items)
	assert.Nil(t, snap.Generation)
	assert.Equal(t, CommitSucceeded, snap.Commit.Phase)
}

func TestSaveAll_RejectsEmptySession(t *testing.T) {
	store := &fakeStore{}
	s := newTestSession(t, 0, store)

	_, err := s.SaveAll(context.Background())
	require.ErrorIs(t, err, ErrNoItems)
	assert.Equal(t, 0, store.callCount())
}

func TestSaveAll_RejectsWithoutGeneration(t *testing.T) {
	store := &fakeStore{}
	s := NewSession(uuid.New(), nil, testProposals(2), store)

	_, err := s.SaveAll(context.Background())
	require.ErrorIs(t, err, ErrNoActiveGeneration)
	assert.Equal(t, 0, store.callCount())
}

// ─── Re-entrancy guard ───

func TestCommit_SecondCallWhileInFlightIsNoOp(t *testing.T) {
	store := &fakeStore{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newTestSession(t, 2, store)
	s.Apply(Accept{Index: 0})
	s.Apply(Accept{Index: 1})

	done := make(chan error, 1)
	go func() {
		_, err := s.SaveSelected(context.Background())
		done <- err
	}()

	<-store.started

	// Both commit paths must refuse while the first is outstanding.
	_, err := s.SaveSelected(context.Background())
	assert.ErrorIs(t, err, ErrCommitInFlight)
	_, err = s.SaveAll(context.Background())
	assert.ErrorIs(t, err, ErrCommitInFlight)
	assert.False(t, s.CanSaveSelected())
	assert.False(t, s.CanSaveAll())

	close(store.release)
	require.NoError(t, <-done)

	assert.Equal(t, 1, store.callCount(), "guarded calls must not reach the store")
}

// ─── Manager ───

func TestManager_StartReplacesSession(t *testing.T) {
	store := &fakeStore{}
	m := NewManager(store)
	userID := uuid.New()

	first := m.Start(userID, testGeneration(), testProposals(2))
	first.Apply(Accept{Index: 0})

	second := m.Start(userID, &models.Generation{ID: 43}, testProposals(3))

	got, ok := m.Get(userID)
	require.True(t, ok)
	assert.Same(t, second, got)

	snap := got.Snapshot()
	require.Len(t, snap.Items, 3)
	for _, it := range snap.Items {
		assert.Equal(t, StatusPending, it.Status, "new session must not inherit review decisions")
	}
}

func TestManager_GetUnknownUser(t *testing.T) {
	m := NewManager(&fakeStore{})
	_, ok := m.Get(uuid.New())
	assert.False(t, ok)
}
