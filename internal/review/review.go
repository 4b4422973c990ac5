// Package review holds the in-memory state machine for one generation's
// proposal batch: per-item accept/reject/edit decisions and the two commit
// paths that turn decisions into persistent flashcards.
package review

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"flashdeck-backend/internal/models"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

type CommitPhase string

const (
	CommitIdle      CommitPhase = "idle"
	CommitRunning   CommitPhase = "committing"
	CommitFailed    CommitPhase = "failed"
	CommitSucceeded CommitPhase = "succeeded"
)

type CommitState struct {
	Phase   CommitPhase `json:"phase"`
	Message string      `json:"message,omitempty"`
}

// CardData is a front/back pair. Used for the immutable original snapshot.
type CardData struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// Item is one proposal under review. The original snapshot is set once at
// creation and never changes; Edited is always recomputed against it.
type Item struct {
	Front    string   `json:"front"`
	Back     string   `json:"back"`
	Status   Status   `json:"status"`
	Edited   bool     `json:"edited"`
	Original CardData `json:"original"`
}

// BatchCreator is the narrow persistence surface a commit needs.
type BatchCreator interface {
	CreateFlashcardsBatch(ctx context.Context, userID uuid.UUID, generationID int64, records []models.BatchFlashcardRecord, saveAll bool) (int, error)
}

var (
	ErrCommitInFlight     = errors.New("a commit is already in flight")
	ErrNoActiveGeneration = errors.New("no active generation to commit against")
	ErrNoAcceptedItems    = errors.New("no accepted flashcards to save")
	ErrNoItems            = errors.New("no flashcards to save")
)

// IndexError reports a transition with an out-of-range index. This is a
// broken caller contract, not a user mistake, so Apply also logs it.
type IndexError struct {
	Index  int
	Length int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("review item index %d out of range [0,%d)", e.Index, e.Length)
}

// UnreviewedError reports a save-selected attempt with pending items left.
type UnreviewedError struct {
	Count int
}

func (e *UnreviewedError) Error() string {
	return fmt.Sprintf("all flashcards must be reviewed before saving selected: %d still pending", e.Count)
}

// Session owns the item list and the active generation for one review
// session. Every mutation goes through the mutex, so transitions dispatched
// before a commit are fully visible when the commit builds its payload.
type Session struct {
	mu         sync.Mutex
	userID     uuid.UUID
	items      []Item
	selected   int
	generation *models.Generation
	commit     CommitState
	inFlight   bool
	store      BatchCreator
}

func NewSession(userID uuid.UUID, gen *models.Generation, proposals []models.FlashcardProposal, store BatchCreator) *Session {
	items := make([]Item, len(proposals))
	for i, p := range proposals {
		items[i] = Item{
			Front:    p.Front,
			Back:     p.Back,
			Status:   StatusPending,
			Original: CardData{Front: p.Front, Back: p.Back},
		}
	}

	return &Session{
		userID:     userID,
		items:      items,
		selected:   -1,
		generation: gen,
		commit:     CommitState{Phase: CommitIdle},
		store:      store,
	}
}

// Apply runs one transition. Returns *IndexError on an out-of-range index.
func (s *Session) Apply(t Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch tr := t.(type) {
	case Accept:
		if err := s.checkIndex(tr.Index, t); err != nil {
			return err
		}
		s.items[tr.Index].Status = StatusAccepted
		s.selected = tr.Index

	case Reject:
		if err := s.checkIndex(tr.Index, t); err != nil {
			return err
		}
		s.items[tr.Index].Status = StatusRejected

	case Edit:
		if err := s.checkIndex(tr.Index, t); err != nil {
			return err
		}
		item := &s.items[tr.Index]
		item.Front = tr.Front
		item.Back = tr.Back
		item.Edited = tr.Front != item.Original.Front || tr.Back != item.Original.Back
		item.Status = StatusAccepted
		s.selected = tr.Index

	case Select:
		if tr.Index < -1 || tr.Index >= len(s.items) {
			err := &IndexError{Index: tr.Index, Length: len(s.items)}
			log.Printf("review: %T rejected: %v", t, err)
			return err
		}
		s.selected = tr.Index

	default:
		// Unreachable: Transition is a sealed interface.
		return fmt.Errorf("unknown transition type %T", t)
	}

	return nil
}

func (s *Session) checkIndex(i int, t Transition) error {
	if i < 0 || i >= len(s.items) {
		err := &IndexError{Index: i, Length: len(s.items)}
		log.Printf("review: %T rejected: %v", t, err)
		return err
	}
	return nil
}

// Derived predicates. Always recomputed from the current items.

func (s *Session) AllReviewed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingCount() == 0
}

func (s *Session) AcceptedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acceptedCount()
}

func (s *Session) CanSaveSelected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.inFlight && s.pendingCount() == 0 && s.acceptedCount() > 0 && s.generation != nil
}

func (s *Session) CanSaveAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.inFlight && len(s.items) > 0 && s.generation != nil
}

func (s *Session) pendingCount() int {
	n := 0
	for _, it := range s.items {
		if it.Status == StatusPending {
			n++
		}
	}
	return n
}

func (s *Session) acceptedCount() int {
	n := 0
	for _, it := range s.items {
		if it.Status == StatusAccepted {
			n++
		}
	}
	return n
}

// Snapshot is the session's externally visible state.
type Snapshot struct {
	Items           []Item             `json:"items"`
	SelectedIndex   int                `json:"selected_index"`
	Generation      *models.Generation `json:"generation"`
	Commit          CommitState        `json:"commit"`
	AllReviewed     bool               `json:"all_reviewed"`
	AcceptedCount   int                `json:"accepted_count"`
	CanSaveSelected bool               `json:"can_save_selected"`
	CanSaveAll      bool               `json:"can_save_all"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]Item, len(s.items))
	copy(items, s.items)

	return Snapshot{
		Items:           items,
		SelectedIndex:   s.selected,
		Generation:      s.generation,
		Commit:          s.commit,
		AllReviewed:     s.pendingCount() == 0,
		AcceptedCount:   s.acceptedCount(),
		CanSaveSelected: !s.inFlight && s.pendingCount() == 0 && s.acceptedCount() > 0 && s.generation != nil,
		CanSaveAll:      !s.inFlight && len(s.items) > 0 && s.generation != nil,
	}
}

// SaveSelected persists the accepted items. Preconditions are checked in
// order and each failure is reported distinctly; none of them reaches the
// store. Rejected items can never appear in the payload: the mapping loop
// only ever visits accepted items.
func (s *Session) SaveSelected(ctx context.Context) (int, error) {
	s.mu.Lock()

	if s.inFlight {
		s.mu.Unlock()
		log.Printf("review: save-selected ignored, commit already in flight")
		return 0, ErrCommitInFlight
	}
	if s.generation == nil {
		s.mu.Unlock()
		return 0, ErrNoActiveGeneration
	}
	if pending := s.pendingCount(); pending > 0 {
		s.mu.Unlock()
		return 0, &UnreviewedError{Count: pending}
	}

	var records []models.BatchFlashcardRecord
	for _, it := range s.items {
		if it.Status != StatusAccepted {
			continue
		}
		records = append(records, models.BatchFlashcardRecord{
			Front:        it.Front,
			Back:         it.Back,
			Source:       sourceTag(it.Edited),
			GenerationID: s.generation.ID,
		})
	}
	if len(records) == 0 {
		s.mu.Unlock()
		return 0, ErrNoAcceptedItems
	}

	generationID := s.generation.ID
	s.inFlight = true
	s.commit = CommitState{Phase: CommitRunning}
	s.mu.Unlock()

	saved, err := s.callStore(ctx, generationID, records, false)
	return s.finishCommit(saved, err)
}

// SaveAll persists every item regardless of its review status; the mapping
// overrides status to accepted while preserving each item's edited flag.
func (s *Session) SaveAll(ctx context.Context) (int, error) {
	s.mu.Lock()

	if s.inFlight {
		s.mu.Unlock()
		log.Printf("review: save-all ignored, commit already in flight")
		return 0, ErrCommitInFlight
	}
	if s.generation == nil {
		s.mu.Unlock()
		return 0, ErrNoActiveGeneration
	}
	if len(s.items) == 0 {
		s.mu.Unlock()
		return 0, ErrNoItems
	}

	records := make([]models.BatchFlashcardRecord, len(s.items))
	for i, it := range s.items {
		records[i] = models.BatchFlashcardRecord{
			Front:        it.Front,
			Back:         it.Back,
			Source:       sourceTag(it.Edited),
			GenerationID: s.generation.ID,
		}
	}

	generationID := s.generation.ID
	s.inFlight = true
	s.commit = CommitState{Phase: CommitRunning}
	s.mu.Unlock()

	saved, err := s.callStore(ctx, generationID, records, true)
	return s.finishCommit(saved, err)
}

// callStore converts a panicking store into an error so the commit state
// always leaves the committing phase.
func (s *Session) callStore(ctx context.Context, generationID int64, records []models.BatchFlashcardRecord, saveAll bool) (saved int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("batch create panicked: %v", r)
		}
	}()
	return s.store.CreateFlashcardsBatch(ctx, s.userID, generationID, records, saveAll)
}

func (s *Session) finishCommit(saved int, err error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight = false
	if err != nil {
		// Items and generation stay untouched so the user can retry.
		s.commit = CommitState{Phase: CommitFailed, Message: err.Error()}
		return 0, err
	}

	s.items = nil
	s.generation = nil
	s.selected = -1
	s.commit = CommitState{
		Phase:   CommitSucceeded,
		Message: fmt.Sprintf("Saved %d flashcards", saved),
	}
	return saved, nil
}

func sourceTag(edited bool) string {
	if edited {
		return models.SourceAIEdited
	}
	return models.SourceAIFull
}
