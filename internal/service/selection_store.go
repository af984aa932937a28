package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/noah-isme/aquacentre-api/internal/models"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
)

// SelectionStore keeps a user's in-progress selection per activity.
// Load returns nil, nil when nothing is stored.
//
// ClaimSubmit stores a SUBMITTING selection only if no other submission for the
// same user and activity holds it; the claim lasts at most hold and is released
// by the next Save of a non SUBMITTING state.
type SelectionStore interface {
	Load(ctx context.Context, userID, activity string) (*models.Selection, error)
	Save(ctx context.Context, sel *models.Selection) error
	Clear(ctx context.Context, userID, activity string) error
	ClaimSubmit(ctx context.Context, sel *models.Selection, hold time.Duration) (bool, error)
}

func selectionKey(userID, activity string) string {
	return fmt.Sprintf("selection:%s:%s", userID, models.NormalizeActivity(activity))
}

func submitLockKey(userID, activity string) string {
	return fmt.Sprintf("selection-submit:%s:%s", userID, models.NormalizeActivity(activity))
}

// CacheSelectionStore persists selections in the cache backend with a TTL.
type CacheSelectionStore struct {
	repo CacheRepository
	ttl  time.Duration
}

// NewCacheSelectionStore builds a store on top of a cache repository.
func NewCacheSelectionStore(repo CacheRepository, ttl time.Duration) *CacheSelectionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CacheSelectionStore{repo: repo, ttl: ttl}
}

// Load implements SelectionStore.
func (s *CacheSelectionStore) Load(ctx context.Context, userID, activity string) (*models.Selection, error) {
	var sel models.Selection
	if err := s.repo.Get(ctx, selectionKey(userID, activity), &sel); err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("load selection: %w", err)
	}
	return &sel, nil
}

// Save implements SelectionStore.
func (s *CacheSelectionStore) Save(ctx context.Context, sel *models.Selection) error {
	if err := s.repo.Set(ctx, selectionKey(sel.UserID, sel.Activity), sel, s.ttl); err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	if sel.State != models.SelectionSubmitting {
		if err := s.repo.Delete(ctx, submitLockKey(sel.UserID, sel.Activity)); err != nil {
			return fmt.Errorf("release submit lock: %w", err)
		}
	}
	return nil
}

// ClaimSubmit implements SelectionStore with a SETNX lock beside the selection.
func (s *CacheSelectionStore) ClaimSubmit(ctx context.Context, sel *models.Selection, hold time.Duration) (bool, error) {
	ok, err := s.repo.SetNX(ctx, submitLockKey(sel.UserID, sel.Activity), sel.UpdatedAt, hold)
	if err != nil {
		return false, fmt.Errorf("claim submit: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := s.repo.Set(ctx, selectionKey(sel.UserID, sel.Activity), sel, s.ttl); err != nil {
		_ = s.repo.Delete(ctx, submitLockKey(sel.UserID, sel.Activity))
		return false, fmt.Errorf("save selection: %w", err)
	}
	return true, nil
}

// Clear implements SelectionStore.
func (s *CacheSelectionStore) Clear(ctx context.Context, userID, activity string) error {
	if err := s.repo.Delete(ctx, selectionKey(userID, activity)); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	return nil
}

// MemorySelectionStore keeps selections in process memory.
type MemorySelectionStore struct {
	mu    sync.Mutex
	items map[string]memorySelection
	ttl   time.Duration
	now   func() time.Time
}

type memorySelection struct {
	sel     models.Selection
	expires time.Time
}

// NewMemorySelectionStore builds an in-memory store.
func NewMemorySelectionStore(ttl time.Duration) *MemorySelectionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemorySelectionStore{items: make(map[string]memorySelection), ttl: ttl, now: time.Now}
}

// Load implements SelectionStore.
func (s *MemorySelectionStore) Load(_ context.Context, userID, activity string) (*models.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := selectionKey(userID, activity)
	item, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	if s.now().After(item.expires) {
		delete(s.items, key)
		return nil, nil
	}
	sel := item.sel
	return &sel, nil
}

// Save implements SelectionStore.
func (s *MemorySelectionStore) Save(_ context.Context, sel *models.Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[selectionKey(sel.UserID, sel.Activity)] = memorySelection{sel: *sel, expires: s.now().Add(s.ttl)}
	return nil
}

// Clear implements SelectionStore.
func (s *MemorySelectionStore) Clear(_ context.Context, userID, activity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, selectionKey(userID, activity))
	return nil
}

// ClaimSubmit implements SelectionStore.
func (s *MemorySelectionStore) ClaimSubmit(_ context.Context, sel *models.Selection, hold time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := selectionKey(sel.UserID, sel.Activity)
	now := s.now()
	if item, ok := s.items[key]; ok && now.Before(item.expires) && SubmitInFlight(&item.sel, sel.UpdatedAt, hold) {
		return false, nil
	}
	s.items[key] = memorySelection{sel: *sel, expires: now.Add(s.ttl)}
	return true, nil
}
