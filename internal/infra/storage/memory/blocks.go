package memory

import (
	"context"
	"sort"
	"sync"

	domainblocks "hostelmarket/internal/domain/blocks"
	domainuser "hostelmarket/internal/domain/user"
)

type blockKey struct {
	userID    domainuser.ID
	blockedID domainuser.ID
}

// BlockRepository stores user blocks in memory.
type BlockRepository struct {
	mu      sync.RWMutex
	entries map[blockKey]domainblocks.Block
}

func NewBlockRepository() *BlockRepository {
	return &BlockRepository{entries: make(map[blockKey]domainblocks.Block)}
}

func (r *BlockRepository) Add(ctx context.Context, block domainblocks.Block) error {
	key := blockKey{block.UserID, block.BlockedID}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; !ok {
		r.entries[key] = block
	}
	return nil
}

func (r *BlockRepository) Remove(ctx context.Context, userID, blockedID domainuser.ID) error {
	key := blockKey{userID, blockedID}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; !ok {
		return domainblocks.ErrNotFound
	}
	delete(r.entries, key)
	return nil
}

func (r *BlockRepository) ListByUser(ctx context.Context, userID domainuser.ID) ([]domainblocks.Block, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domainblocks.Block
	for key, block := range r.entries {
		if key.userID == userID {
			result = append(result, block)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *BlockRepository) Exists(ctx context.Context, a, b domainuser.ID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.entries[blockKey{a, b}]; ok {
		return true, nil
	}
	if _, ok := r.entries[blockKey{b, a}]; ok {
		return true, nil
	}
	return false, nil
}

func (r *BlockRepository) DeleteByUser(ctx context.Context, id domainuser.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.entries {
		if key.userID == id || key.blockedID == id {
			delete(r.entries, key)
		}
	}
	return nil
}

var _ domainblocks.Repository = (*BlockRepository)(nil)
