package blocks

import (
	"context"
	"errors"
	"time"

	"hostelmarket/internal/domain/user"
)

var (
	ErrSelfBlock = errors.New("blocks: cannot block yourself")
	ErrNotFound  = errors.New("blocks: not found")
)

// Block is a one-directional block entry; messaging between two users is
// refused when a block exists in either direction.
type Block struct {
	UserID    user.ID
	BlockedID user.ID
	CreatedAt time.Time
}

type Repository interface {
	Add(ctx context.Context, block Block) error
	Remove(ctx context.Context, userID, blockedID user.ID) error
	ListByUser(ctx context.Context, userID user.ID) ([]Block, error)
	// Exists reports whether either party has blocked the other.
	Exists(ctx context.Context, a, b user.ID) (bool, error)
	DeleteByUser(ctx context.Context, id user.ID) error
}
