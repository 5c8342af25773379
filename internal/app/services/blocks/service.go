package blocks

import (
	"context"
	"log/slog"
	"time"

	domainblocks "hostelmarket/internal/domain/blocks"
	domainuser "hostelmarket/internal/domain/user"
)

type Service struct {
	Blocks domainblocks.Repository
	Users  domainuser.Repository
	Logger *slog.Logger
}

// Block prevents any further messaging between the two users.
func (s *Service) Block(ctx context.Context, userID, blockedID domainuser.ID) error {
	if userID == blockedID {
		return domainblocks.ErrSelfBlock
	}
	if _, err := s.Users.ByID(ctx, blockedID); err != nil {
		return err
	}
	if err := s.Blocks.Add(ctx, domainblocks.Block{
		UserID:    userID,
		BlockedID: blockedID,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("user blocked", "user_id", userID, "blocked_id", blockedID)
	}
	return nil
}

func (s *Service) Unblock(ctx context.Context, userID, blockedID domainuser.ID) error {
	return s.Blocks.Remove(ctx, userID, blockedID)
}

// BlockedUser is one row of the blocked users screen.
type BlockedUser struct {
	UserID    string
	Name      string
	AvatarURL string
	BlockedAt time.Time
}

func (s *Service) List(ctx context.Context, userID domainuser.ID) ([]BlockedUser, error) {
	entries, err := s.Blocks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]domainuser.ID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.BlockedID)
	}
	users, err := s.Users.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	result := make([]BlockedUser, 0, len(entries))
	for _, entry := range entries {
		row := BlockedUser{
			UserID:    string(entry.BlockedID),
			Name:      "Unknown",
			BlockedAt: entry.CreatedAt,
		}
		if u, ok := users[entry.BlockedID]; ok {
			row.Name = u.Name
			row.AvatarURL = u.AvatarURL
		}
		result = append(result, row)
	}
	return result, nil
}
