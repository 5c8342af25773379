package ratings

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hostelmarket/internal/app/events"
	domainlisting "hostelmarket/internal/domain/listing"
	domainratings "hostelmarket/internal/domain/ratings"
	domainuser "hostelmarket/internal/domain/user"
)

type Service struct {
	Ratings  domainratings.Repository
	Users    domainuser.Repository
	Listings domainlisting.Repository
	Events   events.Publisher
	Logger   *slog.Logger
}

type SubmitParams struct {
	RaterID   domainuser.ID
	RatedID   domainuser.ID
	ListingID domainlisting.ID
	Score     int
	Review    string
}

// Submit records a rating and refreshes the rated user's aggregate. One
// rating per (rater, rated, listing); repeats fail with ErrDuplicate.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (*domainratings.Rating, error) {
	rated, err := s.Users.ByID(ctx, params.RatedID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Listings.ByID(ctx, params.ListingID); err != nil {
		return nil, err
	}
	rating, err := domainratings.Submit(domainratings.SubmitParams{
		ID:        domainratings.ID(uuid.NewString()),
		RaterID:   params.RaterID,
		RatedID:   params.RatedID,
		ListingID: params.ListingID,
		Score:     params.Score,
		Review:    params.Review,
		Now:       time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Ratings.Save(ctx, rating); err != nil {
		return nil, err
	}
	if err := s.refreshAggregate(ctx, rated); err != nil && s.Logger != nil {
		s.Logger.Warn("rating aggregate refresh failed", "user_id", rated.ID, "error", err)
	}
	if s.Events != nil {
		if err := s.Events.Publish(ctx, events.RatingSubmitted{Rating: *rating}); err != nil && s.Logger != nil {
			s.Logger.Warn("event publish failed", "event", rating.ID, "error", err)
		}
	}
	if s.Logger != nil {
		s.Logger.Info("rating submitted", "rater_id", rating.RaterID, "rated_id", rating.RatedID, "score", rating.Score)
	}
	return rating, nil
}

// ForUser returns the ratings left for a user, newest first, with rater
// display names resolved.
func (s *Service) ForUser(ctx context.Context, ratedID domainuser.ID) ([]RatingView, error) {
	list, err := s.Ratings.ListByRated(ctx, ratedID)
	if err != nil {
		return nil, err
	}
	ids := make([]domainuser.ID, 0, len(list))
	seen := make(map[domainuser.ID]struct{}, len(list))
	for _, rating := range list {
		if _, ok := seen[rating.RaterID]; ok {
			continue
		}
		seen[rating.RaterID] = struct{}{}
		ids = append(ids, rating.RaterID)
	}
	raters, err := s.Users.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]RatingView, 0, len(list))
	for _, rating := range list {
		view := RatingView{
			ID:        string(rating.ID),
			RaterID:   string(rating.RaterID),
			RaterName: "Unknown",
			ListingID: string(rating.ListingID),
			Score:     rating.Score,
			Review:    rating.Review,
			CreatedAt: rating.CreatedAt,
		}
		if rater, ok := raters[rating.RaterID]; ok {
			view.RaterName = rater.Name
		}
		views = append(views, view)
	}
	return views, nil
}

type RatingView struct {
	ID        string
	RaterID   string
	RaterName string
	ListingID string
	Score     int
	Review    string
	CreatedAt time.Time
}

func (s *Service) refreshAggregate(ctx context.Context, rated *domainuser.User) error {
	average, count, err := s.Ratings.AggregateForUser(ctx, rated.ID)
	if err != nil {
		return err
	}
	rated.SetRating(average, count, time.Now())
	return s.Users.Save(ctx, rated)
}
