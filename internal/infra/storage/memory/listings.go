package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	domainlisting "hostelmarket/internal/domain/listing"
)

// ListingRepository stores listings in memory.
type ListingRepository struct {
	mu   sync.RWMutex
	byID map[domainlisting.ID]*domainlisting.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{byID: make(map[domainlisting.ID]*domainlisting.Listing)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlisting.ID) (*domainlisting.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.byID[id]; ok {
		return cloneListing(l), nil
	}
	return nil, domainlisting.ErrNotFound
}

func (r *ListingRepository) ByIDs(ctx context.Context, ids []domainlisting.ID) (map[domainlisting.ID]*domainlisting.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[domainlisting.ID]*domainlisting.Listing, len(ids))
	for _, id := range ids {
		if l, ok := r.byID[id]; ok {
			result[id] = cloneListing(l)
		}
	}
	return result, nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlisting.Listing) error {
	if l == nil || strings.TrimSpace(string(l.ID)) == "" {
		return domainlisting.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[l.ID] = cloneListing(l)
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id domainlisting.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *ListingRepository) DeleteByOwner(ctx context.Context, owner domainlisting.OwnerID) ([]domainlisting.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []domainlisting.Listing
	for id, l := range r.byID {
		if l.Owner == owner {
			removed = append(removed, *cloneListing(l))
			delete(r.byID, id)
		}
	}
	return removed, nil
}

func (r *ListingRepository) Search(ctx context.Context, params domainlisting.SearchParams) ([]domainlisting.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(params.Query))
	var result []domainlisting.Listing
	for _, l := range r.byID {
		if params.OwnerID != "" {
			if l.Owner != params.OwnerID {
				continue
			}
		} else if !l.Active {
			continue
		}
		if params.Hostel != "" && l.Hostel != params.Hostel {
			continue
		}
		if params.Category != "" && l.Category != params.Category {
			continue
		}
		if params.Type != "" && l.Type != params.Type {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(l.Title), query) &&
			!strings.Contains(strings.ToLower(l.Description), query) {
			continue
		}
		result = append(result, *cloneListing(l))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if params.Limit > 0 && len(result) > params.Limit {
		result = result[:params.Limit]
	}
	return result, nil
}

func (r *ListingRepository) CountActiveByOwners(ctx context.Context, owners []domainlisting.OwnerID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ownerSet := make(map[domainlisting.OwnerID]struct{}, len(owners))
	for _, owner := range owners {
		ownerSet[owner] = struct{}{}
	}
	var count int64
	for _, l := range r.byID {
		if !l.Active {
			continue
		}
		if _, ok := ownerSet[l.Owner]; ok {
			count++
		}
	}
	return count, nil
}

func cloneListing(l *domainlisting.Listing) *domainlisting.Listing {
	if l == nil {
		return nil
	}
	copyListing := *l
	copyListing.Images = append([]string(nil), l.Images...)
	if l.Price != nil {
		price := *l.Price
		copyListing.Price = &price
	}
	if l.Deposit != nil {
		deposit := *l.Deposit
		copyListing.Deposit = &deposit
	}
	return &copyListing
}

var _ domainlisting.Repository = (*ListingRepository)(nil)
