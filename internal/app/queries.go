package app

import (
	"context"
	"fmt"
	"time"

	"pms_sync/internal/domain"
)

const (
	defaultPageSize = 15
	maxPageSize     = 100
)

func bookingViewKey(id int64) string { return fmt.Sprintf("booking:%d", id) }
func guestViewKey(id int64) string   { return fmt.Sprintf("guest:%d", id) }

type QueryService struct {
	repo     domain.BookingReader
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.BookingReader, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) GetBooking(ctx context.Context, id int64) (domain.BookingView, error) {
	key := bookingViewKey(id)
	var bv domain.BookingView
	if ok, _ := s.cache.Get(ctx, key, &bv); ok {
		return bv, nil
	}
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return domain.BookingView{}, err
	}
	_ = s.cache.Set(ctx, key, b, s.cacheTTL)
	return b, nil
}

func (s *QueryService) GetGuest(ctx context.Context, id int64) (domain.GuestView, error) {
	key := guestViewKey(id)
	var g domain.GuestView
	if ok, _ := s.cache.Get(ctx, key, &g); ok {
		return g, nil
	}
	g, err := s.repo.GetGuest(ctx, id)
	if err != nil {
		return domain.GuestView{}, err
	}
	_ = s.cache.Set(ctx, key, g, s.cacheTTL)
	return g, nil
}

// ListBookings is not cached: syncs change list membership far more often than single rows.
func (s *QueryService) ListBookings(ctx context.Context, q domain.BookingsQuery) (domain.BookingsPage, error) {
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	return s.repo.ListBookings(ctx, q)
}
