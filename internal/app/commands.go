package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"pms_sync/internal/domain"
)

// SyncService synchronizes one booking end-to-end: fetch everything it depends on,
// then write it all in a single local transaction.
type SyncService struct {
	pms   domain.PMSClient
	store domain.SyncStore
	views domain.Cache // read-API cache; optional
	log   zerolog.Logger
}

func NewSyncService(c domain.PMSClient, s domain.SyncStore, views domain.Cache, logger zerolog.Logger) *SyncService {
	return &SyncService{pms: c, store: s, views: views, log: logger.With().Str("component", "sync").Logger()}
}

// SyncBooking returns a *domain.BookingSyncError for any unrecoverable failure.
// Guests that could not be fetched are skipped and simply not associated.
func (s *SyncService) SyncBooking(ctx context.Context, id int64) error {
	// 1) Booking detail first; nothing else can be resolved without it.
	bp, err := s.pms.GetBookingDetail(ctx, id)
	if err != nil {
		return &domain.BookingSyncError{BookingID: id, Stage: "fetch booking", Err: err}
	}

	// 2) Dependencies. Room and room type are required foreign keys; guests are best-effort.
	rp, err := s.pms.GetRoomDetail(ctx, bp.RoomID)
	if err != nil {
		return &domain.BookingSyncError{BookingID: id, Stage: "fetch room", Err: err}
	}
	rtp, err := s.pms.GetRoomTypeDetail(ctx, bp.RoomTypeID)
	if err != nil {
		return &domain.BookingSyncError{BookingID: id, Stage: "fetch room type", Err: err}
	}
	guestIDs := uniqueIDs(bp.GuestIDs)
	guests := s.pms.GetGuestDetails(ctx, guestIDs)
	if missing := len(guestIDs) - len(guests); missing > 0 {
		s.log.Warn().Int64("booking_id", id).Int("missing", missing).Int("requested", len(guestIDs)).
			Msg("some guests could not be fetched; they will not be associated")
	}

	// Validate payloads before opening a transaction.
	rt, err := mapRoomType(bp.RoomTypeID, rtp)
	if err != nil {
		return &domain.BookingSyncError{BookingID: id, Stage: "map room type", Err: err}
	}
	b, err := mapBooking(id, bp)
	if err != nil {
		return &domain.BookingSyncError{BookingID: id, Stage: "map booking", Err: err}
	}
	room, err := mapRoom(bp.RoomID, rp)
	if err != nil {
		return &domain.BookingSyncError{BookingID: id, Stage: "map room", Err: err}
	}

	// 3) One transaction: room type -> room -> guests -> booking -> association.
	var (
		bookingID   int64
		localGuests []int64
	)
	err = s.store.WithinTx(ctx, func(tx domain.SyncTx) error {
		roomTypeID, err := tx.UpsertRoomType(ctx, rt)
		if err != nil {
			return fmt.Errorf("upsert room type: %w", err)
		}

		room.RoomTypeID = roomTypeID
		roomID, err := tx.UpsertRoom(ctx, room)
		if err != nil {
			return fmt.Errorf("upsert room: %w", err)
		}

		localGuests = make([]int64, 0, len(guests))
		for _, gid := range guestIDs {
			gp, ok := guests[gid]
			if !ok {
				continue
			}
			localID, err := tx.UpsertGuest(ctx, mapGuest(gid, gp))
			if err != nil {
				return fmt.Errorf("upsert guest %d: %w", gid, err)
			}
			localGuests = append(localGuests, localID)
		}

		b.RoomID, b.RoomTypeID = roomID, roomTypeID
		bookingID, err = tx.UpsertBooking(ctx, b)
		if err != nil {
			return fmt.Errorf("upsert booking: %w", err)
		}

		if err := tx.ReplaceBookingGuests(ctx, bookingID, localGuests); err != nil {
			return fmt.Errorf("replace booking guests: %w", err)
		}
		return nil
	})
	if err != nil {
		return &domain.BookingSyncError{BookingID: id, Stage: "store", Err: err}
	}

	// Committed: drop cached read views so the API serves fresh data.
	if s.views != nil {
		keys := []string{bookingViewKey(bookingID)}
		for _, gid := range localGuests {
			keys = append(keys, guestViewKey(gid))
		}
		if err := s.views.Del(ctx, keys...); err != nil {
			s.log.Warn().Err(err).Int64("booking_id", id).Msg("view cache eviction failed")
		}
	}
	s.log.Debug().Int64("booking_id", id).Int64("local_id", bookingID).Int("guests", len(guests)).Msg("booking synced")
	return nil
}
