package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"pms_sync/internal/domain"
)

// WithinTx runs fn in one transaction, committing only if fn returns nil.
// A panic inside fn rolls back and is re-raised.
func (r *Repo) WithinTx(ctx context.Context, fn func(tx domain.SyncTx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	if err = fn(&txRepo{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type txRepo struct{ tx *sql.Tx }

var _ domain.SyncTx = (*txRepo)(nil)

// upsert executes an ON DUPLICATE KEY statement and then resolves the local id by external id.
func (t *txRepo) upsert(ctx context.Context, upsertSQL, selectSQL, externalID string, args ...any) (int64, error) {
	if externalID == "" {
		return 0, fmt.Errorf("%w: empty external_id", domain.ErrInvalidPayload)
	}
	if _, err := t.tx.ExecContext(ctx, upsertSQL, args...); err != nil {
		return 0, err
	}
	var id int64
	if err := t.tx.QueryRowContext(ctx, selectSQL, externalID).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (t *txRepo) UpsertRoomType(ctx context.Context, rt domain.RoomType) (int64, error) {
	return t.upsert(ctx, upsertRoomTypeSQL, selectRoomTypeIDSQL, rt.ExternalID,
		rt.ExternalID, rt.Name, valStr(rt.Description))
}

func (t *txRepo) UpsertRoom(ctx context.Context, rm domain.Room) (int64, error) {
	return t.upsert(ctx, upsertRoomSQL, selectRoomIDSQL, rm.ExternalID,
		rm.ExternalID, rm.Number, rm.Floor, rm.RoomTypeID)
}

func (t *txRepo) UpsertGuest(ctx context.Context, g domain.Guest) (int64, error) {
	return t.upsert(ctx, upsertGuestSQL, selectGuestIDSQL, g.ExternalID,
		g.ExternalID, g.FirstName, g.LastName, valStr(g.Email), valStr(g.Phone))
}

func (t *txRepo) UpsertBooking(ctx context.Context, b domain.Booking) (int64, error) {
	return t.upsert(ctx, upsertBookingSQL, selectBookingIDSQL, b.ExternalID,
		b.ExternalID,
		b.ArrivalDate.Format(dateLayout),
		b.DepartureDate.Format(dateLayout),
		b.RoomID,
		b.RoomTypeID,
		string(b.Status),
		valStr(b.Notes),
	)
}

// ReplaceBookingGuests diffs the current membership against guestIDs and
// only deletes removed pairs and inserts added ones.
func (t *txRepo) ReplaceBookingGuests(ctx context.Context, bookingID int64, guestIDs []int64) error {
	rows, err := t.tx.QueryContext(ctx, selectBookingGuestsSQL, bookingID)
	if err != nil {
		return err
	}
	var current []int64
	for rows.Next() {
		var gid int64
		if err := rows.Scan(&gid); err != nil {
			rows.Close()
			return err
		}
		current = append(current, gid)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	add, remove := diffIDs(current, guestIDs)

	if len(remove) > 0 {
		args := make([]any, 0, len(remove)+1)
		args = append(args, bookingID)
		for _, gid := range remove {
			args = append(args, gid)
		}
		q := deleteBookingGuestsPrefix + "(" + placeholders(len(remove)) + ")"
		if _, err := t.tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	if len(add) > 0 {
		values := make([]string, 0, len(add))
		args := make([]any, 0, len(add)*2)
		for _, gid := range add {
			values = append(values, "(?,?)")
			args = append(args, bookingID, gid)
		}
		if _, err := t.tx.ExecContext(ctx, insertBookingGuestsPrefix+strings.Join(values, ","), args...); err != nil {
			return err
		}
	}
	return nil
}

// diffIDs returns ids in desired but not in current (add) and ids in current
// but not in desired (remove), both sorted and de-duplicated.
func diffIDs(current, desired []int64) (add, remove []int64) {
	cur := make(map[int64]struct{}, len(current))
	for _, id := range current {
		cur[id] = struct{}{}
	}
	want := make(map[int64]struct{}, len(desired))
	for _, id := range desired {
		want[id] = struct{}{}
	}
	for id := range want {
		if _, ok := cur[id]; !ok {
			add = append(add, id)
		}
	}
	for id := range cur {
		if _, ok := want[id]; !ok {
			remove = append(remove, id)
		}
	}
	sort.Slice(add, func(i, j int) bool { return add[i] < add[j] })
	sort.Slice(remove, func(i, j int) bool { return remove[i] < remove[j] })
	return add, remove
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
