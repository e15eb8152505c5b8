package mysql

// -----------------------------------------------------------------------------
// SYNC WRITES
// -----------------------------------------------------------------------------
// Every upsert is INSERT ... ON DUPLICATE KEY UPDATE on the external_id unique key,
// followed by selectIDBy* to learn the local id inside the same transaction.
// updated_at is maintained by ON UPDATE CURRENT_TIMESTAMP, so unchanged rows stay untouched.

const upsertRoomTypeSQL = `
INSERT INTO room_types
  (external_id, name, description)
VALUES
  (?, ?, ?)
ON DUPLICATE KEY UPDATE
  name        = VALUES(name),
  description = VALUES(description)
`

const upsertRoomSQL = `
INSERT INTO rooms
  (external_id, number, floor, room_type_id)
VALUES
  (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  number       = VALUES(number),
  floor        = VALUES(floor),
  room_type_id = VALUES(room_type_id)
`

const upsertGuestSQL = `
INSERT INTO guests
  (external_id, first_name, last_name, email, phone)
VALUES
  (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  first_name = VALUES(first_name),
  last_name  = VALUES(last_name),
  email      = VALUES(email),
  phone      = VALUES(phone)
`

const upsertBookingSQL = `
INSERT INTO bookings
  (external_id, arrival_date, departure_date, room_id, room_type_id, status, notes)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  arrival_date   = VALUES(arrival_date),
  departure_date = VALUES(departure_date),
  room_id        = VALUES(room_id),
  room_type_id   = VALUES(room_type_id),
  status         = VALUES(status),
  notes          = VALUES(notes)
`

const (
	selectRoomTypeIDSQL = `SELECT id FROM room_types WHERE external_id = ?`
	selectRoomIDSQL     = `SELECT id FROM rooms WHERE external_id = ?`
	selectGuestIDSQL    = `SELECT id FROM guests WHERE external_id = ?`
	selectBookingIDSQL  = `SELECT id FROM bookings WHERE external_id = ?`
)

// FOR UPDATE serializes concurrent replacements of the same booking's guest set.
const selectBookingGuestsSQL = `SELECT guest_id FROM booking_guest WHERE booking_id = ? ORDER BY guest_id FOR UPDATE`

const deleteBookingGuestsPrefix = "DELETE FROM booking_guest WHERE booking_id = ? AND guest_id IN "

const insertBookingGuestsPrefix = "INSERT INTO booking_guest (booking_id, guest_id) VALUES "

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// Returns a single booking joined with its room and room type (either may be NULL after deletes).
const getBookingSQL = `
SELECT
  b.id,
  b.external_id,
  b.arrival_date,
  b.departure_date,
  b.status,
  b.notes,
  r.id,
  r.external_id,
  r.number,
  r.floor,
  t.id,
  t.external_id,
  t.name,
  t.description
FROM bookings b
LEFT JOIN rooms r      ON r.id = b.room_id
LEFT JOIN room_types t ON t.id = b.room_type_id
WHERE b.id = ?
`

const listBookingsSQL = `
SELECT
  b.id,
  b.external_id,
  b.arrival_date,
  b.departure_date,
  b.status,
  b.notes,
  r.id,
  r.external_id,
  r.number,
  r.floor,
  t.id,
  t.external_id,
  t.name,
  t.description
FROM bookings b
LEFT JOIN rooms r      ON r.id = b.room_id
LEFT JOIN room_types t ON t.id = b.room_type_id
WHERE b.id > ? AND (? IS NULL OR b.status = ?)
ORDER BY b.id
LIMIT ?
`

const guestColumns = `g.id, g.external_id, g.first_name, g.last_name, g.email, g.phone`

const getGuestSQL = `SELECT ` + guestColumns + ` FROM guests g WHERE g.id = ?`

// Guests for a set of bookings; the IN list is appended by the caller.
const listGuestsForBookingsPrefix = `
SELECT bg.booking_id, ` + guestColumns + `
FROM booking_guest bg
JOIN guests g ON g.id = bg.guest_id
WHERE bg.booking_id IN `

const listGuestsForBookingsSuffix = ` ORDER BY bg.booking_id, g.id`
