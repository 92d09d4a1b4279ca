package enums

// RoomStatus tracks a group cart room.
type RoomStatus string

const (
	RoomStatusOpen       RoomStatus = "open"
	RoomStatusLocked     RoomStatus = "locked"
	RoomStatusCheckedOut RoomStatus = "checked_out"
	RoomStatusCancelled  RoomStatus = "cancelled"
)

var validRoomStatuses = []RoomStatus{
	RoomStatusOpen,
	RoomStatusLocked,
	RoomStatusCheckedOut,
	RoomStatusCancelled,
}

// String implements fmt.Stringer.
func (r RoomStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RoomStatus.
func (r RoomStatus) IsValid() bool {
	for _, candidate := range validRoomStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}
