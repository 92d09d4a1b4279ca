package groups

import (
	"math"
	"time"

	"github.com/angelmondragon/feastflow-backend/pkg/enums"
)

const (
	// MaxItemPrice and MaxItemQuantity bound a single cart line.
	MaxItemPrice    = 10_000_000
	MaxItemQuantity = 1_000
)

// Member is one participant of a room. Exactly one member is the host.
type Member struct {
	ActorID  string    `json:"actorId"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar,omitempty"`
	IsHost   bool      `json:"isHost"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Item is a cart line owned by the member who added it.
type Item struct {
	ID           string    `json:"id"`
	MemberID     string    `json:"memberId"`
	Name         string    `json:"name"`
	Price        int       `json:"price"`
	Quantity     int       `json:"quantity"`
	Notes        string    `json:"notes,omitempty"`
	MenuItemID   *string   `json:"menuItemId,omitempty"`
	RestaurantID *string   `json:"restaurantId,omitempty"`
	AddedAt      time.Time `json:"addedAt"`
}

// Room is the authoritative group cart snapshot.
type Room struct {
	Code           string             `gorm:"primaryKey;size:16" json:"code"`
	HostID         string             `gorm:"not null" json:"hostId"`
	RestaurantID   *string            `json:"restaurantId,omitempty"`
	RestaurantName *string            `json:"restaurantName,omitempty"`
	Status         enums.RoomStatus   `gorm:"size:32;index;not null" json:"status"`
	PaymentMode    *enums.PaymentMode `gorm:"size:16" json:"paymentMode"`
	Members        []Member           `gorm:"serializer:json;type:text" json:"members"`
	Items          []Item             `gorm:"serializer:json;type:text" json:"items"`
	Subtotal       int                `gorm:"-" json:"subtotal"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
	LockedAt       *time.Time         `json:"lockedAt,omitempty"`
	Version        int64              `gorm:"not null;default:1" json:"version"`
}

// TableName pins the gorm table.
func (Room) TableName() string { return "group_rooms" }

// Member returns the membership record for actorID.
func (r *Room) Member(actorID string) (*Member, bool) {
	for i := range r.Members {
		if r.Members[i].ActorID == actorID {
			return &r.Members[i], true
		}
	}
	return nil, false
}

// IsMember reports whether actorID has joined.
func (r *Room) IsMember(actorID string) bool {
	_, ok := r.Member(actorID)
	return ok
}

// IsHost reports whether actorID hosts the room.
func (r *Room) IsHost(actorID string) bool {
	return actorID != "" && r.HostID == actorID
}

func (r *Room) itemIndex(id string) int {
	for i := range r.Items {
		if r.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// sumItems totals the cart, failing instead of wrapping past math.MaxInt.
func (r *Room) sumItems() (int, error) {
	total := 0
	for _, item := range r.Items {
		if item.Price < 0 || item.Quantity < 0 {
			return 0, ErrSubtotalOverflow
		}
		if item.Quantity > 0 && item.Price > (math.MaxInt-total)/item.Quantity {
			return 0, ErrSubtotalOverflow
		}
		total += item.Price * item.Quantity
	}
	return total, nil
}

func (r *Room) computeSubtotal() {
	r.Subtotal, _ = r.sumItems()
}

func (r *Room) clone() *Room {
	cp := *r
	cp.Members = append([]Member(nil), r.Members...)
	cp.Items = make([]Item, len(r.Items))
	for i, item := range r.Items {
		item.MenuItemID = copyString(item.MenuItemID)
		item.RestaurantID = copyString(item.RestaurantID)
		cp.Items[i] = item
	}
	cp.RestaurantID = copyString(r.RestaurantID)
	cp.RestaurantName = copyString(r.RestaurantName)
	if r.PaymentMode != nil {
		mode := *r.PaymentMode
		cp.PaymentMode = &mode
	}
	if r.LockedAt != nil {
		t := *r.LockedAt
		cp.LockedAt = &t
	}
	cp.computeSubtotal()
	return &cp
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
