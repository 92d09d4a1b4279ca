package orders

import (
	"time"

	"github.com/angelmondragon/feastflow-backend/pkg/enums"
	"github.com/google/uuid"
)

// LineItem is one priced entry on an order. Prices are integer currency units.
type LineItem struct {
	Name       string  `json:"name"`
	UnitPrice  int     `json:"price"`
	Quantity   int     `json:"quantity"`
	MenuItemID *string `json:"menuItemId,omitempty"`
}

// Order is the aggregate owned by the order store.
type Order struct {
	ID                   uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Code                 string              `gorm:"size:32;uniqueIndex;not null" json:"code"`
	CustomerID           *string             `json:"customerId,omitempty"`
	CustomerName         *string             `json:"customerName,omitempty"`
	RestaurantID         string              `gorm:"index;not null" json:"restaurantId"`
	RestaurantName       string              `json:"restaurantName"`
	Items                []LineItem          `gorm:"serializer:json;type:text" json:"items"`
	Total                int                 `gorm:"not null" json:"total"`
	Payout               int                 `gorm:"not null" json:"payout"`
	DeliveryAddress      string              `gorm:"not null" json:"deliveryAddress"`
	AddressDetails       map[string]any      `gorm:"serializer:json;type:text" json:"addressDetails,omitempty"`
	DeliveryInstructions string              `json:"deliveryInstructions,omitempty"`
	PaymentMethod        enums.PaymentMethod `gorm:"size:32;not null" json:"paymentMethod"`
	PaymentStatus        enums.PaymentStatus `gorm:"size:32;not null" json:"paymentStatus"`
	Status               enums.OrderStatus   `gorm:"size:32;index;not null" json:"status"`
	DriverID             *string             `gorm:"index" json:"driverId,omitempty"`
	DriverName           *string             `json:"driverName,omitempty"`
	CreatedAt            time.Time           `json:"createdAt"`
	UpdatedAt            time.Time           `json:"updatedAt"`
	AcceptedAt           *time.Time          `json:"acceptedAt,omitempty"`
	DeliveredAt          *time.Time          `json:"deliveredAt,omitempty"`
	Version              int64               `gorm:"not null;default:1" json:"version"`
}

// TableName pins the gorm table.
func (Order) TableName() string { return "orders" }

// HasDriver reports whether a delivery actor is attached.
func (o *Order) HasDriver() bool {
	return o.DriverID != nil && *o.DriverID != ""
}

func (o *Order) clone() *Order {
	cp := *o
	cp.Items = append([]LineItem(nil), o.Items...)
	if o.AddressDetails != nil {
		cp.AddressDetails = make(map[string]any, len(o.AddressDetails))
		for k, v := range o.AddressDetails {
			cp.AddressDetails[k] = v
		}
	}
	cp.CustomerID = copyString(o.CustomerID)
	cp.CustomerName = copyString(o.CustomerName)
	cp.DriverID = copyString(o.DriverID)
	cp.DriverName = copyString(o.DriverName)
	cp.AcceptedAt = copyTime(o.AcceptedAt)
	cp.DeliveredAt = copyTime(o.DeliveredAt)
	return &cp
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func copyTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}

// Filter narrows List results. Limit <= 0 returns every match.
type Filter struct {
	AvailableForPickup bool
	RestaurantID       string
	DriverID           string
	Status             enums.OrderStatus
	Limit              int
}

func (f Filter) matches(o *Order) bool {
	if f.AvailableForPickup && (!IsAssignable(o.Status) || o.HasDriver()) {
		return false
	}
	if f.RestaurantID != "" && o.RestaurantID != f.RestaurantID {
		return false
	}
	if f.DriverID != "" && (o.DriverID == nil || *o.DriverID != f.DriverID) {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	return true
}
