package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/feastflow-backend/pkg/auth"
	"github.com/angelmondragon/feastflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/feastflow-backend/pkg/errors"
	"github.com/angelmondragon/feastflow-backend/pkg/logger"
)

const defaultCodeRetries = 5

// Service drives orders through their lifecycle on behalf of authenticated actors.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*Order, error)
	Get(ctx context.Context, code string) (*Order, error)
	List(ctx context.Context, actor auth.Actor, filter Filter) ([]Order, error)
	AvailableForPickup(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, actor auth.Actor, code string, status enums.OrderStatus) (*Order, error)
	Assign(ctx context.Context, actor auth.Actor, code string) (*Order, error)
	AcceptRestaurant(ctx context.Context, actor auth.Actor, code string) (*Order, error)
	RejectRestaurant(ctx context.Context, actor auth.Actor, code string) (*Order, error)
	ReadyForPickup(ctx context.Context, actor auth.Actor, code string) (*Order, error)
	Reassign(ctx context.Context, actor auth.Actor, code string, input ReassignInput) (*Order, error)
	Deliver(ctx context.Context, actor auth.Actor, code string) (*Order, error)
}

// CreateInput is the customer-submitted draft.
type CreateInput struct {
	RestaurantID         string
	RestaurantName       string
	CustomerName         *string
	Items                []LineItem
	DeliveryAddress      string
	AddressDetails       map[string]any
	DeliveryInstructions string
	PaymentMethod        enums.PaymentMethod
	PaymentStatus        enums.PaymentStatus
}

// ReassignInput overwrites the driver identity. Nil fields clear it.
type ReassignInput struct {
	DriverID   *string
	DriverName *string
}

// Options tunes service behaviour.
type Options struct {
	CodeRetries int
	NewCode     CodeGenerator
	Now         func() time.Time
	Logger      *logger.Logger
}

type service struct {
	store       Store
	publisher   Publisher
	codeRetries int
	newCode     CodeGenerator
	now         func() time.Time
	logg        *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(store Store, publisher Publisher, opts Options) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("order store required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("event publisher required")
	}
	svc := &service{
		store:       store,
		publisher:   publisher,
		codeRetries: opts.CodeRetries,
		newCode:     opts.NewCode,
		now:         opts.Now,
		logg:        opts.Logger,
	}
	if svc.codeRetries <= 0 {
		svc.codeRetries = defaultCodeRetries
	}
	if svc.newCode == nil {
		svc.newCode = NewCode
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*Order, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	paymentStatus := input.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = enums.PaymentStatusPending
	}
	items := append([]LineItem(nil), input.Items...)
	total, err := ComputeTotal(items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order total exceeds the supported range").
			WithDetails(map[string]any{"maxTotal": MaxOrderTotal})
	}

	order := &Order{
		RestaurantID:         strings.TrimSpace(input.RestaurantID),
		RestaurantName:       strings.TrimSpace(input.RestaurantName),
		CustomerName:         input.CustomerName,
		Items:                items,
		Total:                total,
		Payout:               ComputePayout(total),
		DeliveryAddress:      strings.TrimSpace(input.DeliveryAddress),
		AddressDetails:       input.AddressDetails,
		DeliveryInstructions: strings.TrimSpace(input.DeliveryInstructions),
		PaymentMethod:        input.PaymentMethod,
		PaymentStatus:        paymentStatus,
		Status:               enums.OrderStatusPending,
	}
	if !actor.IsZero() {
		id := actor.ID
		order.CustomerID = &id
		if order.CustomerName == nil && actor.Name != "" {
			name := actor.Name
			order.CustomerName = &name
		}
	}

	for attempt := 0; attempt < s.codeRetries; attempt++ {
		now := s.now().UTC()
		order.Code = s.newCode(now)
		order.CreatedAt = now
		err := s.store.Create(ctx, order)
		if err == nil {
			s.emit(ctx, EventCreated, order)
			return order, nil
		}
		if !errors.Is(err, ErrDuplicateCode) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "could not allocate a unique order code")
}

func validateCreate(input CreateInput) error {
	fields := map[string]string{}
	if strings.TrimSpace(input.RestaurantID) == "" {
		fields["restaurantId"] = "required"
	}
	if len(input.Items) == 0 {
		fields["items"] = "at least one item is required"
	}
	for i, item := range input.Items {
		key := fmt.Sprintf("items[%d]", i)
		switch {
		case strings.TrimSpace(item.Name) == "":
			fields[key] = "name is required"
		case item.UnitPrice < 0:
			fields[key] = "price must not be negative"
		case item.UnitPrice > MaxUnitPrice:
			fields[key] = fmt.Sprintf("price must be at most %d", MaxUnitPrice)
		case item.Quantity < 1:
			fields[key] = "quantity must be at least 1"
		case item.Quantity > MaxQuantity:
			fields[key] = fmt.Sprintf("quantity must be at most %d", MaxQuantity)
		}
	}
	if strings.TrimSpace(input.DeliveryAddress) == "" {
		fields["deliveryAddress"] = "required"
	}
	if input.PaymentMethod == "" {
		fields["paymentMethod"] = "required"
	} else if !input.PaymentMethod.IsValid() {
		fields["paymentMethod"] = "unsupported payment method"
	}
	if input.PaymentStatus != "" && !input.PaymentStatus.IsValid() {
		fields["paymentStatus"] = "unsupported payment status"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order").WithDetails(fields)
	}
	return nil
}

func (s *service) Get(ctx context.Context, code string) (*Order, error) {
	order, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, storeError(err)
	}
	return order, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, filter Filter) ([]Order, error) {
	if actor.Is(enums.ActorRoleRestaurant) {
		filter.RestaurantID = actor.RestaurantID
	}
	orders, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, storeError(err)
	}
	return orders, nil
}

func (s *service) AvailableForPickup(ctx context.Context) ([]Order, error) {
	orders, err := s.store.List(ctx, Filter{AvailableForPickup: true})
	if err != nil {
		return nil, storeError(err)
	}
	return orders, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor auth.Actor, code string, status enums.OrderStatus) (*Order, error) {
	if !IsSettable(status) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", status))
	}
	unchanged := false
	order, err := s.store.Transition(ctx, code, func(o *Order) error {
		if err := authorizeRestaurant(actor, o); err != nil {
			return err
		}
		if o.Status == status {
			unchanged = true
			return errUnchanged
		}
		if status == enums.OrderStatusOutForDelivery && !o.HasDriver() {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "assign a driver before marking the order out for delivery").
				WithDetails(map[string]any{"from": o.Status, "to": status})
		}
		if err := moveTo(o, status); err != nil {
			return err
		}
		s.stamp(o)
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	if !unchanged {
		s.emit(ctx, EventUpdated, order)
	}
	return order, nil
}

func (s *service) Assign(ctx context.Context, actor auth.Actor, code string) (*Order, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "delivery identity missing")
	}
	order, err := s.store.Transition(ctx, code, func(o *Order) error {
		if !IsAssignable(o.Status) || o.HasDriver() {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "order is not available for pickup").
				WithDetails(map[string]any{"status": o.Status})
		}
		if err := moveTo(o, enums.OrderStatusOutForDelivery); err != nil {
			return err
		}
		driverID := actor.ID
		o.DriverID = &driverID
		o.DriverName = optionalString(actor.Name)
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	s.emit(ctx, EventAssigned, order)
	return order, nil
}

func (s *service) AcceptRestaurant(ctx context.Context, actor auth.Actor, code string) (*Order, error) {
	order, err := s.store.Transition(ctx, code, func(o *Order) error {
		if err := authorizeRestaurant(actor, o); err != nil {
			return err
		}
		if o.Status != enums.OrderStatusPending {
			return invalidTransition(o.Status, enums.OrderStatusAccepted)
		}
		if err := moveTo(o, enums.OrderStatusAccepted); err != nil {
			return err
		}
		s.stamp(o)
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	s.emit(ctx, EventAccepted, order)
	return order, nil
}

func (s *service) RejectRestaurant(ctx context.Context, actor auth.Actor, code string) (*Order, error) {
	order, err := s.store.Transition(ctx, code, func(o *Order) error {
		if err := authorizeRestaurant(actor, o); err != nil {
			return err
		}
		if o.Status != enums.OrderStatusPending && o.Status != enums.OrderStatusAccepted {
			return invalidTransition(o.Status, enums.OrderStatusCancelled)
		}
		return moveTo(o, enums.OrderStatusCancelled)
	})
	if err != nil {
		return nil, storeError(err)
	}
	s.emit(ctx, EventRejected, order)
	return order, nil
}

func (s *service) ReadyForPickup(ctx context.Context, actor auth.Actor, code string) (*Order, error) {
	order, err := s.store.Transition(ctx, code, func(o *Order) error {
		if err := authorizeRestaurant(actor, o); err != nil {
			return err
		}
		if o.Status != enums.OrderStatusAccepted {
			return invalidTransition(o.Status, enums.OrderStatusReadyForPickup)
		}
		return moveTo(o, enums.OrderStatusReadyForPickup)
	})
	if err != nil {
		return nil, storeError(err)
	}
	s.emit(ctx, EventReadyForPickup, order)
	return order, nil
}

func (s *service) Reassign(ctx context.Context, actor auth.Actor, code string, input ReassignInput) (*Order, error) {
	if !actor.Is(enums.ActorRoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can reassign drivers")
	}
	order, err := s.store.Transition(ctx, code, func(o *Order) error {
		if o.Status.IsTerminal() {
			return invalidTransition(o.Status, enums.OrderStatusOutForDelivery)
		}
		if err := moveTo(o, enums.OrderStatusOutForDelivery); err != nil {
			return err
		}
		o.DriverID = trimmedOrNil(input.DriverID)
		o.DriverName = trimmedOrNil(input.DriverName)
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	s.emit(ctx, EventReassigned, order)
	return order, nil
}

func (s *service) Deliver(ctx context.Context, actor auth.Actor, code string) (*Order, error) {
	order, err := s.store.Transition(ctx, code, func(o *Order) error {
		if !actor.Is(enums.ActorRoleAdmin) && (o.DriverID == nil || *o.DriverID != actor.ID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is assigned to another driver")
		}
		if err := moveTo(o, enums.OrderStatusDelivered); err != nil {
			return err
		}
		s.stamp(o)
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	s.emit(ctx, EventUpdated, order)
	return order, nil
}

// stamp records lifecycle timestamps for the status just entered.
func (s *service) stamp(o *Order) {
	now := s.now().UTC()
	switch o.Status {
	case enums.OrderStatusConfirmed, enums.OrderStatusAccepted:
		if o.AcceptedAt == nil {
			o.AcceptedAt = &now
		}
	case enums.OrderStatusDelivered:
		o.DeliveredAt = &now
	}
}

func authorizeRestaurant(actor auth.Actor, o *Order) error {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return nil
	case enums.ActorRoleRestaurant:
		if actor.RestaurantID != "" && actor.RestaurantID == o.RestaurantID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to restaurant")
}

func storeError(err error) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	case errors.Is(err, ErrConcurrentUpdate):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order is being updated, retry")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order store failure")
	}
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	return optionalString(*v)
}
