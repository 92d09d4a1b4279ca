package groups

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
	"github.com/google/uuid"
)

// Service manages shared group carts.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*Room, error)
	Get(ctx context.Context, code string) (*Room, error)
	Join(ctx context.Context, actor auth.Actor, code string, input JoinInput) (*Room, error)
	AddItem(ctx context.Context, actor auth.Actor, code string, input ItemInput) (*Room, error)
	UpdateItem(ctx context.Context, actor auth.Actor, code, itemID string, patch ItemPatch) (*Room, error)
	RemoveItem(ctx context.Context, actor auth.Actor, code, itemID string) (*Room, error)
	SetPaymentMode(ctx context.Context, actor auth.Actor, code string, mode enums.PaymentMode) (*Room, error)
	Checkout(ctx context.Context, actor auth.Actor, code string) (*Room, error)
	Cancel(ctx context.Context, actor auth.Actor, code string) (*Room, error)
}

// CreateInput optionally pins the room to a restaurant.
type CreateInput struct {
	RestaurantID   *string
	RestaurantName *string
	DisplayName    string
	Avatar         string
}

// JoinInput carries how the member appears to others.
type JoinInput struct {
	DisplayName string
	Avatar      string
}

// ItemInput is a new cart line.
type ItemInput struct {
	Name         string
	Price        int
	Quantity     int
	Notes        string
	MenuItemID   *string
	RestaurantID *string
}

// ItemPatch updates the provided fields only.
type ItemPatch struct {
	Name     *string
	Price    *int
	Quantity *int
	Notes    *string
}

// Options tunes room code generation.
type Options struct {
	Codes   CodePolicy
	NewCode func(n int) string
	Now     func() time.Time
	Logger  *logger.Logger
}

type service struct {
	store     Store
	publisher Publisher
	codes     CodePolicy
	newCode   func(int) string
	now       func() time.Time
	logg      *logger.Logger
}

// NewService builds a group cart service.
func NewService(store Store, publisher Publisher, opts Options) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("room store required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("event publisher required")
	}
	svc := &service{
		store:     store,
		publisher: publisher,
		codes:     opts.Codes.withDefaults(),
		newCode:   opts.NewCode,
		now:       opts.Now,
		logg:      opts.Logger,
	}
	if svc.newCode == nil {
		svc.newCode = RandomCode
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*Room, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to start a group order")
	}
	code, err := allocateCode(ctx, s.codes, s.newCode, s.store.Exists)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocate room code")
	}

	now := s.now().UTC()
	room := &Room{
		Code:           code,
		HostID:         actor.ID,
		RestaurantID:   trimmedOrNil(input.RestaurantID),
		RestaurantName: trimmedOrNil(input.RestaurantName),
		Status:         enums.RoomStatusOpen,
		Members: []Member{{
			ActorID:  actor.ID,
			Name:     displayName(input.DisplayName, actor),
			Avatar:   strings.TrimSpace(input.Avatar),
			IsHost:   true,
			JoinedAt: now,
		}},
		Items:     []Item{},
		CreatedAt: now,
	}
	if err := s.store.Create(ctx, room); err != nil {
		if errors.Is(err, ErrCodeTaken) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "room code collision, retry")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist room")
	}
	room.computeSubtotal()
	s.broadcast(ctx, room)
	return room, nil
}

func (s *service) Get(ctx context.Context, code string) (*Room, error) {
	room, err := s.store.Get(ctx, normalizeCode(code))
	if err != nil {
		return nil, storeError(err)
	}
	return room, nil
}

func (s *service) Join(ctx context.Context, actor auth.Actor, code string, input JoinInput) (*Room, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to join a group order")
	}
	return s.mutate(ctx, code, func(r *Room) error {
		if r.IsMember(actor.ID) {
			return errUnchanged
		}
		if err := requireOpen(r); err != nil {
			return err
		}
		r.Members = append(r.Members, Member{
			ActorID:  actor.ID,
			Name:     displayName(input.DisplayName, actor),
			Avatar:   strings.TrimSpace(input.Avatar),
			JoinedAt: s.now().UTC(),
		})
		return nil
	})
}

func (s *service) AddItem(ctx context.Context, actor auth.Actor, code string, input ItemInput) (*Room, error) {
	if err := validateItem(input.Name, input.Price, input.Quantity); err != nil {
		return nil, err
	}
	return s.mutate(ctx, code, func(r *Room) error {
		if !r.IsMember(actor.ID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "join the room before adding items")
		}
		if err := requireOpen(r); err != nil {
			return err
		}
		r.Items = append(r.Items, Item{
			ID:           uuid.NewString(),
			MemberID:     actor.ID,
			Name:         strings.TrimSpace(input.Name),
			Price:        input.Price,
			Quantity:     input.Quantity,
			Notes:        strings.TrimSpace(input.Notes),
			MenuItemID:   trimmedOrNil(input.MenuItemID),
			RestaurantID: trimmedOrNil(input.RestaurantID),
			AddedAt:      s.now().UTC(),
		})
		return nil
	})
}

func (s *service) UpdateItem(ctx context.Context, actor auth.Actor, code, itemID string, patch ItemPatch) (*Room, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	if patch.Price != nil && (*patch.Price < 0 || *patch.Price > MaxItemPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("price must be between 0 and %d", MaxItemPrice))
	}
	if patch.Quantity != nil && (*patch.Quantity < 1 || *patch.Quantity > MaxItemQuantity) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be between 1 and %d", MaxItemQuantity))
	}
	return s.mutate(ctx, code, func(r *Room) error {
		idx, err := authorizeItem(r, actor, itemID)
		if err != nil {
			return err
		}
		item := &r.Items[idx]
		if patch.Name != nil {
			item.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Price != nil {
			item.Price = *patch.Price
		}
		if patch.Quantity != nil {
			item.Quantity = *patch.Quantity
		}
		if patch.Notes != nil {
			item.Notes = strings.TrimSpace(*patch.Notes)
		}
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, actor auth.Actor, code, itemID string) (*Room, error) {
	return s.mutate(ctx, code, func(r *Room) error {
		idx, err := authorizeItem(r, actor, itemID)
		if err != nil {
			return err
		}
		r.Items = append(r.Items[:idx], r.Items[idx+1:]...)
		return nil
	})
}

func (s *service) SetPaymentMode(ctx context.Context, actor auth.Actor, code string, mode enums.PaymentMode) (*Room, error) {
	if !mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment mode must be %s or %s", enums.PaymentModeHost, enums.PaymentModeSplit))
	}
	return s.mutate(ctx, code, func(r *Room) error {
		if !r.IsHost(actor.ID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the host can choose the payment mode")
		}
		if err := requireOpen(r); err != nil {
			return err
		}
		r.PaymentMode = &mode
		return nil
	})
}

func (s *service) Checkout(ctx context.Context, actor auth.Actor, code string) (*Room, error) {
	return s.mutate(ctx, code, func(r *Room) error {
		if !r.IsHost(actor.ID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the host can check out")
		}
		if err := requireOpen(r); err != nil {
			return err
		}
		if len(r.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		now := s.now().UTC()
		r.Status = enums.RoomStatusLocked
		r.LockedAt = &now
		return nil
	})
}

func (s *service) Cancel(ctx context.Context, actor auth.Actor, code string) (*Room, error) {
	return s.mutate(ctx, code, func(r *Room) error {
		if !r.IsHost(actor.ID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the host can cancel the room")
		}
		if err := requireOpen(r); err != nil {
			return err
		}
		r.Status = enums.RoomStatusCancelled
		return nil
	})
}

// mutate persists then broadcasts; unchanged rooms are returned without an event.
func (s *service) mutate(ctx context.Context, code string, fn Mutation) (*Room, error) {
	var changed bool
	room, err := s.store.Update(ctx, normalizeCode(code), func(r *Room) error {
		changed = false
		if err := fn(r); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	if changed {
		s.broadcast(ctx, room)
	}
	return room, nil
}

func authorizeItem(r *Room, actor auth.Actor, itemID string) (int, error) {
	if err := requireOpen(r); err != nil {
		return -1, err
	}
	idx := r.itemIndex(itemID)
	if idx < 0 {
		return -1, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	if actor.ID == "" || (r.Items[idx].MemberID != actor.ID && !r.IsHost(actor.ID)) {
		return -1, pkgerrors.New(pkgerrors.CodeForbidden, "only the item owner or the host can change this item")
	}
	return idx, nil
}

func requireOpen(r *Room) error {
	if r.Status != enums.RoomStatusOpen {
		return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("room is %s", r.Status)).
			WithDetails(map[string]any{"status": r.Status})
	}
	return nil
}

func validateItem(name string, price, quantity int) error {
	fields := map[string]string{}
	if strings.TrimSpace(name) == "" {
		fields["name"] = "required"
	}
	switch {
	case price < 0:
		fields["price"] = "must not be negative"
	case price > MaxItemPrice:
		fields["price"] = fmt.Sprintf("must be at most %d", MaxItemPrice)
	}
	switch {
	case quantity < 1:
		fields["quantity"] = "must be at least 1"
	case quantity > MaxItemQuantity:
		fields["quantity"] = fmt.Sprintf("must be at most %d", MaxItemQuantity)
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid item").WithDetails(fields)
	}
	return nil
}

func storeError(err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "room not found")
	case errors.Is(err, ErrSubtotalOverflow):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cart subtotal exceeds the supported range")
	case errors.Is(err, ErrConcurrentUpdate):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "room is being updated, retry")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "room store failure")
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func displayName(name string, actor auth.Actor) string {
	if v := strings.TrimSpace(name); v != "" {
		return v
	}
	if actor.Name != "" {
		return actor.Name
	}
	return "Guest"
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
