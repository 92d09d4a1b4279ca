package groups

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/feastflow-backend/api/middleware"
	"github.com/angelmondragon/feastflow-backend/api/responses"
	"github.com/angelmondragon/feastflow-backend/api/validators"
	internalgroups "github.com/angelmondragon/feastflow-backend/internal/groups"
	"github.com/angelmondragon/feastflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/feastflow-backend/pkg/errors"
	"github.com/angelmondragon/feastflow-backend/pkg/logger"
)

const maxTextLen = 200

type createRoomRequest struct {
	RestaurantID   *string `json:"restaurantId,omitempty"`
	RestaurantName *string `json:"restaurantName,omitempty"`
	DisplayName    string  `json:"displayName,omitempty"`
	Avatar         string  `json:"avatar,omitempty"`
}

type joinRoomRequest struct {
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

type addItemRequest struct {
	Name         string  `json:"name" validate:"required"`
	Price        int     `json:"price" validate:"gte=0,lte=10000000"`
	Quantity     int     `json:"quantity" validate:"gte=1,lte=1000"`
	Notes        string  `json:"notes,omitempty"`
	MenuItemID   *string `json:"menuItemId,omitempty"`
	RestaurantID *string `json:"restaurantId,omitempty"`
}

type updateItemRequest struct {
	Name     *string `json:"name,omitempty"`
	Price    *int    `json:"price,omitempty" validate:"omitempty,gte=0,lte=10000000"`
	Quantity *int    `json:"quantity,omitempty" validate:"omitempty,gte=1,lte=1000"`
	Notes    *string `json:"notes,omitempty"`
}

type paymentModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=host split"`
}

// Create opens a room hosted by the caller.
func Create(svc internalgroups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "groups service unavailable"))
			return
		}
		var payload createRoomRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		room, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), internalgroups.CreateInput{
			RestaurantID:   payload.RestaurantID,
			RestaurantName: validators.SanitizeOptional(payload.RestaurantName, maxTextLen),
			DisplayName:    validators.SanitizeString(payload.DisplayName, maxTextLen),
			Avatar:         validators.SanitizeString(payload.Avatar, maxTextLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithRoomCode(r.Context(), room.Code), "group.created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, room)
	}
}

// Detail returns the current room snapshot.
func Detail(svc internalgroups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "groups service unavailable"))
			return
		}
		room, err := svc.Get(r.Context(), roomCode(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, room)
	}
}

// Join adds the caller to the room; joining again is a no-op.
func Join(svc internalgroups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "groups service unavailable"))
			return
		}
		var payload joinRoomRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		room, err := svc.Join(r.Context(), middleware.ActorFromContext(r.Context()), roomCode(r), internalgroups.JoinInput{
			DisplayName: validators.SanitizeString(payload.DisplayName, maxTextLen),
			Avatar:      validators.SanitizeString(payload.Avatar, maxTextLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, room)
	}
}

// AddItem appends a line owned by the caller.
func AddItem(svc internalgroups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "groups service unavailable"))
			return
		}
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		room, err := svc.AddItem(r.Context(), middleware.ActorFromContext(r.Context()), roomCode(r), internalgroups.ItemInput{
			Name:         validators.SanitizeString(payload.Name, maxTextLen),
			Price:        payload.Price,
			Quantity:     payload.Quantity,
			Notes:        validators.SanitizeString(payload.Notes, maxTextLen),
			MenuItemID:   validators.SanitizeOptional(payload.MenuItemID, maxTextLen),
			RestaurantID: validators.SanitizeOptional(payload.RestaurantID, maxTextLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, room)
	}
}

// UpdateItem patches a line; only its owner or the host may.
func UpdateItem(svc internalgroups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "groups service unavailable"))
			return
		}
		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		patch := internalgroups.ItemPatch{
			Price:    payload.Price,
			Quantity: payload.Quantity,
		}
		if payload.Name != nil {
			name := validators.SanitizeString(*payload.Name, maxTextLen)
			patch.Name = &name
		}
		if payload.Notes != nil {
			notes := validators.SanitizeString(*payload.Notes, maxTextLen)
			patch.Notes = &notes
		}
		room, err := svc.UpdateItem(r.Context(), middleware.ActorFromContext(r.Context()), roomCode(r), itemID(r), patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, room)
	}
}

// RemoveItem deletes a line; only its owner or the host may.
func RemoveItem(svc internalgroups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "groups service unavailable"))
			return
		}
		room, err := svc.RemoveItem(r.Context(), middleware.ActorFromContext(r.Context()), roomCode(r), itemID(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, room)
	}
}

// SetPaymentMode picks host-pays or split; host only.
func SetPaymentMode(svc internalgroups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "groups service unavailable"))
			return
		}
		var payload paymentModeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		room, err := svc.SetPaymentMode(r.Context(), middleware.ActorFromContext(r.Context()), roomCode(r), enums.PaymentMode(payload.Mode))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, room)
	}
}

// Checkout locks a non-empty room; host only.
func Checkout(svc internalgroups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "groups service unavailable"))
			return
		}
		room, err := svc.Checkout(r.Context(), middleware.ActorFromContext(r.Context()), roomCode(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithRoomCode(r.Context(), room.Code), "group.locked")
		}
		responses.WriteSuccess(w, room)
	}
}

// Cancel closes an open room; host only.
func Cancel(svc internalgroups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "groups service unavailable"))
			return
		}
		room, err := svc.Cancel(r.Context(), middleware.ActorFromContext(r.Context()), roomCode(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, room)
	}
}

func roomCode(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
}

func itemID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "itemId"))
}
