package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/feastflow-backend/api/middleware"
	"github.com/angelmondragon/feastflow-backend/api/responses"
	"github.com/angelmondragon/feastflow-backend/api/validators"
	internalorders "github.com/angelmondragon/feastflow-backend/internal/orders"
	"github.com/angelmondragon/feastflow-backend/pkg/auth"
	"github.com/angelmondragon/feastflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/feastflow-backend/pkg/errors"
	"github.com/angelmondragon/feastflow-backend/pkg/logger"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
	maxTextLen       = 500
)

type lineItemRequest struct {
	Name       string  `json:"name" validate:"required"`
	Price      int     `json:"price" validate:"gte=0,lte=10000000"`
	Quantity   int     `json:"quantity" validate:"gte=1,lte=1000"`
	MenuItemID *string `json:"menuItemId,omitempty"`
}

type createOrderRequest struct {
	RestaurantID         string            `json:"restaurantId" validate:"required"`
	RestaurantName       string            `json:"restaurantName"`
	CustomerName         *string           `json:"customerName,omitempty"`
	Items                []lineItemRequest `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress      string            `json:"deliveryAddress" validate:"required"`
	AddressDetails       map[string]any    `json:"addressDetails,omitempty"`
	DeliveryInstructions string            `json:"deliveryInstructions,omitempty"`
	PaymentMethod        string            `json:"paymentMethod" validate:"required"`
	PaymentStatus        string            `json:"paymentStatus,omitempty"`
}

func (r createOrderRequest) toInput() internalorders.CreateInput {
	items := make([]internalorders.LineItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, internalorders.LineItem{
			Name:       validators.SanitizeString(item.Name, maxTextLen),
			UnitPrice:  item.Price,
			Quantity:   item.Quantity,
			MenuItemID: validators.SanitizeOptional(item.MenuItemID, maxTextLen),
		})
	}
	return internalorders.CreateInput{
		RestaurantID:         strings.TrimSpace(r.RestaurantID),
		RestaurantName:       validators.SanitizeString(r.RestaurantName, maxTextLen),
		CustomerName:         validators.SanitizeOptional(r.CustomerName, maxTextLen),
		Items:                items,
		DeliveryAddress:      validators.SanitizeString(r.DeliveryAddress, maxTextLen),
		AddressDetails:       r.AddressDetails,
		DeliveryInstructions: validators.SanitizeString(r.DeliveryInstructions, maxTextLen),
		PaymentMethod:        enums.PaymentMethod(strings.ToLower(strings.TrimSpace(r.PaymentMethod))),
		PaymentStatus:        enums.PaymentStatus(strings.ToLower(strings.TrimSpace(r.PaymentStatus))),
	}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type reassignRequest struct {
	DriverID   *string `json:"driverId"`
	DriverName *string `json:"driverName"`
}

// Create places an order for a guest or an authenticated customer.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithOrderCode(r.Context(), order.Code), "order.created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// List returns orders newest first, narrowed by optional restaurantId, driverId and status.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultListLimit, 1, maxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		filter := internalorders.Filter{
			RestaurantID: strings.TrimSpace(query.Get("restaurantId")),
			DriverID:     strings.TrimSpace(query.Get("driverId")),
			Limit:        limit,
		}
		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter.Status = status
		}

		list, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Available lists unclaimed orders a driver may pick up.
func Available(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		list, err := svc.AvailableForPickup(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail fetches one order by its external code.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		code, err := orderCode(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// UpdateStatus applies a whitelisted status change.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		code, err := orderCode(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := enums.OrderStatus(strings.ToLower(strings.TrimSpace(payload.Status)))

		order, err := svc.UpdateStatus(r.Context(), middleware.ActorFromContext(r.Context()), code, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Reassign lets an admin move or clear the driver of an active order.
func Reassign(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		code, err := orderCode(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reassignRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Reassign(r.Context(), middleware.ActorFromContext(r.Context()), code, internalorders.ReassignInput{
			DriverID:   payload.DriverID,
			DriverName: validators.SanitizeOptional(payload.DriverName, maxTextLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type actionFunc func(ctx context.Context, actor auth.Actor, code string) (*internalorders.Order, error)

// action adapts the body-less lifecycle operations to a handler.
func action(logg *logger.Logger, event string, run actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := orderCode(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := run(r.Context(), middleware.ActorFromContext(r.Context()), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithOrderCode(r.Context(), order.Code), event)
		}
		responses.WriteSuccess(w, order)
	}
}

func unavailable(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
	}
}

// Assign claims an available order for the calling driver.
func Assign(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return action(logg, "order.assigned", svc.Assign)
}

func AcceptRestaurant(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return action(logg, "order.accepted", svc.AcceptRestaurant)
}

func RejectRestaurant(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return action(logg, "order.rejected", svc.RejectRestaurant)
}

func ReadyForPickup(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return action(logg, "order.ready_for_pickup", svc.ReadyForPickup)
}

// Deliver marks an order delivered by its assigned driver or an admin.
func Deliver(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return action(logg, "order.delivered", svc.Deliver)
}

func orderCode(r *http.Request) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
	if code == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order code is required")
	}
	return code, nil
}
