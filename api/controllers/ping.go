package controllers

import (
	"net/http"

	"github.com/angelmondragon/feastflow-backend/api/middleware"
	"github.com/angelmondragon/feastflow-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// WhoAmI echoes the identity resolved from the bearer token.
func WhoAmI() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		payload := map[string]string{
			"userId": actor.ID,
			"role":   string(actor.Role),
		}
		if actor.Name != "" {
			payload["name"] = actor.Name
		}
		if actor.RestaurantID != "" {
			payload["restaurantId"] = actor.RestaurantID
		}
		responses.WriteSuccess(w, payload)
	}
}
