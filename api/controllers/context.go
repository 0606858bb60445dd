package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func requireUser(r *http.Request) (uuid.UUID, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return userID, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}

// handle adapts a handler that reports failure by returning an error; the
// error becomes the response. Handlers must not have written anything before
// returning a non-nil error.
func handle(logg *logger.Logger, fn func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
		}
	}
}

// withBody decodes and validates a T from the request before running fn.
func withBody[T any](logg *logger.Logger, fn func(w http.ResponseWriter, r *http.Request, body T) error) http.HandlerFunc {
	return handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		var body T
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return err
		}
		return fn(w, r, body)
	})
}
