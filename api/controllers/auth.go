package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// AuthLogin answers with the token pair and mirrors the access token in a
// header.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return withBody(logg, func(w http.ResponseWriter, r *http.Request, body auth.LoginRequest) error {
		if svc == nil {
			return unavailable("auth")
		}
		result, err := svc.Login(r.Context(), body)
		if err != nil {
			return err
		}
		w.Header().Set(accessTokenHeader, result.AccessToken)
		responses.WriteSuccess(w, result)
		return nil
	})
}

// AuthSignup creates an account. The caller logs in separately.
func AuthSignup(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return withBody(logg, func(w http.ResponseWriter, r *http.Request, body auth.SignupRequest) error {
		if svc == nil {
			return unavailable("auth")
		}
		user, err := svc.Signup(r.Context(), body)
		if err != nil {
			return err
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, user)
		return nil
	})
}

// AuthResetRequest answers 202 whether or not the address has an account.
func AuthResetRequest(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return withBody(logg, func(w http.ResponseWriter, r *http.Request, body auth.ResetRequest) error {
		if svc == nil {
			return unavailable("auth")
		}
		if err := svc.RequestPasswordReset(r.Context(), body); err != nil {
			return err
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "reset_requested"})
		return nil
	})
}

func AuthNewPassword(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return withBody(logg, func(w http.ResponseWriter, r *http.Request, body auth.NewPasswordRequest) error {
		if svc == nil {
			return unavailable("auth")
		}
		if err := svc.ResetPassword(r.Context(), body); err != nil {
			return err
		}
		responses.WriteSuccess(w, map[string]string{"status": "password_updated"})
		return nil
	})
}
