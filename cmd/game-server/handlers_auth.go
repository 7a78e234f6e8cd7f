package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/michaelgreenl/game-lobby/internal/auth"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func registerHandler(authSvc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		userID, err := authSvc.Register(r.Context(), req.Username, req.Password)
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			writeHTTPError(w, http.StatusBadRequest, "missing_fields")
			return
		case errors.Is(err, auth.ErrUsernameTaken):
			writeHTTPError(w, http.StatusConflict, "username_taken")
			return
		case err != nil:
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"userId":   userID,
			"username": req.Username,
		})
	}
}

func loginHandler(authSvc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		res, err := authSvc.Login(r.Context(), req.Username, req.Password)
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			writeHTTPError(w, http.StatusBadRequest, "missing_fields")
			return
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeHTTPError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		case err != nil:
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token":    res.Token,
			"userId":   res.UserID,
			"username": res.Username,
		})
	}
}
