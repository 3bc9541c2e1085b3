package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/patcharin/splitbill/internal/auth"
	"github.com/patcharin/splitbill/internal/models"
)

// sessionResponse is returned from both register and login.
type sessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if errs := decodeJSON(r, &req); errs != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestData, "invalid request data", errs)
		return
	}
	if errs := req.validate(); errs != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestData, "invalid request data", errs)
		return
	}

	session, err := s.auth.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	switch {
	case errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, codeInvalidRequestData, err.Error(),
			[]fieldError{{Field: "password", Message: err.Error()}})
		return
	case errors.Is(err, auth.ErrEmailExists):
		writeError(w, http.StatusConflict, codeInvalidRequestData, err.Error(),
			[]fieldError{{Field: "email", Message: err.Error()}})
		return
	case err != nil:
		slog.Error("Register failed", "error", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{Token: session.Token, User: session.User})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if errs := decodeJSON(r, &req); errs != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestData, "invalid request data", errs)
		return
	}
	if errs := req.validate(); errs != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestData, "invalid request data", errs)
		return
	}

	session, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, err.Error(), nil)
		return
	}
	if err != nil {
		slog.Error("Login failed", "error", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Token: session.Token, User: session.User})
}
