package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/akademi-backend/internal/middleware"
	"github.com/stemsi/akademi-backend/internal/response"
	"github.com/stemsi/akademi-backend/internal/service"
)

// failService maps a service error onto the response envelope.
//
// Ownership mismatches are reported as NOT_FOUND so attempt ids of other
// users cannot be probed.
func failService(c *gin.Context, log zerolog.Logger, err error) {
	if ac, ok := service.AsAlreadyCompleted(err); ok {
		response.FailWithData(c, http.StatusConflict, response.ErrAlreadyCompleted, ac.Result())
		return
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		detail := strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": ")
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"detail": detail})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrOwnershipMismatch):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrExamInactive):
		response.Fail(c, http.StatusConflict, response.ErrExamNotAvailable)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
	default:
		log.Error().Err(err).
			Str("path", c.FullPath()).
			Str("request_id", response.RequestID(c)).
			Msg("Unhandled service error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// uuidParam parses a path parameter, writing INVALID_ID on failure.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// requireUser returns the authenticated user id, writing TOKEN_REQUIRED when absent.
func requireUser(c *gin.Context) (string, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return "", false
	}
	return userID, true
}
