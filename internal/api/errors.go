package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mmynk/justsplit/internal/auth"
	"github.com/mmynk/justsplit/internal/calculator"
	"github.com/mmynk/justsplit/internal/middleware"
	"github.com/mmynk/justsplit/internal/provider"
	"github.com/mmynk/justsplit/internal/reducer"
)

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, provider.ErrUserNotFound),
		errors.Is(err, provider.ErrExpenseNotFound),
		errors.Is(err, provider.ErrEventNotFound),
		errors.Is(err, provider.ErrGroupNotFound):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrReplacementAction),
		errors.Is(err, reducer.ErrUnknownAction),
		errors.Is(err, reducer.ErrInvalidPayload),
		errors.Is(err, calculator.ErrNoParticipants),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, errMissingCounterpart):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrEmailExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON message. Internal errors are logged and
// their text is not returned to the client.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		s.logger.Error("Request handler failed", "path", c.FullPath(), "error", err)
		middleware.RespondWithError(c, status, "Internal server error")
		return
	}
	middleware.RespondWithError(c, status, err.Error())
}
