package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/certready/certready-backend/internal/response"
	"github.com/certready/certready-backend/internal/service"
)

// failFromService maps service sentinel errors onto API error codes. Anything
// unrecognized is a 500.
func failFromService(c *gin.Context, err error) {
	var fraud *service.FraudError
	if errors.As(err, &fraud) {
		response.Fail(c, http.StatusForbidden, response.ErrFraudDetected)
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, service.ErrUnauthenticated):
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
	case errors.Is(err, service.ErrUnauthorized):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrAccessExpired):
		response.Fail(c, http.StatusForbidden, response.ErrAccessExpired)
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrAlreadyExists):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyExists)
	case errors.Is(err, service.ErrAlreadyTaken):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyTaken)
	case errors.Is(err, service.ErrExamNotAvailable):
		response.Fail(c, http.StatusConflict, response.ErrExamNotAvailable)
	case errors.Is(err, service.ErrInvalidState):
		response.Fail(c, http.StatusConflict, response.ErrInvalidState)
	case errors.Is(err, service.ErrTimeExpired):
		response.Fail(c, http.StatusConflict, response.ErrTimeExpired)
	case errors.Is(err, service.ErrSessionExpired):
		response.Fail(c, http.StatusGone, response.ErrSessionExpired)
	case errors.Is(err, service.ErrNotEnoughQuestions):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNotEnoughQuestions)
	case errors.Is(err, service.ErrInvalidInput):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
