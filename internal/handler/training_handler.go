package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/certready/certready-backend/internal/middleware"
	"github.com/certready/certready-backend/internal/model"
	"github.com/certready/certready-backend/internal/response"
	"github.com/certready/certready-backend/internal/service"
	"github.com/certready/certready-backend/internal/validator"
)

// TrainingHandler handles practice session endpoints.
type TrainingHandler struct {
	trainingService *service.TrainingService
}

// NewTrainingHandler creates a new TrainingHandler.
func NewTrainingHandler(trainingService *service.TrainingService) *TrainingHandler {
	return &TrainingHandler{trainingService: trainingService}
}

func (h *TrainingHandler) userAndSessionID(c *gin.Context) (*model.User, uuid.UUID, bool) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return user, sessionID, true
}

// Create godoc
// POST /api/v1/training/sessions
func (h *TrainingHandler) Create(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateTrainingRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.trainingService.Create(c.Request.Context(), user, &req)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"session": session})
}

// Get godoc
// GET /api/v1/training/sessions/:id
func (h *TrainingHandler) Get(c *gin.Context) {
	user, sessionID, ok := h.userAndSessionID(c)
	if !ok {
		return
	}

	session, err := h.trainingService.Get(c.Request.Context(), user, sessionID)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// SaveAnswers godoc
// PUT /api/v1/training/sessions/:id/answers
func (h *TrainingHandler) SaveAnswers(c *gin.Context) {
	user, sessionID, ok := h.userAndSessionID(c)
	if !ok {
		return
	}

	var req model.SaveTrainingAnswersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.trainingService.SaveAnswers(c.Request.Context(), user, sessionID, &req); err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// Answers godoc
// GET /api/v1/training/sessions/:id/answers
func (h *TrainingHandler) Answers(c *gin.Context) {
	user, sessionID, ok := h.userAndSessionID(c)
	if !ok {
		return
	}

	answers, err := h.trainingService.Answers(c.Request.Context(), user, sessionID)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"answers": answers})
}

// Complete godoc
// POST /api/v1/training/sessions/:id/complete
func (h *TrainingHandler) Complete(c *gin.Context) {
	user, sessionID, ok := h.userAndSessionID(c)
	if !ok {
		return
	}

	result, err := h.trainingService.Complete(c.Request.Context(), user, sessionID)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Abandon godoc
// POST /api/v1/training/sessions/:id/abandon
func (h *TrainingHandler) Abandon(c *gin.Context) {
	user, sessionID, ok := h.userAndSessionID(c)
	if !ok {
		return
	}

	if err := h.trainingService.Abandon(c.Request.Context(), user, sessionID); err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"abandoned": true})
}
