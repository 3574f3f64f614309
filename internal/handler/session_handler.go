package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/certready/certready-backend/internal/middleware"
	"github.com/certready/certready-backend/internal/model"
	"github.com/certready/certready-backend/internal/response"
	"github.com/certready/certready-backend/internal/service"
	"github.com/certready/certready-backend/internal/validator"
)

// SessionHandler handles the exam session lifecycle endpoints.
type SessionHandler struct {
	sessionService *service.ExamSessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.ExamSessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

func (h *SessionHandler) userAndExamID(c *gin.Context) (*model.User, uuid.UUID, bool) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return user, examID, true
}

// Start godoc
// POST /api/v1/exams/:id/session
// Idempotent: reloading returns the running session's timing.
func (h *SessionHandler) Start(c *gin.Context) {
	user, examID, ok := h.userAndExamID(c)
	if !ok {
		return
	}

	timing, err := h.sessionService.Start(c.Request.Context(), user, examID)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": timing})
}

// Timing godoc
// GET /api/v1/exams/:id/session
func (h *SessionHandler) Timing(c *gin.Context) {
	user, examID, ok := h.userAndExamID(c)
	if !ok {
		return
	}

	timing, err := h.sessionService.Timing(c.Request.Context(), user, examID)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": timing})
}

// StartPause godoc
// POST /api/v1/exams/:id/session/pause
func (h *SessionHandler) StartPause(c *gin.Context) {
	user, examID, ok := h.userAndExamID(c)
	if !ok {
		return
	}

	var req model.StartPauseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrValidation)
			return
		}
	}

	participation, err := h.sessionService.StartPause(c.Request.Context(), user, examID, req.ManualTrigger)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"participation": participation})
}

// Resume godoc
// POST /api/v1/exams/:id/session/resume
func (h *SessionHandler) Resume(c *gin.Context) {
	user, examID, ok := h.userAndExamID(c)
	if !ok {
		return
	}

	participation, err := h.sessionService.ResumeFromPause(c.Request.Context(), user, examID)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"participation": participation})
}

// QuestionAccess godoc
// GET /api/v1/exams/:id/session/questions/:index/access
// Advisory lock verdict; the same rule is re-enforced at submission.
func (h *SessionHandler) QuestionAccess(c *gin.Context) {
	user, examID, ok := h.userAndExamID(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	access, err := h.sessionService.ValidateQuestionAccess(c.Request.Context(), user, examID, index)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"access": access})
}

type saveAnswerRequest struct {
	QuestionID     uuid.UUID `json:"question_id" binding:"required"`
	SelectedAnswer string    `json:"selected_answer" binding:"required,max=16"`
}

// SaveAnswer godoc
// PUT /api/v1/exams/:id/session/answers
// Autosave path; saved answers earn partial credit if the sweep closes the
// session.
func (h *SessionHandler) SaveAnswer(c *gin.Context) {
	user, examID, ok := h.userAndExamID(c)
	if !ok {
		return
	}

	var req saveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.SaveAnswer(c.Request.Context(), user, examID, req.QuestionID, req.SelectedAnswer); err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// Submit godoc
// POST /api/v1/exams/:id/session/submit
func (h *SessionHandler) Submit(c *gin.Context) {
	user, examID, ok := h.userAndExamID(c)
	if !ok {
		return
	}

	var req model.SubmitAnswersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.sessionService.SubmitAnswers(c.Request.Context(), user, examID, &req)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Leaderboard godoc
// GET /api/v1/exams/:id/leaderboard
func (h *SessionHandler) Leaderboard(c *gin.Context) {
	user, examID, ok := h.userAndExamID(c)
	if !ok {
		return
	}

	entries, err := h.sessionService.Leaderboard(c.Request.Context(), user, examID)
	if err != nil {
		failFromService(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"leaderboard": entries})
}
