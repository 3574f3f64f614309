package handler

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/certready/certready-backend/internal/middleware"
	"github.com/certready/certready-backend/internal/model"
	"github.com/certready/certready-backend/internal/service"
	ws "github.com/certready/certready-backend/internal/websocket"
)

const clockTickInterval = 5 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the server-authoritative exam clock and accepts
// autosaves over the same connection.
type WSHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// ExamClockStream godoc
// WS /ws/v1/exams/:id/clock
// Pushes the remaining-time countdown computed from the persisted session;
// clients render this instead of trusting their local clock.
func (h *WSHandler) ExamClockStream(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	// Validate before upgrading so a plain HTTP error reaches the client.
	if _, err := h.sessionService.Timing(c.Request.Context(), user, examID); err != nil {
		failFromService(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", user.ID.String()).
		Str("exam_id", examID.String()).
		Logger()
	wsLog.Info().Msg("Clock stream connected")

	// gorilla/websocket permits one concurrent writer; the ticker goroutine
	// and the read loop both send.
	var writeMu sync.Mutex
	write := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return ws.WriteTyped(conn, v)
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(clockTickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := h.sendTick(c, write, user, examID); err != nil {
					return
				}
			}
		}
	}()
	defer close(done)

	// Initial tick so the client has a countdown immediately.
	if err := h.sendTick(c, write, user, examID); err != nil {
		return
	}

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			if err := h.sendTick(c, write, user, examID); err != nil {
				return
			}
		case ws.ActionAutosave:
			h.handleAutosave(c, write, user, examID, &msg)
		default:
			_ = write(ws.ErrorResponse{Event: ws.EventError, Error: "unknown action"})
		}
	}
}

func (h *WSHandler) sendTick(c *gin.Context, write func(interface{}) error, user *model.User, examID uuid.UUID) error {
	timing, err := h.sessionService.Timing(c.Request.Context(), user, examID)
	if err != nil {
		_ = write(ws.ErrorResponse{Event: ws.EventError, Error: "session no longer active"})
		return err
	}

	tick := ws.ClockTick{
		Event:            ws.EventTick,
		RemainingSeconds: timing.RemainingSeconds,
		ServerTimeMs:     time.Now().UnixMilli(),
	}
	if timing.PausePhase != nil {
		tick.PausePhase = string(*timing.PausePhase)
	}
	return write(tick)
}

func (h *WSHandler) handleAutosave(c *gin.Context, write func(interface{}) error, user *model.User, examID uuid.UUID, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		_ = write(ws.ErrorResponse{Event: ws.EventError, Error: "invalid question id"})
		return
	}
	if msg.SelectedAnswer == "" {
		_ = write(ws.ErrorResponse{Event: ws.EventError, Error: "answer required"})
		return
	}

	if err := h.sessionService.SaveAnswer(c.Request.Context(), user, examID, questionID, msg.SelectedAnswer); err != nil {
		_ = write(ws.ErrorResponse{Event: ws.EventError, Error: "save failed"})
		return
	}
	_ = write(ws.SavedResponse{Event: ws.EventSaved, QuestionID: msg.QuestionID})
}
