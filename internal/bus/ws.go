package bus

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/pausewise/pausewise/internal/model"
	"github.com/pausewise/pausewise/internal/service"
)

var upgrader = websocket.Upgrader{
	// The extension connects from page origins; the anonymous client id is
	// the only credential this local endpoint expects.
	CheckOrigin:     func(_ *http.Request) bool { return true },
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// Session is one live extension connection.
type Session struct {
	conn    *websocket.Conn
	logger  *slog.Logger
	writeMu sync.Mutex
}

// Instruct sends a fire-and-forget instruction to the page.
func (s *Session) Instruct(msgType MessageType) error {
	env, err := NewEnvelope(msgType, "", nil)
	if err != nil {
		return err
	}
	return s.write(env)
}

func (s *Session) write(env Envelope) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(env)
}

// ServeWS upgrades the connection and dispatches protocol messages to the
// coordinator until the peer disconnects.
func ServeWS(coordinator service.Coordinator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("failed to upgrade websocket", "error", err)
			return
		}
		defer func() { _ = conn.Close() }()

		session := &Session{conn: conn, logger: logger}
		logger.Info("extension connected", "remote", conn.RemoteAddr().String())

		for {
			var env Envelope
			if err := conn.ReadJSON(&env); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn("websocket read failed", "error", err)
				}
				return
			}
			session.dispatch(c.Request.Context(), coordinator, env)
		}
	}
}

func (s *Session) dispatch(ctx context.Context, coordinator service.Coordinator, env Envelope) {
	switch env.Type {
	case MsgPurchaseDetected:
		var payload PurchaseDetectedPayload
		if err := env.Decode(&payload); err != nil {
			s.replyError(env.ID, err.Error())
			return
		}
		decision, err := coordinator.HandleDetection(ctx, model.DetectionEvent{
			Product:         payload.Product,
			Site:            payload.Site,
			ConfidenceScore: payload.Confidence,
		})
		if err != nil {
			s.replyError(env.ID, err.Error())
			return
		}
		s.reply(MsgDecision, env.ID, decision)

	case MsgPurchaseOutcome:
		var payload PurchaseOutcomePayload
		if err := env.Decode(&payload); err != nil {
			s.replyError(env.ID, err.Error())
			return
		}
		result, err := coordinator.ResolveOutcome(ctx, payload.EventID, payload.Outcome, payload.ReflectionTimeSeconds)
		if err != nil {
			s.replyError(env.ID, err.Error())
			return
		}
		s.reply(MsgOutcomeResult, env.ID, result)

	default:
		s.replyError(env.ID, "unsupported message type: "+string(env.Type))
	}
}

func (s *Session) reply(msgType MessageType, id string, payload any) {
	env, err := NewEnvelope(msgType, id, payload)
	if err != nil {
		s.logger.Error("failed to build reply", "type", msgType, "error", err)
		return
	}
	if err := s.write(env); err != nil {
		s.logger.Warn("failed to write reply", "type", msgType, "error", err)
	}
}

func (s *Session) replyError(id, message string) {
	s.reply(MsgError, id, ErrorPayload{Message: message})
}
