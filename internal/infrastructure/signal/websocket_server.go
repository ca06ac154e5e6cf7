package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"wavelink/internal/core/domain"
	"wavelink/internal/core/ports"
	"wavelink/internal/core/services"
	"wavelink/pkg/config"
	"wavelink/pkg/tracing"
	"wavelink/pkg/validation"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebSocketServer terminates the persistent client connections and feeds
// their events into the coordinator. One goroutine reads each connection;
// all state mutation happens inside the coordinator's serialization.
type WebSocketServer struct {
	coordinator ports.Coordinator
	// auth is nil unless token authentication is enabled; then the
	// connection identity comes from a validated token instead of the raw
	// userId query parameter.
	auth services.AuthService

	pingInterval time.Duration
	pongTimeout  time.Duration
	writeTimeout time.Duration

	maxMessageSize int64
	msgRate        rate.Limit
	msgBurst       int

	logger *zap.SugaredLogger
}

func NewWebSocketServer(coordinator ports.Coordinator, auth services.AuthService, cfg *config.Config, logger *zap.SugaredLogger) *WebSocketServer {
	s := &WebSocketServer{
		coordinator:  coordinator,
		auth:         auth,
		pingInterval: cfg.Hub.PingInterval,
		pongTimeout:  cfg.Hub.PongTimeout,
		writeTimeout: cfg.Hub.WriteTimeout,
		logger:       logger,
	}
	if cfg.RateLimiting.Enabled {
		s.maxMessageSize = cfg.RateLimiting.WebSocket.MaxMessageSizeBytes
		s.msgRate = rate.Limit(cfg.RateLimiting.WebSocket.MessagesPerSecond)
		s.msgBurst = cfg.RateLimiting.WebSocket.Burst
	}
	return s
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := s.identify(r)
	if err != nil {
		// No identified channel exists yet, so there is nobody to report
		// the failure to; refuse the upgrade outright.
		s.logger.Warnw("rejecting connection", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "invalid identity", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	hubConn := newDeadlineConn(conn, s.writeTimeout)
	if err := s.coordinator.Connect(r.Context(), userID, hubConn); err != nil {
		s.logger.Warnw("connection rejected by coordinator", "user_id", userID, "error", err)
		return
	}
	defer s.coordinator.Disconnect(context.Background(), userID, hubConn)

	if s.maxMessageSize > 0 {
		conn.SetReadLimit(s.maxMessageSize)
	}
	conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
		return nil
	})

	var limiter *rate.Limiter
	if s.msgRate > 0 {
		limiter = rate.NewLimiter(s.msgRate, s.msgBurst)
	}

	pingTicker := time.NewTicker(s.pingInterval)
	defer pingTicker.Stop()

	messageChan := make(chan domain.Envelope, 10)
	errorChan := make(chan error, 1)

	go func() {
		for {
			var env domain.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				errorChan <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
			messageChan <- env
		}
	}()

	for {
		select {
		case env := <-messageChan:
			if limiter != nil && !limiter.Allow() {
				s.logger.Warnw("dropping message over rate limit", "user_id", userID, "event", env.Event)
				continue
			}
			s.dispatch(userID, env)

		case <-pingTicker.C:
			// Control frames may be written concurrently with the
			// coordinator's data writes.
			deadline := time.Now().Add(s.writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.logger.Infow("error sending ping", "user_id", userID, "error", err)
				return
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Infow("error reading from connection", "user_id", userID, "error", err)
			}
			return
		}
	}
}

// identify extracts the connection's user identity from the request: the
// userId query parameter, or the subject of a validated token when auth is
// enabled. The identifier itself is trusted as supplied; only the empty and
// unresolved sentinels are refused.
func (s *WebSocketServer) identify(r *http.Request) (domain.UserID, error) {
	if s.auth != nil {
		claims, err := s.auth.ValidateToken(r.URL.Query().Get("token"))
		if err != nil {
			return "", err
		}
		return claims.UserID, nil
	}

	userID := domain.UserID(strings.TrimSpace(r.URL.Query().Get("userId")))
	if !userID.Known() {
		return "", domain.ErrInvalidUserID
	}
	return userID, nil
}

func (s *WebSocketServer) dispatch(userID domain.UserID, env domain.Envelope) {
	if err := validation.ValidateEventName(env.Event); err != nil {
		s.logger.Warnw("dropping message with bad event name", "user_id", userID, "error", err)
		return
	}

	ctx, span := tracing.TraceHubEvent(context.Background(), env.Event, string(userID))
	defer span.End()

	if err := s.handleEvent(ctx, userID, env); err != nil {
		tracing.RecordError(ctx, err)
		s.logger.Warnw("error handling event", "user_id", userID, "event", env.Event, "error", err)
	}
}

func (s *WebSocketServer) handleEvent(ctx context.Context, userID domain.UserID, env domain.Envelope) error {
	switch env.Event {
	case domain.EventGetOnlineUsers:
		s.coordinator.BroadcastOnlineUsers(ctx)
		return nil

	case domain.EventCallRequest:
		var req domain.CallRequest
		if err := unmarshalPayload(env.Data, &req); err != nil {
			return err
		}
		if err := validation.ValidateCallType(string(req.CallType)); err != nil {
			return domain.ErrInvalidPayload
		}
		s.coordinator.RequestCall(ctx, userID, req)
		return nil

	case domain.EventCallAccept:
		var ans domain.CallAnswer
		if err := unmarshalPayload(env.Data, &ans); err != nil {
			return err
		}
		s.coordinator.AcceptCall(ctx, userID, ans)
		return nil

	case domain.EventCallDecline:
		var ans domain.CallAnswer
		if err := unmarshalPayload(env.Data, &ans); err != nil {
			return err
		}
		s.coordinator.DeclineCall(ctx, userID, ans)
		return nil

	case domain.EventCallEnd:
		var end domain.CallEnd
		if err := unmarshalPayload(env.Data, &end); err != nil {
			return err
		}
		s.coordinator.EndCall(ctx, userID, end)
		return nil

	case domain.EventWebRTCOffer, domain.EventWebRTCAnswer, domain.EventWebRTCICE:
		var sig domain.RelaySignal
		if err := unmarshalPayload(env.Data, &sig); err != nil {
			return err
		}
		s.coordinator.Relay(ctx, env.Event, userID, sig)
		return nil

	default:
		return domain.ErrUnknownEvent
	}
}

func unmarshalPayload(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return domain.ErrInvalidPayload
	}
	if err := json.Unmarshal(data, v); err != nil {
		return domain.ErrInvalidPayload
	}
	return nil
}
