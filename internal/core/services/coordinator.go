package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"wavelink/internal/core/domain"
	"wavelink/internal/core/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CoordinatorService owns the presence registry, the per-user call state and
// the live call sessions of one hub process. All three maps have a single
// writer at a time: every entry point runs its transition to completion under
// mu, including the ring-timeout callback, so no handler ever observes a
// half-applied transition. State is process-local on purpose; running more
// than one coordinator would fragment presence.
type CoordinatorService struct {
	mu sync.Mutex

	conns    map[domain.UserID]ports.Conn
	order    []domain.UserID // presence snapshot order, oldest registration first
	states   map[domain.UserID]domain.CallState
	sessions map[domain.SessionID]*domain.CallSession

	ringTimeout time.Duration

	metrics ports.Metrics
	logger  *zap.SugaredLogger
}

const DefaultRingTimeout = 30 * time.Second

func NewCoordinator(ringTimeout time.Duration, metrics ports.Metrics, logger *zap.SugaredLogger) *CoordinatorService {
	if ringTimeout <= 0 {
		ringTimeout = DefaultRingTimeout
	}
	return &CoordinatorService{
		conns:       make(map[domain.UserID]ports.Conn),
		states:      make(map[domain.UserID]domain.CallState),
		sessions:    make(map[domain.SessionID]*domain.CallSession),
		ringTimeout: ringTimeout,
		metrics:     metrics,
		logger:      logger,
	}
}

func (s *CoordinatorService) Connect(ctx context.Context, userID domain.UserID, conn ports.Conn) error {
	if !userID.Known() {
		s.logger.Warnw("rejecting connection with invalid user id", "user_id", userID)
		return domain.ErrInvalidUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, replacing := s.conns[userID]
	s.conns[userID] = conn
	if !replacing {
		s.order = append(s.order, userID)
	}
	// A replaced connection is not closed here; it simply becomes
	// unroutable and cleans itself up when its transport drops.
	if _, ok := s.states[userID]; !ok {
		s.states[userID] = domain.CallState{Status: domain.StatusIdle}
	}

	s.logger.Infow("user connected", "user_id", userID, "replaced", replacing, "online", len(s.conns))
	if s.metrics != nil {
		s.metrics.UserConnected(len(s.conns))
	}

	s.broadcastOnlineLocked()
	return nil
}

func (s *CoordinatorService) Disconnect(ctx context.Context, userID domain.UserID, conn ports.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Guarded removal: a disconnect for a handle that was already replaced
	// by a newer connection for the same identity must not clear anything.
	current, ok := s.conns[userID]
	if !ok || current != conn {
		s.logger.Debugw("ignoring stale disconnect", "user_id", userID)
		return
	}

	delete(s.conns, userID)
	s.removeFromOrder(userID)

	if s.stateOf(userID).Busy() {
		s.reconcileCallLossLocked(userID)
	}
	delete(s.states, userID)

	s.logger.Infow("user disconnected", "user_id", userID, "online", len(s.conns))
	if s.metrics != nil {
		s.metrics.UserDisconnected(len(s.conns))
	}

	s.broadcastOnlineLocked()
}

// reconcileCallLossLocked sweeps every user whose call state points at the
// leaver instead of following a single peer reference, so a transient
// asymmetry between the two sides never leaves anyone stuck busy.
func (s *CoordinatorService) reconcileCallLossLocked(leaver domain.UserID) {
	for other, st := range s.states {
		if other == leaver || !st.Busy() || st.Peer != leaver {
			continue
		}
		s.sendLocked(other, domain.EventCallEnded, domain.CallEnded{
			ByUserID: leaver,
			Reason:   domain.ReasonDisconnected,
		})
		s.setIdleLocked(other)
	}

	if sess, ok := s.sessions[s.stateOf(leaver).Session]; ok {
		s.closeSessionLocked(sess, domain.OutcomeDisconnected)
	}
	s.setIdleLocked(leaver)
}

func (s *CoordinatorService) RequestCall(ctx context.Context, from domain.UserID, req domain.CallRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, online := s.conns[req.ToUserID]; !online {
		s.logger.Infow("call rejected, callee offline", "from", from, "to", req.ToUserID)
		s.sendLocked(from, domain.EventCallUnavailable, domain.CallUnavailable{Reason: domain.ReasonOffline})
		return
	}

	if !s.stateOf(from).Idle() || !s.stateOf(req.ToUserID).Idle() {
		s.logger.Infow("call rejected, party busy", "from", from, "to", req.ToUserID)
		s.sendLocked(from, domain.EventCallUnavailable, domain.CallUnavailable{Reason: domain.ReasonBusy})
		return
	}

	sess := &domain.CallSession{
		ID:        uuid.New(),
		Caller:    from,
		Callee:    req.ToUserID,
		Type:      req.CallType,
		Phase:     domain.PhaseRinging,
		CreatedAt: time.Now(),
	}
	s.sessions[sess.ID] = sess
	s.states[from] = domain.CallState{Status: domain.StatusRinging, Peer: req.ToUserID, Session: sess.ID}
	s.states[req.ToUserID] = domain.CallState{Status: domain.StatusRinging, Peer: from, Session: sess.ID}

	s.sendLocked(req.ToUserID, domain.EventCallRinging, domain.CallRinging{
		FromUserID: from,
		CallType:   req.CallType,
		FullName:   req.FullName,
		ProfilePic: req.ProfilePic,
	})

	s.logger.Infow("call ringing", "session_id", sess.ID, "from", from, "to", req.ToUserID, "call_type", req.CallType)
	if s.metrics != nil {
		s.metrics.CallRinging()
	}

	// The timer re-enters the coordinator's serialization when it fires and
	// re-validates against the captured session id, so a session that
	// already left the ringing phase makes it a no-op. No cancellation
	// bookkeeping is needed on the accept/decline/end/disconnect paths.
	sid := sess.ID
	time.AfterFunc(s.ringTimeout, func() { s.expireRing(sid) })
}

func (s *CoordinatorService) expireRing(sid domain.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sid]
	if !ok || sess.Phase != domain.PhaseRinging {
		return
	}

	s.logger.Infow("call timed out", "session_id", sid, "caller", sess.Caller, "callee", sess.Callee)

	// Each side sees the other as the party that ended the call.
	s.sendLocked(sess.Caller, domain.EventCallEnded, domain.CallEnded{ByUserID: sess.Callee, Reason: domain.ReasonTimeout})
	s.sendLocked(sess.Callee, domain.EventCallEnded, domain.CallEnded{ByUserID: sess.Caller, Reason: domain.ReasonTimeout})

	s.setIdleLocked(sess.Caller)
	s.setIdleLocked(sess.Callee)
	s.closeSessionLocked(sess, domain.OutcomeTimeout)
}

func (s *CoordinatorService) AcceptCall(ctx context.Context, by domain.UserID, ans domain.CallAnswer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller := ans.FromUserID
	st := s.stateOf(by)
	sess, ok := s.sessions[st.Session]

	valid := ok &&
		st.Status == domain.StatusRinging && st.Peer == caller &&
		s.stateOf(caller).Status == domain.StatusRinging &&
		sess.Phase == domain.PhaseRinging && sess.Has(by) && sess.Has(caller)
	if !valid {
		// Stale accept: the ring already timed out or the caller is gone.
		s.logger.Infow("invalid call accept", "by", by, "from", caller)
		s.sendLocked(by, domain.EventCallUnavailable, domain.CallUnavailable{Reason: domain.ReasonInvalid})
		return
	}

	sess.Phase = domain.PhaseInCall
	s.states[by] = domain.CallState{Status: domain.StatusInCall, Peer: caller, Session: sess.ID}
	s.states[caller] = domain.CallState{Status: domain.StatusInCall, Peer: by, Session: sess.ID}

	s.sendLocked(caller, domain.EventCallAccepted, domain.CallAccepted{ByUserID: by})

	s.logger.Infow("call accepted", "session_id", sess.ID, "by", by, "from", caller)
	if s.metrics != nil {
		s.metrics.CallAnswered()
	}
}

func (s *CoordinatorService) DeclineCall(ctx context.Context, by domain.UserID, ans domain.CallAnswer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller := ans.FromUserID
	if sess := s.sessionOfEitherLocked(by, caller); sess != nil {
		s.closeSessionLocked(sess, domain.OutcomeDeclined)
	}
	// Reset is unconditional, matching the idempotent decline semantics:
	// a duplicate or stale decline still lands both sides on idle.
	s.setIdleLocked(by)
	s.setIdleLocked(caller)

	s.logger.Infow("call declined", "by", by, "from", caller)
	s.sendLocked(caller, domain.EventCallDeclined, domain.CallDeclined{ByUserID: by})
}

func (s *CoordinatorService) EndCall(ctx context.Context, by domain.UserID, end domain.CallEnd) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess := s.sessionOfEitherLocked(by, end.ToUserID); sess != nil {
		outcome := domain.OutcomeCanceled
		if sess.Phase == domain.PhaseInCall {
			outcome = domain.OutcomeCompleted
		}
		s.closeSessionLocked(sess, outcome)
	}
	s.setIdleLocked(by)
	s.setIdleLocked(end.ToUserID)

	s.logger.Infow("call ended", "by", by, "to", end.ToUserID)
	// No reason field: a voluntary hangup is distinguishable from a
	// timeout or disconnect on the receiving side.
	s.sendLocked(end.ToUserID, domain.EventCallEnded, domain.CallEnded{ByUserID: by})
}

// Relay forwards an opaque negotiation payload to its addressee, stamped with
// the sender. It deliberately does not check that sender and target share an
// active session; any registered user may signal any other. Undeliverable
// payloads are dropped without feedback to the sender.
func (s *CoordinatorService) Relay(ctx context.Context, event string, from domain.UserID, sig domain.RelaySignal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, online := s.conns[sig.ToUserID]; !online {
		s.logger.Debugw("dropping signal for unregistered target", "event", event, "from", from, "to", sig.ToUserID)
		if s.metrics != nil {
			s.metrics.SignalDropped(event)
		}
		return
	}

	s.sendLocked(sig.ToUserID, event, domain.RelayForward{FromUserID: from, Payload: sig.Payload})
	if s.metrics != nil {
		s.metrics.SignalRelayed(event)
	}
}

func (s *CoordinatorService) BroadcastOnlineUsers(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastOnlineLocked()
}

func (s *CoordinatorService) Online() []domain.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserID, len(s.order))
	copy(out, s.order)
	return out
}

func (s *CoordinatorService) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *CoordinatorService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, conn := range s.conns {
		if err := conn.Close(); err != nil {
			s.logger.Debugw("error closing connection on shutdown", "user_id", userID, "error", err)
		}
	}
	s.conns = make(map[domain.UserID]ports.Conn)
	s.order = nil
	s.states = make(map[domain.UserID]domain.CallState)
	s.sessions = make(map[domain.SessionID]*domain.CallSession)
}

// --- internals, all callers hold mu ---

func (s *CoordinatorService) stateOf(userID domain.UserID) domain.CallState {
	if st, ok := s.states[userID]; ok {
		return st
	}
	return domain.CallState{Status: domain.StatusIdle}
}

func (s *CoordinatorService) setIdleLocked(userID domain.UserID) {
	s.states[userID] = domain.CallState{Status: domain.StatusIdle}
}

func (s *CoordinatorService) sessionOfEitherLocked(a, b domain.UserID) *domain.CallSession {
	if sess, ok := s.sessions[s.stateOf(a).Session]; ok && sess.Has(a) {
		return sess
	}
	if sess, ok := s.sessions[s.stateOf(b).Session]; ok && sess.Has(b) {
		return sess
	}
	return nil
}

func (s *CoordinatorService) closeSessionLocked(sess *domain.CallSession, outcome string) {
	delete(s.sessions, sess.ID)
	if s.metrics != nil {
		s.metrics.CallTerminated(outcome, sess.Phase == domain.PhaseInCall, time.Since(sess.CreatedAt))
	}
}

func (s *CoordinatorService) removeFromOrder(userID domain.UserID) {
	for i, id := range s.order {
		if id == userID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *CoordinatorService) sendLocked(to domain.UserID, event string, data interface{}) {
	conn, ok := s.conns[to]
	if !ok {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		s.logger.Errorw("failed to marshal outbound event", "event", event, "to", to, "error", err)
		return
	}
	if err := conn.WriteJSON(domain.Envelope{Event: event, Data: raw}); err != nil {
		// The read loop of the failing connection will observe the broken
		// transport and run the disconnect path; nothing to do here.
		s.logger.Warnw("failed to write to connection", "event", event, "to", to, "error", err)
	}
}

func (s *CoordinatorService) broadcastOnlineLocked() {
	users := make([]domain.UserID, len(s.order))
	copy(users, s.order)
	raw, err := json.Marshal(users)
	if err != nil {
		s.logger.Errorw("failed to marshal presence snapshot", "error", err)
		return
	}
	env := domain.Envelope{Event: domain.EventOnlineUsers, Data: raw}
	for userID, conn := range s.conns {
		if err := conn.WriteJSON(env); err != nil {
			s.logger.Warnw("failed to broadcast presence", "to", userID, "error", err)
		}
	}
}
