package ports

import (
	"context"
	"time"

	"wavelink/internal/core/domain"
)

// Conn is the server-side handle of one live bidirectional link to a client.
// *websocket.Conn satisfies it; tests substitute an in-memory fake.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Coordinator is the serialized hub owning presence and call state. Every
// method runs to completion under the hub's single writer lock; none of them
// block on external operations.
type Coordinator interface {
	// Connect registers conn under userID, replacing any previous mapping,
	// and broadcasts the new presence snapshot. It fails only on an absent
	// or sentinel identity.
	Connect(ctx context.Context, userID domain.UserID, conn Conn) error

	// Disconnect reconciles the loss of conn: guarded registry removal,
	// termination of any call the user was part of, presence re-broadcast.
	// A handle already replaced by a newer connection is a no-op.
	Disconnect(ctx context.Context, userID domain.UserID, conn Conn)

	// BroadcastOnlineUsers pushes the presence snapshot to every connection.
	BroadcastOnlineUsers(ctx context.Context)

	RequestCall(ctx context.Context, from domain.UserID, req domain.CallRequest)
	AcceptCall(ctx context.Context, by domain.UserID, ans domain.CallAnswer)
	DeclineCall(ctx context.Context, by domain.UserID, ans domain.CallAnswer)
	EndCall(ctx context.Context, by domain.UserID, end domain.CallEnd)

	// Relay forwards an opaque negotiation payload under the given event
	// name, stamped with the sender. Undeliverable payloads are dropped.
	Relay(ctx context.Context, event string, from domain.UserID, sig domain.RelaySignal)

	// Online returns the registered user identifiers in insertion order.
	Online() []domain.UserID

	// ConnectionCount returns the number of registered connections.
	ConnectionCount() int

	// Shutdown closes every registered connection.
	Shutdown()
}

// Metrics receives coordinator state changes. Implemented by the Prometheus
// collector; a nil Metrics disables instrumentation.
type Metrics interface {
	UserConnected(online int)
	UserDisconnected(online int)
	CallRinging()
	CallAnswered()
	CallTerminated(outcome string, answered bool, duration time.Duration)
	SignalRelayed(event string)
	SignalDropped(event string)
}
