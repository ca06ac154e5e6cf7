package domain

import (
	"time"

	"github.com/google/uuid"
)

type CallType string

const (
	CallTypeAudio CallType = "audio"
	CallTypeVideo CallType = "video"
)

type CallStatus string

const (
	StatusIdle    CallStatus = "idle"
	StatusRinging CallStatus = "ringing"
	StatusInCall  CallStatus = "in-call"
)

// SessionID identifies one logical call session across both participants.
type SessionID = uuid.UUID

// CallState is the per-user half of a call session. Peer and Session are zero
// whenever Status is idle.
type CallState struct {
	Status  CallStatus
	Peer    UserID
	Session SessionID
}

// Idle reports whether the user currently participates in no session.
func (s CallState) Idle() bool {
	return s.Status == StatusIdle
}

// Busy reports whether the user is ringing or in an active call.
func (s CallState) Busy() bool {
	return s.Status == StatusRinging || s.Status == StatusInCall
}

type CallPhase string

const (
	PhaseRinging CallPhase = "ringing"
	PhaseInCall  CallPhase = "in-call"
)

// CallSession pairs two users from call:request until a terminal transition.
// Both participants' CallState reference it by ID, which makes the pair
// symmetry structural instead of an invariant to re-check.
type CallSession struct {
	ID        SessionID
	Caller    UserID
	Callee    UserID
	Type      CallType
	Phase     CallPhase
	CreatedAt time.Time
}

// Other returns the opposite participant of u.
func (s *CallSession) Other(u UserID) UserID {
	if u == s.Caller {
		return s.Callee
	}
	return s.Caller
}

// Has reports whether u is one of the two participants.
func (s *CallSession) Has(u UserID) bool {
	return u == s.Caller || u == s.Callee
}

// Terminal outcomes of a call session, used for logging and metrics.
const (
	OutcomeCompleted    = "completed"
	OutcomeCanceled     = "canceled"
	OutcomeDeclined     = "declined"
	OutcomeTimeout      = "timeout"
	OutcomeDisconnected = "disconnected"
)
