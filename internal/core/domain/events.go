package domain

import "encoding/json"

// Envelope is the framing for every message exchanged over a hub connection,
// in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound event names (client -> hub).
const (
	EventGetOnlineUsers = "getOnlineUsers"
	EventCallRequest    = "call:request"
	EventCallAccept     = "call:accept"
	EventCallDecline    = "call:decline"
	EventCallEnd        = "call:end"
	EventWebRTCOffer    = "webrtc:offer"
	EventWebRTCAnswer   = "webrtc:answer"
	EventWebRTCICE      = "webrtc:ice-candidate"
)

// Outbound event names (hub -> client). The webrtc:* names are shared: a relay
// message leaves the hub under the same event it arrived with.
const (
	EventOnlineUsers     = "onlineUsers"
	EventCallRinging     = "call:ringing"
	EventCallAccepted    = "call:accepted"
	EventCallDeclined    = "call:declined"
	EventCallEnded       = "call:ended"
	EventCallUnavailable = "call:unavailable"
)

// Rejection reasons carried by call:unavailable and call:ended.
const (
	ReasonOffline      = "offline"
	ReasonBusy         = "busy"
	ReasonInvalid      = "invalid"
	ReasonTimeout      = "timeout"
	ReasonDisconnected = "disconnected"
)

// CallRequest asks the hub to ring another user. FullName and ProfilePic are
// passed through to the callee so its UI can render the caller without a
// profile lookup.
type CallRequest struct {
	ToUserID   UserID   `json:"toUserId"`
	CallType   CallType `json:"callType"`
	FullName   string   `json:"fullName"`
	ProfilePic string   `json:"profilePic"`
}

// CallAnswer is the payload of call:accept and call:decline, sent by the
// callee and naming the original caller.
type CallAnswer struct {
	FromUserID UserID `json:"fromUserId"`
}

// CallEnd is a voluntary hangup by either party of an active session.
type CallEnd struct {
	ToUserID UserID `json:"toUserId"`
}

// RelaySignal addresses an opaque negotiation payload to another user. The
// hub never inspects Payload.
type RelaySignal struct {
	ToUserID UserID          `json:"toUserId"`
	Payload  json.RawMessage `json:"payload"`
}

// CallRinging notifies the callee of an incoming call.
type CallRinging struct {
	FromUserID UserID   `json:"fromUserId"`
	CallType   CallType `json:"callType"`
	FullName   string   `json:"fullName"`
	ProfilePic string   `json:"profilePic"`
}

type CallAccepted struct {
	ByUserID UserID `json:"byUserId"`
}

type CallDeclined struct {
	ByUserID UserID `json:"byUserId"`
}

// CallEnded reports a terminal transition. Reason is empty for a voluntary
// hangup, "timeout" for ring expiry and "disconnected" for peer loss.
type CallEnded struct {
	ByUserID UserID `json:"byUserId"`
	Reason   string `json:"reason,omitempty"`
}

type CallUnavailable struct {
	Reason string `json:"reason"`
}

// RelayForward is the delivered form of a RelaySignal, stamped with the
// sender's identity.
type RelayForward struct {
	FromUserID UserID          `json:"fromUserId"`
	Payload    json.RawMessage `json:"payload"`
}
