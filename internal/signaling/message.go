package signaling

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
)

// Message is the envelope for all websocket traffic between client and
// server. Payload is kept raw so the envelope can be relayed without
// the server understanding every payload shape.
type Message struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"room_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants.
const (
	TypeJoin         = "join"
	TypeRoomInfo     = "room_info"
	TypeUserJoined   = "user_joined"
	TypeUserLeft     = "user_left"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypeError        = "error"
)

// RoomInfoPayload is the initial membership snapshot sent by the server
// right after a join. ActiveUsers includes the joining client.
type RoomInfoPayload struct {
	ActiveUsers int    `json:"active_users"`
	Name        string `json:"name,omitempty"`
}

// PresencePayload carries the authoritative total after a membership change.
type PresencePayload struct {
	TotalUsers int `json:"total_users"`
}

// OfferPayload carries an SDP offer.
type OfferPayload struct {
	Offer webrtc.SessionDescription `json:"offer"`
}

// AnswerPayload carries an SDP answer.
type AnswerPayload struct {
	Answer webrtc.SessionDescription `json:"answer"`
}

// CandidatePayload carries one trickled ICE candidate.
type CandidatePayload struct {
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

// ErrorPayload represents error messages from the server.
type ErrorPayload struct {
	Error string `json:"error"`
}

// NewMessage creates a Message with the given type and payload.
func NewMessage(t string, payload any) (*Message, error) {
	if payload == nil {
		return &Message{Type: t}, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: t, Payload: b}, nil
}

// DecodePayload decodes the message payload into the provided struct.
func (m *Message) DecodePayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}
