package chat

import (
	"encoding/json"
	"fmt"
)

// EventKind is the set of realtime events carried over a live connection.
// Names are part of the wire contract with the web client.
type EventKind string

const (
	EventNewMessage  EventKind = "newMessage"
	EventTyping      EventKind = "typing"
	EventStopTyping  EventKind = "stopTyping"
	EventOnlineUsers EventKind = "getOnlineUsers"
)

// Frame is the envelope for every event in both directions.
type Frame struct {
	Event EventKind       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TypingRequest is what the client sends for typing/stopTyping.
type TypingRequest struct {
	ReceiverID string `json:"receiverId"`
}

// TypingNotice is what the peer receives for typing/stopTyping.
type TypingNotice struct {
	SenderID string `json:"senderId"`
}

// MarshalFrame builds a wire frame for an outbound event.
func MarshalFrame(kind EventKind, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return json.Marshal(Frame{Event: kind, Data: data})
}

// ParseFrame decodes an inbound client frame. Unknown events are returned
// as-is; the read loop decides what to skip.
func ParseFrame(raw []byte) (*Frame, error) {
	frame := &Frame{}
	if err := json.Unmarshal(raw, frame); err != nil {
		return nil, fmt.Errorf("unmarshal frame failed: %w", err)
	}
	if frame.Event == "" {
		return nil, fmt.Errorf("frame missing event")
	}
	return frame, nil
}

// ParseTypingRequest decodes the data part of a typing/stopTyping frame.
func ParseTypingRequest(frame *Frame) (*TypingRequest, error) {
	req := &TypingRequest{}
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, req); err != nil {
			return nil, fmt.Errorf("unmarshal %s data: %w", frame.Event, err)
		}
	}
	if req.ReceiverID == "" {
		return nil, fmt.Errorf("%s frame missing receiverId", frame.Event)
	}
	return req, nil
}
