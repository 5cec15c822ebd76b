// Package model defines the core data structures for chime.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind identifies what a notification event is about.
type Kind string

// The closed set of notification kinds.
const (
	KindFriendRequestReceived Kind = "friend_request_received"
	KindFriendRequestAccepted Kind = "friend_request_accepted"
	KindDMMessage             Kind = "dm_message"
	KindChannelMention        Kind = "channel_mention"
	KindSystem                Kind = "system"
)

// Kinds returns every known kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindFriendRequestReceived,
		KindFriendRequestAccepted,
		KindDMMessage,
		KindChannelMention,
		KindSystem,
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindFriendRequestReceived, KindFriendRequestAccepted, KindDMMessage, KindChannelMention, KindSystem:
		return true
	default:
		return false
	}
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	return string(k)
}

// Validation errors.
var (
	ErrUnknownKind    = errors.New("unknown notification kind")
	ErrInvalidPayload = errors.New("payload values must be string, bool, integer or float")
)

// ParseKind converts a wire name into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Payload carries display-only fields of an event. Values are primitives.
type Payload map[string]any

// NotificationEvent is one candidate notification. It is never mutated after
// construction; the payload is copied on the way in.
type NotificationEvent struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Ref        string    `json:"ref,omitempty"`     // Conversation or channel, used for mutes
	Account    string    `json:"account,omitempty"` // Local account the event belongs to
	Payload    Payload   `json:"payload,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// NewEvent creates a NotificationEvent with a generated ULID.
func NewEvent(kind Kind, ref string, payload Payload) (NotificationEvent, error) {
	if !kind.Valid() {
		return NotificationEvent{}, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}

	copied, err := copyPayload(payload)
	if err != nil {
		return NotificationEvent{}, err
	}

	now := time.Now()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return NotificationEvent{}, fmt.Errorf("failed to generate ULID: %w", err)
	}

	return NotificationEvent{
		ID:         id.String(),
		Kind:       kind,
		Ref:        ref,
		Payload:    copied,
		ReceivedAt: now,
	}, nil
}

// WithAccount returns a copy of the event bound to the given account.
func (e NotificationEvent) WithAccount(account string) NotificationEvent {
	e.Account = account
	return e
}

// Text returns the payload value for key as a string, or "" when absent.
func (e NotificationEvent) Text(key string) string {
	v, ok := e.Payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func copyPayload(p Payload) (Payload, error) {
	if len(p) == 0 {
		return nil, nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		if !isPrimitive(v) {
			return nil, fmt.Errorf("%w: key %q has %T", ErrInvalidPayload, k, v)
		}
		out[k] = v
	}
	return out, nil
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}
