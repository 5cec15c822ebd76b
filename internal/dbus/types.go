package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/chime/internal/model"
)

const (
	// DBusInterface is the chime interface name.
	DBusInterface = "io.github.jmylchreest.Chime"
	// DBusPath is the chime object path.
	DBusPath = "/io/github/jmylchreest/Chime"
	// DBusBusName is the bus name to claim.
	DBusBusName = "io.github.jmylchreest.Chime"

	// ErrorUnknownKind is returned for kinds outside the closed set.
	ErrorUnknownKind = DBusInterface + ".Error.UnknownKind"
	// ErrorInvalidArgument is returned for malformed payloads and refs.
	ErrorInvalidArgument = DBusInterface + ".Error.InvalidArgument"
	// ErrorFailed is returned when the daemon could not complete a request.
	ErrorFailed = DBusInterface + ".Error.Failed"
)

// Hint keys understood by Notify.
const (
	HintSuppressWhenUnfocused = "suppress-when-unfocused"
	HintHasFocus              = "has-focus"
)

// NotifyRequest represents an incoming Notify call.
type NotifyRequest struct {
	Kind    string
	Ref     string
	Account string
	Payload map[string]dbus.Variant
	Hints   map[string]dbus.Variant
}

// SuppressWhenUnfocused extracts the suppress-when-unfocused hint.
// Returns nil if not specified.
func (r *NotifyRequest) SuppressWhenUnfocused() *bool {
	return boolHint(r.Hints, HintSuppressWhenUnfocused)
}

// HasFocus extracts the has-focus hint. Returns nil if not specified.
func (r *NotifyRequest) HasFocus() *bool {
	return boolHint(r.Hints, HintHasFocus)
}

func boolHint(hints map[string]dbus.Variant, key string) *bool {
	if v, ok := hints[key]; ok {
		if b, ok := v.Value().(bool); ok {
			return &b
		}
	}
	return nil
}

// Event converts the request into a NotificationEvent.
func (r *NotifyRequest) Event() (model.NotificationEvent, error) {
	kind, err := model.ParseKind(r.Kind)
	if err != nil {
		return model.NotificationEvent{}, err
	}

	payload, err := ConvertPayload(r.Payload)
	if err != nil {
		return model.NotificationEvent{}, err
	}

	event, err := model.NewEvent(kind, r.Ref, payload)
	if err != nil {
		return model.NotificationEvent{}, err
	}
	return event.WithAccount(r.Account), nil
}

// ConvertPayload unwraps variants into primitive values. Arrays, dicts,
// structs and nested variants are rejected.
func ConvertPayload(in map[string]dbus.Variant) (model.Payload, error) {
	if len(in) == 0 {
		return nil, nil
	}

	out := make(model.Payload, len(in))
	for key, v := range in {
		switch val := v.Value().(type) {
		case string, bool, byte, int16, uint16, int32, uint32, int64, uint64, float64:
			out[key] = val
		default:
			return nil, fmt.Errorf("%w: key %q has D-Bus type %s", model.ErrInvalidPayload, key, v.Signature())
		}
	}
	return out, nil
}
