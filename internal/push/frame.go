package push

import (
	"encoding/json"
	"fmt"

	"github.com/fairyhunter13/marketplace-client/internal/model"
)

// ProtocolError reports a malformed inbound frame. Such frames are dropped
// and logged; they never crash the channel or change its state.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// frame is the wire shape of every inbound message.
type frame struct {
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// decodeFrame parses raw into a typed push event. ok is false for event
// names this client does not recognize; those are skipped silently so the
// server can add events without breaking older clients.
func decodeFrame(raw []byte) (ev model.PushEvent, ok bool, err error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return model.PushEvent{}, false, &ProtocolError{Reason: "invalid json", Err: err}
	}
	switch f.Event {
	case model.EventProductCreated:
		var p model.ProductCreatedPayload
		if len(f.Data) > 0 {
			if err := json.Unmarshal(f.Data, &p); err != nil {
				return model.PushEvent{}, false, &ProtocolError{Reason: "invalid product_created payload", Err: err}
			}
		}
		return model.PushEvent{Name: f.Event, Message: f.Message, ProductCreated: &p}, true, nil
	case model.EventOrderUpdated:
		var p model.OrderUpdatedPayload
		if len(f.Data) > 0 {
			if err := json.Unmarshal(f.Data, &p); err != nil {
				return model.PushEvent{}, false, &ProtocolError{Reason: "invalid order_updated payload", Err: err}
			}
		}
		return model.PushEvent{Name: f.Event, Message: f.Message, OrderUpdated: &p}, true, nil
	default:
		return model.PushEvent{}, false, nil
	}
}
