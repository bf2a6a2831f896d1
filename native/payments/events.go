package payments

import (
	"encoding/hex"
	"strconv"

	"stakespeaks/core/types"
)

const (
	// EventTypeSuperchatSent is emitted for every settled superchat.
	EventTypeSuperchatSent = "payments.superchatSent"
)

type paymentEvent struct {
	evt *types.Event
}

func (e paymentEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e paymentEvent) Event() *types.Event { return e.evt }

// WrapEvent adapts a raw event payload to the events.Event interface.
func WrapEvent(evt *types.Event) paymentEvent { return paymentEvent{evt: evt} }

// SuperchatSentEvent returns the canonical payload for a superchat.
func SuperchatSentEvent(s *Superchat) *types.Event {
	attrs := map[string]string{}
	if s != nil {
		attrs["sender"] = "0x" + hex.EncodeToString(s.Sender[:])
		attrs["speaker"] = "0x" + hex.EncodeToString(s.Speaker[:])
		attrs["sequence"] = strconv.FormatUint(s.Sequence, 10)
		attrs["gross"] = s.Gross.String()
		attrs["fee"] = s.Fee.String()
		attrs["speakerPayout"] = s.SpeakerPayout.String()
		attrs["listenerShare"] = s.ListenerShare.String()
		attrs["attributed"] = strconv.FormatBool(s.Attributed())
		if s.Attributed() {
			attrs["session"] = "0x" + hex.EncodeToString(s.Session[:])
		}
	}
	return &types.Event{Type: EventTypeSuperchatSent, Attributes: attrs}
}
