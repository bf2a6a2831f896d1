package reputation

import (
	"encoding/hex"
	"strconv"

	"stakespeaks/core/types"
)

const (
	// EventTypeSpeakerRegistered is emitted when a speaker enters the ledger.
	EventTypeSpeakerRegistered = "reputation.speakerRegistered"
	// EventTypeSessionRated is emitted when a participant rates a session.
	EventTypeSessionRated = "reputation.sessionRated"
)

type reputationEvent struct {
	evt *types.Event
}

func (e reputationEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e reputationEvent) Event() *types.Event { return e.evt }

// WrapEvent adapts a raw event payload to the events.Event interface.
func WrapEvent(evt *types.Event) reputationEvent { return reputationEvent{evt: evt} }

// SpeakerRegisteredEvent returns the canonical payload for a registration.
func SpeakerRegisteredEvent(speaker [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeSpeakerRegistered,
		Attributes: map[string]string{
			"speaker": "0x" + hex.EncodeToString(speaker[:]),
		},
	}
}

// SessionRatedEvent returns the canonical payload for a rating submission.
func SessionRatedEvent(session [32]byte, rater, speaker [20]byte, value, average uint32) *types.Event {
	return &types.Event{
		Type: EventTypeSessionRated,
		Attributes: map[string]string{
			"session": "0x" + hex.EncodeToString(session[:]),
			"rater":   "0x" + hex.EncodeToString(rater[:]),
			"speaker": "0x" + hex.EncodeToString(speaker[:]),
			"value":   strconv.FormatUint(uint64(value), 10),
			"average": strconv.FormatUint(uint64(average), 10),
		},
	}
}
