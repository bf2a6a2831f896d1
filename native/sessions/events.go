package sessions

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"stakespeaks/core/types"
)

const (
	// EventTypeSessionCreated is emitted when a session enters Scheduled.
	EventTypeSessionCreated = "sessions.created"
	// EventTypeSessionJoined is emitted when a listener reserves a seat.
	EventTypeSessionJoined = "sessions.joined"
	// EventTypeSessionStarted is emitted on the Scheduled -> Live transition.
	EventTypeSessionStarted = "sessions.started"
	// EventTypeSessionCompleted is emitted on the Live -> Completed transition.
	EventTypeSessionCompleted = "sessions.completed"
	// EventTypeSessionCancelled is emitted on the Scheduled -> Cancelled
	// transition.
	EventTypeSessionCancelled = "sessions.cancelled"
)

type sessionEvent struct {
	evt *types.Event
}

func (e sessionEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e sessionEvent) Event() *types.Event { return e.evt }

// WrapEvent adapts a raw event payload to the events.Event interface.
func WrapEvent(evt *types.Event) sessionEvent { return sessionEvent{evt: evt} }

func hexID(id [32]byte) string  { return "0x" + hex.EncodeToString(id[:]) }
func hexAddr(a [20]byte) string { return "0x" + hex.EncodeToString(a[:]) }

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// SessionCreatedEvent returns the canonical payload for session creation.
func SessionCreatedEvent(s *Session) *types.Event {
	attrs := map[string]string{}
	if s != nil {
		attrs["session"] = hexID(s.ID)
		attrs["speaker"] = hexAddr(s.Speaker)
		attrs["title"] = s.Title
		attrs["baseStake"] = amount(s.BaseStake)
		attrs["stakeRequirement"] = amount(s.StakeRequirement)
		attrs["maxParticipants"] = strconv.FormatUint(uint64(s.MaxParticipants), 10)
		attrs["startTime"] = strconv.FormatUint(s.StartTime, 10)
		if s.HasPool() {
			attrs["pool"] = hexID(s.PoolID)
		}
	}
	return &types.Event{Type: EventTypeSessionCreated, Attributes: attrs}
}

// SessionJoinedEvent returns the canonical payload for a roster join.
func SessionJoinedEvent(s *Session, listener [20]byte, stake *big.Int) *types.Event {
	attrs := map[string]string{
		"listener": hexAddr(listener),
		"stake":    amount(stake),
	}
	if s != nil {
		attrs["session"] = hexID(s.ID)
		attrs["totalStaked"] = amount(s.TotalStaked)
		attrs["participants"] = strconv.FormatUint(uint64(s.ParticipantCount), 10)
	}
	return &types.Event{Type: EventTypeSessionJoined, Attributes: attrs}
}

// SessionStartedEvent returns the canonical payload for the Live transition.
func SessionStartedEvent(s *Session) *types.Event {
	attrs := map[string]string{}
	if s != nil {
		attrs["session"] = hexID(s.ID)
		attrs["speaker"] = hexAddr(s.Speaker)
	}
	return &types.Event{Type: EventTypeSessionStarted, Attributes: attrs}
}

// SessionCompletedEvent returns the canonical payload for completion,
// including the final yield snapshot.
func SessionCompletedEvent(s *Session) *types.Event {
	attrs := map[string]string{}
	if s != nil {
		attrs["session"] = hexID(s.ID)
		attrs["speaker"] = hexAddr(s.Speaker)
		attrs["totalStaked"] = amount(s.TotalStaked)
		if s.MetadataRef != "" {
			attrs["metadataRef"] = s.MetadataRef
		}
		if s.Yield != nil {
			attrs["yieldTotal"] = amount(s.Yield.Total)
			attrs["yieldDistributed"] = amount(s.Yield.Distributed)
			attrs["yieldRetained"] = amount(s.Yield.Retained)
		}
	}
	return &types.Event{Type: EventTypeSessionCompleted, Attributes: attrs}
}

// SessionCancelledEvent returns the canonical payload for cancellation.
func SessionCancelledEvent(s *Session) *types.Event {
	attrs := map[string]string{}
	if s != nil {
		attrs["session"] = hexID(s.ID)
		attrs["speaker"] = hexAddr(s.Speaker)
		attrs["refunded"] = amount(s.TotalStaked)
	}
	return &types.Event{Type: EventTypeSessionCancelled, Attributes: attrs}
}
