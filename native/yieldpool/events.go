package yieldpool

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"stakespeaks/core/types"
)

const (
	// EventTypePoolCreated is emitted when a pool is registered.
	EventTypePoolCreated = "yieldpool.created"
	// EventTypePoolDeposited is emitted on principal deposits.
	EventTypePoolDeposited = "yieldpool.deposited"
	// EventTypePoolAccrued is emitted when interest compounds into principal.
	EventTypePoolAccrued = "yieldpool.accrued"
	// EventTypePoolWithdrawn is emitted on operator withdrawals.
	EventTypePoolWithdrawn = "yieldpool.withdrawn"
	// EventTypeSessionSettled is emitted when a completed session's yield is
	// distributed.
	EventTypeSessionSettled = "yieldpool.sessionSettled"
)

type poolEvent struct {
	evt *types.Event
}

func (e poolEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e poolEvent) Event() *types.Event { return e.evt }

// WrapEvent adapts a raw event payload to the events.Event interface.
func WrapEvent(evt *types.Event) poolEvent { return poolEvent{evt: evt} }

func hexID(id [32]byte) string  { return "0x" + hex.EncodeToString(id[:]) }
func hexAddr(a [20]byte) string { return "0x" + hex.EncodeToString(a[:]) }

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// PoolCreatedEvent returns the canonical payload for pool creation.
func PoolCreatedEvent(p *Pool) *types.Event {
	attrs := map[string]string{}
	if p != nil {
		attrs["pool"] = hexID(p.ID)
		attrs["name"] = p.Name
		attrs["token"] = p.Token
		attrs["rateBps"] = strconv.FormatUint(uint64(p.RateBps), 10)
	}
	return &types.Event{Type: EventTypePoolCreated, Attributes: attrs}
}

// PoolDepositedEvent returns the canonical payload for a deposit.
func PoolDepositedEvent(p *Pool, from [20]byte, deposited *big.Int) *types.Event {
	attrs := map[string]string{
		"from":   hexAddr(from),
		"amount": amount(deposited),
	}
	if p != nil {
		attrs["pool"] = hexID(p.ID)
		attrs["principal"] = amount(p.Principal)
	}
	return &types.Event{Type: EventTypePoolDeposited, Attributes: attrs}
}

// PoolAccruedEvent returns the canonical payload for an accrual.
func PoolAccruedEvent(p *Pool, interest *big.Int) *types.Event {
	attrs := map[string]string{
		"interest": amount(interest),
	}
	if p != nil {
		attrs["pool"] = hexID(p.ID)
		attrs["principal"] = amount(p.Principal)
		attrs["lastAccrual"] = strconv.FormatUint(p.LastAccrual, 10)
	}
	return &types.Event{Type: EventTypePoolAccrued, Attributes: attrs}
}

// PoolWithdrawnEvent returns the canonical payload for a withdrawal.
func PoolWithdrawnEvent(p *Pool, to [20]byte, withdrawn *big.Int) *types.Event {
	attrs := map[string]string{
		"to":     hexAddr(to),
		"amount": amount(withdrawn),
	}
	if p != nil {
		attrs["pool"] = hexID(p.ID)
		attrs["principal"] = amount(p.Principal)
	}
	return &types.Event{Type: EventTypePoolWithdrawn, Attributes: attrs}
}

// SessionSettledEvent returns the canonical payload for a session settlement.
func SessionSettledEvent(p *Pool, session [32]byte, s *Settlement) *types.Event {
	attrs := map[string]string{
		"session": hexID(session),
	}
	if p != nil {
		attrs["pool"] = hexID(p.ID)
	}
	if s != nil {
		attrs["yield"] = amount(s.Total)
		attrs["distributed"] = amount(s.Distributed)
		attrs["retained"] = amount(s.Retained)
		attrs["funded"] = strconv.FormatBool(s.Funded)
	}
	return &types.Event{Type: EventTypeSessionSettled, Attributes: attrs}
}
