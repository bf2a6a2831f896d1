package sessions

import (
	"math/big"
)

// SessionStatus represents the lifecycle states of a session. Transitions are
// strictly monotonic: Scheduled -> Live -> Completed, with
// Scheduled -> Cancelled as the alternate terminal branch.
type SessionStatus uint8

const (
	SessionScheduled SessionStatus = iota
	SessionLive
	SessionCompleted
	SessionCancelled
)

// Valid reports whether the status value is within the supported range.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionScheduled, SessionLive, SessionCompleted, SessionCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status admits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// step.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	switch s {
	case SessionScheduled:
		return next == SessionLive || next == SessionCancelled
	case SessionLive:
		return next == SessionCompleted
	default:
		return false
	}
}

func (s SessionStatus) String() string {
	switch s {
	case SessionScheduled:
		return "scheduled"
	case SessionLive:
		return "live"
	case SessionCompleted:
		return "completed"
	case SessionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// YieldSnapshot is the per-session settlement result recorded at completion.
// Distributed plus Retained always equals Total; Retained absorbs integer
// flooring dust from the pro-rata split.
type YieldSnapshot struct {
	PoolID      [32]byte
	Total       *big.Int
	Distributed *big.Int
	Retained    *big.Int
}

// Clone returns a deep copy of the snapshot.
func (y *YieldSnapshot) Clone() *YieldSnapshot {
	if y == nil {
		return nil
	}
	clone := *y
	clone.Total = cloneBigInt(y.Total)
	clone.Distributed = cloneBigInt(y.Distributed)
	clone.Retained = cloneBigInt(y.Retained)
	return &clone
}

// Session captures the metadata, stake accounting and runtime status of a
// single talk session. The identifier is the keccak256 hash of the speaker,
// the title and the speaker's hosted-session counter, ensuring deterministic
// IDs without a separate sequence allocator.
type Session struct {
	ID               [32]byte
	Speaker          [20]byte
	Title            string
	BaseStake        *big.Int
	StakeRequirement *big.Int
	MaxParticipants  uint32
	ParticipantCount uint32
	StartTime        uint64
	Duration         uint64
	TotalStaked      *big.Int
	ListenerRewards  *big.Int
	Status           SessionStatus
	PoolID           [32]byte
	MetadataRef      string
	CreatedAt        uint64
	Yield            *YieldSnapshot
}

// Clone returns a deep copy of the session so callers can safely mutate the
// copy without affecting the stored instance.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	clone.BaseStake = cloneBigInt(s.BaseStake)
	clone.StakeRequirement = cloneBigInt(s.StakeRequirement)
	clone.TotalStaked = cloneBigInt(s.TotalStaked)
	clone.ListenerRewards = cloneBigInt(s.ListenerRewards)
	clone.Yield = s.Yield.Clone()
	return &clone
}

// HasPool reports whether the session is linked to a yield pool.
func (s *Session) HasPool() bool {
	return s != nil && s.PoolID != ([32]byte{})
}

// Participant records one listener's seat in a session. The record survives
// settlement: PayoutClaimed flips instead of the row being deleted so the
// audit history stays intact.
type Participant struct {
	Session       [32]byte
	Listener      [20]byte
	StakeAmount   *big.Int
	JoinedAt      uint64
	PayoutClaimed bool
}

// Clone returns a deep copy of the participant record.
func (p *Participant) Clone() *Participant {
	if p == nil {
		return nil
	}
	clone := *p
	clone.StakeAmount = cloneBigInt(p.StakeAmount)
	return &clone
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
