package state

import (
	"fmt"
	"math/big"

	"stakespeaks/native/sessions"
)

var (
	sessionPrefix            = []byte("sessions/session/")
	sessionRosterPrefix      = []byte("sessions/roster/")
	sessionParticipantPrefix = []byte("sessions/participant/")
	sessionHostedPrefix      = []byte("sessions/hosted/")
	sessionLivePrefix        = []byte("sessions/live/")
)

func sessionKey(id [32]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", sessionPrefix, id))
}

func sessionRosterKey(id [32]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", sessionRosterPrefix, id))
}

func sessionParticipantKey(id [32]byte, listener [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x/%x", sessionParticipantPrefix, id, listener))
}

func sessionHostedKey(speaker [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", sessionHostedPrefix, speaker))
}

func sessionLiveKey(speaker [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", sessionLivePrefix, speaker))
}

type storedSession struct {
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
	Status           uint8
	PoolID           [32]byte
	MetadataRef      string
	CreatedAt        uint64
	YieldSettled     bool
	YieldPool        [32]byte
	YieldTotal       *big.Int
	YieldDistributed *big.Int
	YieldRetained    *big.Int
}

type storedParticipant struct {
	Session       [32]byte
	Listener      [20]byte
	StakeAmount   *big.Int
	JoinedAt      uint64
	PayoutClaimed bool
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// SessionGet loads a session record.
func (m *Manager) SessionGet(id [32]byte) (*sessions.Session, bool, error) {
	var stored storedSession
	ok, err := m.KVGet(sessionKey(id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	session := &sessions.Session{
		ID:               stored.ID,
		Speaker:          stored.Speaker,
		Title:            stored.Title,
		BaseStake:        nonNil(stored.BaseStake),
		StakeRequirement: nonNil(stored.StakeRequirement),
		MaxParticipants:  stored.MaxParticipants,
		ParticipantCount: stored.ParticipantCount,
		StartTime:        stored.StartTime,
		Duration:         stored.Duration,
		TotalStaked:      nonNil(stored.TotalStaked),
		ListenerRewards:  nonNil(stored.ListenerRewards),
		Status:           sessions.SessionStatus(stored.Status),
		PoolID:           stored.PoolID,
		MetadataRef:      stored.MetadataRef,
		CreatedAt:        stored.CreatedAt,
	}
	if stored.YieldSettled {
		session.Yield = &sessions.YieldSnapshot{
			PoolID:      stored.YieldPool,
			Total:       nonNil(stored.YieldTotal),
			Distributed: nonNil(stored.YieldDistributed),
			Retained:    nonNil(stored.YieldRetained),
		}
	}
	return session, true, nil
}

// SessionPut persists a session record.
func (m *Manager) SessionPut(session *sessions.Session) error {
	if session == nil {
		return fmt.Errorf("state: session required")
	}
	stored := storedSession{
		ID:               session.ID,
		Speaker:          session.Speaker,
		Title:            session.Title,
		BaseStake:        nonNil(session.BaseStake),
		StakeRequirement: nonNil(session.StakeRequirement),
		MaxParticipants:  session.MaxParticipants,
		ParticipantCount: session.ParticipantCount,
		StartTime:        session.StartTime,
		Duration:         session.Duration,
		TotalStaked:      nonNil(session.TotalStaked),
		ListenerRewards:  nonNil(session.ListenerRewards),
		Status:           uint8(session.Status),
		PoolID:           session.PoolID,
		MetadataRef:      session.MetadataRef,
		CreatedAt:        session.CreatedAt,
		YieldTotal:       big.NewInt(0),
		YieldDistributed: big.NewInt(0),
		YieldRetained:    big.NewInt(0),
	}
	if session.Yield != nil {
		stored.YieldSettled = true
		stored.YieldPool = session.Yield.PoolID
		stored.YieldTotal = nonNil(session.Yield.Total)
		stored.YieldDistributed = nonNil(session.Yield.Distributed)
		stored.YieldRetained = nonNil(session.Yield.Retained)
	}
	return m.KVPut(sessionKey(session.ID), &stored)
}

// SessionParticipantGet loads one roster entry.
func (m *Manager) SessionParticipantGet(id [32]byte, listener [20]byte) (*sessions.Participant, bool, error) {
	var stored storedParticipant
	ok, err := m.KVGet(sessionParticipantKey(id, listener), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &sessions.Participant{
		Session:       stored.Session,
		Listener:      stored.Listener,
		StakeAmount:   nonNil(stored.StakeAmount),
		JoinedAt:      stored.JoinedAt,
		PayoutClaimed: stored.PayoutClaimed,
	}, true, nil
}

// SessionParticipantPut persists one roster entry and maintains the join
// order index.
func (m *Manager) SessionParticipantPut(participant *sessions.Participant) error {
	if participant == nil {
		return fmt.Errorf("state: participant required")
	}
	stored := storedParticipant{
		Session:       participant.Session,
		Listener:      participant.Listener,
		StakeAmount:   nonNil(participant.StakeAmount),
		JoinedAt:      participant.JoinedAt,
		PayoutClaimed: participant.PayoutClaimed,
	}
	if err := m.KVPut(sessionParticipantKey(participant.Session, participant.Listener), &stored); err != nil {
		return err
	}
	return m.KVAppend(sessionRosterKey(participant.Session), participant.Listener[:])
}

// SessionParticipants returns the roster in join order.
func (m *Manager) SessionParticipants(id [32]byte) ([]*sessions.Participant, error) {
	listeners, err := m.KVList(sessionRosterKey(id))
	if err != nil {
		return nil, err
	}
	roster := make([]*sessions.Participant, 0, len(listeners))
	for _, raw := range listeners {
		if len(raw) != 20 {
			return nil, fmt.Errorf("state: malformed roster entry for session %x", id)
		}
		var listener [20]byte
		copy(listener[:], raw)
		participant, ok, err := m.SessionParticipantGet(id, listener)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("state: roster entry missing participant record for session %x", id)
		}
		roster = append(roster, participant)
	}
	return roster, nil
}

// SessionHostedCount returns how many sessions the speaker has created.
func (m *Manager) SessionHostedCount(speaker [20]byte) (uint64, error) {
	var count uint64
	if _, err := m.KVGet(sessionHostedKey(speaker), &count); err != nil {
		return 0, err
	}
	return count, nil
}

// SessionSetHostedCount stores the speaker's session counter.
func (m *Manager) SessionSetHostedCount(speaker [20]byte, count uint64) error {
	return m.KVPut(sessionHostedKey(speaker), count)
}

// SessionLiveGet returns the speaker's currently live session, if any.
func (m *Manager) SessionLiveGet(speaker [20]byte) ([32]byte, bool, error) {
	var id [32]byte
	ok, err := m.KVGet(sessionLiveKey(speaker), &id)
	if err != nil || !ok {
		return [32]byte{}, false, err
	}
	if id == ([32]byte{}) {
		return [32]byte{}, false, nil
	}
	return id, true, nil
}

// SessionLiveSet records the speaker's currently live session.
func (m *Manager) SessionLiveSet(speaker [20]byte, id [32]byte) error {
	return m.KVPut(sessionLiveKey(speaker), id)
}

// SessionLiveClear removes the speaker's live session pointer.
func (m *Manager) SessionLiveClear(speaker [20]byte) error {
	return m.KVPut(sessionLiveKey(speaker), [32]byte{})
}

// SessionAddListenerReward credits the superchat listener share against a
// live session's accumulator. Called by the payment router.
func (m *Manager) SessionAddListenerReward(id [32]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	session, ok, err := m.SessionGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("state: unknown session %x", id)
	}
	session.ListenerRewards = new(big.Int).Add(session.ListenerRewards, amount)
	return m.SessionPut(session)
}
