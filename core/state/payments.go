package state

import (
	"fmt"
	"math/big"

	"stakespeaks/native/common"
	"stakespeaks/native/payments"
)

var (
	superchatPrefix      = []byte("payments/superchat/")
	superchatIndexPrefix = []byte("payments/index/")
	sequencePrefix       = []byte("payments/seq/")
	paymentQuotaPrefix   = []byte("payments/quota/")
)

func superchatKey(speaker [20]byte, sequence uint64) []byte {
	return []byte(fmt.Sprintf("%s%x/%d", superchatPrefix, speaker, sequence))
}

func superchatIndexKey(speaker [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", superchatIndexPrefix, speaker))
}

func sequenceKey(speaker [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", sequencePrefix, speaker))
}

func paymentQuotaKey(sender [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", paymentQuotaPrefix, sender))
}

type storedSuperchat struct {
	Sender        [20]byte
	Speaker       [20]byte
	Sequence      uint64
	Gross         *big.Int
	Fee           *big.Int
	SpeakerPayout *big.Int
	ListenerShare *big.Int
	Session       [32]byte
	Message       string
	SentAt        uint64
}

type storedQuota struct {
	ReqCount  uint32
	SpendUsed uint64
	EpochID   uint64
}

// PaymentsSuperchatPut persists an immutable superchat record. Overwriting an
// existing sequence is rejected to protect the audit trail.
func (m *Manager) PaymentsSuperchatPut(record *payments.Superchat) error {
	if record == nil {
		return fmt.Errorf("state: superchat required")
	}
	key := superchatKey(record.Speaker, record.Sequence)
	if ok, err := m.KVGet(key, nil); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("state: superchat %x/%d already recorded", record.Speaker, record.Sequence)
	}
	stored := storedSuperchat{
		Sender:        record.Sender,
		Speaker:       record.Speaker,
		Sequence:      record.Sequence,
		Gross:         nonNil(record.Gross),
		Fee:           nonNil(record.Fee),
		SpeakerPayout: nonNil(record.SpeakerPayout),
		ListenerShare: nonNil(record.ListenerShare),
		Session:       record.Session,
		Message:       record.Message,
		SentAt:        record.SentAt,
	}
	if err := m.KVPut(key, &stored); err != nil {
		return err
	}
	var seq [8]byte
	for i := 0; i < 8; i++ {
		seq[7-i] = byte(record.Sequence >> (8 * i))
	}
	return m.KVAppend(superchatIndexKey(record.Speaker), seq[:])
}

// PaymentsSuperchatGet loads one superchat by speaker and sequence.
func (m *Manager) PaymentsSuperchatGet(speaker [20]byte, sequence uint64) (*payments.Superchat, bool, error) {
	var stored storedSuperchat
	ok, err := m.KVGet(superchatKey(speaker, sequence), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &payments.Superchat{
		Sender:        stored.Sender,
		Speaker:       stored.Speaker,
		Sequence:      stored.Sequence,
		Gross:         nonNil(stored.Gross),
		Fee:           nonNil(stored.Fee),
		SpeakerPayout: nonNil(stored.SpeakerPayout),
		ListenerShare: nonNil(stored.ListenerShare),
		Session:       stored.Session,
		Message:       stored.Message,
		SentAt:        stored.SentAt,
	}, true, nil
}

// PaymentsSequence returns the next superchat sequence for the speaker.
func (m *Manager) PaymentsSequence(speaker [20]byte) (uint64, error) {
	var sequence uint64
	if _, err := m.KVGet(sequenceKey(speaker), &sequence); err != nil {
		return 0, err
	}
	return sequence, nil
}

// PaymentsSetSequence stores the next superchat sequence for the speaker.
func (m *Manager) PaymentsSetSequence(speaker [20]byte, sequence uint64) error {
	return m.KVPut(sequenceKey(speaker), sequence)
}

// PaymentsQuotaGet loads the sender's quota usage counters.
func (m *Manager) PaymentsQuotaGet(sender [20]byte) (common.QuotaNow, bool, error) {
	var stored storedQuota
	ok, err := m.KVGet(paymentQuotaKey(sender), &stored)
	if err != nil || !ok {
		return common.QuotaNow{}, false, err
	}
	return common.QuotaNow{
		ReqCount:  stored.ReqCount,
		SpendUsed: stored.SpendUsed,
		EpochID:   stored.EpochID,
	}, true, nil
}

// PaymentsQuotaPut persists the sender's quota usage counters.
func (m *Manager) PaymentsQuotaPut(sender [20]byte, usage common.QuotaNow) error {
	stored := storedQuota{
		ReqCount:  usage.ReqCount,
		SpendUsed: usage.SpendUsed,
		EpochID:   usage.EpochID,
	}
	return m.KVPut(paymentQuotaKey(sender), &stored)
}
