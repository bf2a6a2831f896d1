package state

import (
	"fmt"

	"stakespeaks/native/reputation"
)

var (
	speakerPrefix = []byte("reputation/speaker/")
	receiptPrefix = []byte("reputation/receipt/")
)

func speakerKey(speaker [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", speakerPrefix, speaker))
}

func receiptKey(session [32]byte, rater [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x/%x", receiptPrefix, session, rater))
}

type storedSpeaker struct {
	Speaker     [20]byte
	RatingSum   uint64
	RatingCount uint64
	CreatedAt   uint64
}

type storedReceipt struct {
	Session [32]byte
	Rater   [20]byte
	Speaker [20]byte
	Value   uint32
	RatedAt uint64
}

// ReputationGet loads a speaker record.
func (m *Manager) ReputationGet(speaker [20]byte) (*reputation.SpeakerRecord, bool, error) {
	var stored storedSpeaker
	ok, err := m.KVGet(speakerKey(speaker), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &reputation.SpeakerRecord{
		Speaker:     stored.Speaker,
		RatingSum:   stored.RatingSum,
		RatingCount: stored.RatingCount,
		CreatedAt:   stored.CreatedAt,
	}, true, nil
}

// ReputationPut persists a speaker record.
func (m *Manager) ReputationPut(record *reputation.SpeakerRecord) error {
	if record == nil {
		return fmt.Errorf("state: speaker record required")
	}
	stored := storedSpeaker{
		Speaker:     record.Speaker,
		RatingSum:   record.RatingSum,
		RatingCount: record.RatingCount,
		CreatedAt:   record.CreatedAt,
	}
	return m.KVPut(speakerKey(record.Speaker), &stored)
}

// ReputationReceiptGet loads the rating receipt for a (session, rater) pair.
func (m *Manager) ReputationReceiptGet(session [32]byte, rater [20]byte) (*reputation.RatingReceipt, bool, error) {
	var stored storedReceipt
	ok, err := m.KVGet(receiptKey(session, rater), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &reputation.RatingReceipt{
		Session: stored.Session,
		Rater:   stored.Rater,
		Speaker: stored.Speaker,
		Value:   stored.Value,
		RatedAt: stored.RatedAt,
	}, true, nil
}

// ReputationReceiptPut persists a rating receipt. Receipts are never deleted;
// their presence is what rejects re-rating.
func (m *Manager) ReputationReceiptPut(receipt *reputation.RatingReceipt) error {
	if receipt == nil {
		return fmt.Errorf("state: rating receipt required")
	}
	stored := storedReceipt{
		Session: receipt.Session,
		Rater:   receipt.Rater,
		Speaker: receipt.Speaker,
		Value:   receipt.Value,
		RatedAt: receipt.RatedAt,
	}
	return m.KVPut(receiptKey(receipt.Session, receipt.Rater), &stored)
}
