package reputation

import (
	"errors"
	"testing"
)

type receiptKey struct {
	session [32]byte
	rater   [20]byte
}

type mockState struct {
	speakers map[[20]byte]*SpeakerRecord
	receipts map[receiptKey]*RatingReceipt
}

func newMockState() *mockState {
	return &mockState{
		speakers: make(map[[20]byte]*SpeakerRecord),
		receipts: make(map[receiptKey]*RatingReceipt),
	}
}

func (m *mockState) ReputationGet(speaker [20]byte) (*SpeakerRecord, bool, error) {
	record, ok := m.speakers[speaker]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) ReputationPut(record *SpeakerRecord) error {
	if record == nil {
		return nil
	}
	m.speakers[record.Speaker] = record.Clone()
	return nil
}

func (m *mockState) ReputationReceiptGet(session [32]byte, rater [20]byte) (*RatingReceipt, bool, error) {
	receipt, ok := m.receipts[receiptKey{session: session, rater: rater}]
	if !ok {
		return nil, false, nil
	}
	return receipt.Clone(), true, nil
}

func (m *mockState) ReputationReceiptPut(receipt *RatingReceipt) error {
	if receipt == nil {
		return nil
	}
	m.receipts[receiptKey{session: receipt.Session, rater: receipt.Rater}] = receipt.Clone()
	return nil
}

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

func newTestEngine(state *mockState) *Engine {
	engine := NewEngine()
	engine.SetState(state)
	engine.SetNowFunc(func() int64 { return 1_000 })
	return engine
}

func TestRegisterIsIdempotent(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state)
	speaker := addr(0x01)

	first, err := engine.Register(speaker)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if first.RatingCount != 0 {
		t.Fatalf("fresh record has %d ratings", first.RatingCount)
	}

	var session [32]byte
	session[0] = 0x01
	if _, err := engine.Rate(session, addr(0x02), speaker, 300); err != nil {
		t.Fatalf("rate failed: %v", err)
	}
	again, err := engine.Register(speaker)
	if err != nil {
		t.Fatalf("re-register failed: %v", err)
	}
	if again.RatingCount != 1 || again.RatingSum != 300 {
		t.Fatal("re-registration reset the record")
	}
}

func TestDefaultAverage(t *testing.T) {
	record := &SpeakerRecord{Speaker: addr(0x01)}
	if got := record.Average(); got != DefaultAverage {
		t.Fatalf("unrated average %d, want %d", got, DefaultAverage)
	}
	record.RatingSum = 500
	record.RatingCount = 1
	if got := record.Average(); got != 500 {
		t.Fatalf("average %d, want 500", got)
	}
}

func TestRateUpdatesAggregate(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state)
	speaker := addr(0x01)
	if _, err := engine.Register(speaker); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	var session [32]byte
	session[0] = 0x01
	if _, err := engine.Rate(session, addr(0x02), speaker, 500); err != nil {
		t.Fatalf("rate failed: %v", err)
	}
	record, err := engine.Rate(session, addr(0x03), speaker, 400)
	if err != nil {
		t.Fatalf("rate failed: %v", err)
	}
	if record.Average() != 450 {
		t.Fatalf("average %d, want 450", record.Average())
	}
}

func TestRateRejectsInvalidInput(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state)
	speaker := addr(0x01)
	var session [32]byte
	session[0] = 0x01

	if _, err := engine.Rate(session, addr(0x02), speaker, 300); !errors.Is(err, ErrUnregisteredSpeaker) {
		t.Fatalf("expected ErrUnregisteredSpeaker, got %v", err)
	}
	if _, err := engine.Register(speaker); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := engine.Rate(session, addr(0x02), speaker, RatingScale+1); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating, got %v", err)
	}
	if _, err := engine.Rate(session, addr(0x02), speaker, 300); err != nil {
		t.Fatalf("rate failed: %v", err)
	}
	if _, err := engine.Rate(session, addr(0x02), speaker, 100); !errors.Is(err, ErrDuplicateRating) {
		t.Fatalf("expected ErrDuplicateRating, got %v", err)
	}
	// The original rating stands.
	record, _, err := engine.Record(speaker)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if record.RatingSum != 300 || record.RatingCount != 1 {
		t.Fatalf("duplicate mutated the aggregate: sum=%d count=%d", record.RatingSum, record.RatingCount)
	}
	// Same rater, different session is fine.
	var other [32]byte
	other[0] = 0x02
	if _, err := engine.Rate(other, addr(0x02), speaker, 100); err != nil {
		t.Fatalf("rate on second session failed: %v", err)
	}
}

func TestMultiplierBounds(t *testing.T) {
	cases := []struct {
		average uint32
		want    uint32
	}{
		{average: 0, want: 7_000},
		{average: 250, want: 11_000},
		{average: 450, want: 14_200},
		{average: 500, want: 15_000},
	}
	for _, tc := range cases {
		if got := MultiplierBps(tc.average, 7_000, 15_000); got != tc.want {
			t.Fatalf("average %d: got %d, want %d", tc.average, got, tc.want)
		}
	}
	// Clamped above the scale.
	if got := MultiplierBps(600, 7_000, 15_000); got != 15_000 {
		t.Fatalf("overscale average: got %d, want 15000", got)
	}
	// Ceiling at or below floor pins to the floor.
	if got := MultiplierBps(500, 7_000, 7_000); got != 7_000 {
		t.Fatalf("pinned bounds: got %d, want 7000", got)
	}
}

func TestEngineMultiplier(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state)
	speaker := addr(0x01)

	if _, ok, err := engine.Multiplier(speaker); err != nil || ok {
		t.Fatalf("unregistered speaker: ok=%v err=%v", ok, err)
	}
	if _, err := engine.Register(speaker); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	multiplier, ok, err := engine.Multiplier(speaker)
	if err != nil || !ok {
		t.Fatalf("multiplier lookup failed: ok=%v err=%v", ok, err)
	}
	// Default average 4.50 maps to 1.42x.
	if multiplier != 14_200 {
		t.Fatalf("default multiplier %d, want 14200", multiplier)
	}
}
