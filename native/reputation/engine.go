package reputation

import (
	"errors"
	"time"

	"stakespeaks/core/events"
	"stakespeaks/core/types"
)

var (
	errNilState = errors.New("reputation engine: state not configured")

	// ErrUnregisteredSpeaker marks rating submissions against speakers that
	// never entered the ledger.
	ErrUnregisteredSpeaker = errors.New("reputation: speaker not registered")
	// ErrDuplicateRating is returned when a participant rates the same
	// session twice. The original rating stands.
	ErrDuplicateRating = errors.New("reputation: session already rated by caller")
	// ErrInvalidRating marks rating values outside [0, RatingScale].
	ErrInvalidRating = errors.New("reputation: rating out of range")
)

type engineState interface {
	ReputationGet(speaker [20]byte) (*SpeakerRecord, bool, error)
	ReputationPut(record *SpeakerRecord) error
	ReputationReceiptGet(session [32]byte, rater [20]byte) (*RatingReceipt, bool, error)
	ReputationReceiptPut(receipt *RatingReceipt) error
}

// Engine maintains speaker rating aggregates and derives the price multiplier
// consumed by the session registry.
type Engine struct {
	state      engineState
	emitter    events.Emitter
	nowFn      func() int64
	floorBps   uint32
	ceilingBps uint32
}

// NewEngine constructs a reputation engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter:    events.NoopEmitter{},
		nowFn:      func() int64 { return time.Now().Unix() },
		floorBps:   7_000,
		ceilingBps: 15_000,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetMultiplierBounds configures the floor and ceiling of the price
// multiplier. Values are basis points; a ceiling at or below the floor pins
// the multiplier to the floor.
func (e *Engine) SetMultiplierBounds(floorBps, ceilingBps uint32) {
	e.floorBps = floorBps
	e.ceilingBps = ceilingBps
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// Register creates a speaker record when absent. Registering an existing
// speaker is a no-op; the stored record is returned either way.
func (e *Engine) Register(speaker [20]byte) (*SpeakerRecord, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	record, ok, err := e.state.ReputationGet(speaker)
	if err != nil {
		return nil, err
	}
	if ok && record != nil {
		return record.Clone(), nil
	}
	record = &SpeakerRecord{
		Speaker:   speaker,
		CreatedAt: uint64(e.now()),
	}
	if err := e.state.ReputationPut(record); err != nil {
		return nil, err
	}
	e.emit(SpeakerRegisteredEvent(speaker))
	return record.Clone(), nil
}

// Record fetches the speaker record without mutating state.
func (e *Engine) Record(speaker [20]byte) (*SpeakerRecord, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	record, ok, err := e.state.ReputationGet(speaker)
	if err != nil {
		return nil, false, err
	}
	if !ok || record == nil {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

// Rate applies a participant's rating for a completed session. Session-level
// preconditions (completed status, roster membership) are the orchestrator's
// responsibility; this engine enforces range, registration and single-rating
// semantics.
func (e *Engine) Rate(session [32]byte, rater [20]byte, speaker [20]byte, value uint32) (*SpeakerRecord, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if value > RatingScale {
		return nil, ErrInvalidRating
	}
	record, ok, err := e.state.ReputationGet(speaker)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		return nil, ErrUnregisteredSpeaker
	}
	if _, seen, err := e.state.ReputationReceiptGet(session, rater); err != nil {
		return nil, err
	} else if seen {
		return nil, ErrDuplicateRating
	}
	record.RatingSum += uint64(value)
	record.RatingCount++
	if err := e.state.ReputationPut(record); err != nil {
		return nil, err
	}
	receipt := &RatingReceipt{
		Session: session,
		Rater:   rater,
		Speaker: speaker,
		Value:   value,
		RatedAt: uint64(e.now()),
	}
	if err := e.state.ReputationReceiptPut(receipt); err != nil {
		return nil, err
	}
	e.emit(SessionRatedEvent(session, rater, speaker, value, record.Average()))
	return record.Clone(), nil
}

// Multiplier resolves the stake price multiplier for the speaker in basis
// points. Unregistered speakers are reported with ok=false so callers can
// apply their registration policy.
func (e *Engine) Multiplier(speaker [20]byte) (uint32, bool, error) {
	if e == nil || e.state == nil {
		return 0, false, errNilState
	}
	record, ok, err := e.state.ReputationGet(speaker)
	if err != nil {
		return 0, false, err
	}
	if !ok || record == nil {
		return 0, false, nil
	}
	return MultiplierBps(record.Average(), e.floorBps, e.ceilingBps), true, nil
}
