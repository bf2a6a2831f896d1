package sessions

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"stakespeaks/core/events"
	"stakespeaks/core/types"
)

var (
	errNilState    = errors.New("sessions engine: state not configured")
	errVaultNotSet = errors.New("sessions engine: stake vault not configured")

	// ErrSessionNotFound marks lookups against unknown session identifiers.
	ErrSessionNotFound = errors.New("sessions: session not found")
	// ErrInvalidState marks illegal lifecycle transitions, including any
	// attempt to move a session out of a terminal state.
	ErrInvalidState = errors.New("sessions: invalid lifecycle transition")
	// ErrNotAuthorized marks calls from accounts lacking the required role.
	ErrNotAuthorized = errors.New("sessions: caller not authorized")
	// ErrTooEarly is returned when starting a session before its scheduled
	// start time.
	ErrTooEarly = errors.New("sessions: start time not reached")
	// ErrTooLate is returned when creating a session whose start time is not
	// strictly in the future.
	ErrTooLate = errors.New("sessions: start time already passed")
	// ErrSessionFull is returned once the roster has reached capacity.
	ErrSessionFull = errors.New("sessions: session full")
	// ErrSessionNotJoinable marks joins against sessions that left the
	// Scheduled state.
	ErrSessionNotJoinable = errors.New("sessions: session not joinable")
	// ErrInsufficientStake marks joins below the effective stake requirement.
	ErrInsufficientStake = errors.New("sessions: stake below requirement")
	// ErrInsufficientFunds marks debits exceeding the listener's balance.
	ErrInsufficientFunds = errors.New("sessions: insufficient balance")
	// ErrDuplicateParticipant marks a second join by the same listener.
	ErrDuplicateParticipant = errors.New("sessions: listener already joined")
	// ErrInvalidAmount marks non-positive or out-of-range numeric input.
	ErrInvalidAmount = errors.New("sessions: amount must be positive")
)

type engineState interface {
	SessionGet(id [32]byte) (*Session, bool, error)
	SessionPut(session *Session) error
	SessionParticipantGet(id [32]byte, listener [20]byte) (*Participant, bool, error)
	SessionParticipantPut(participant *Participant) error
	SessionParticipants(id [32]byte) ([]*Participant, error)
	SessionHostedCount(speaker [20]byte) (uint64, error)
	SessionSetHostedCount(speaker [20]byte, count uint64) error
	SessionLiveGet(speaker [20]byte) ([32]byte, bool, error)
	SessionLiveSet(speaker [20]byte, id [32]byte) error
	SessionLiveClear(speaker [20]byte) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Engine owns the session lifecycle state machine and the per-session stake
// accounting. Listener stakes are escrowed in a dedicated vault account and
// only leave it through Complete or Cancel.
type Engine struct {
	state            engineState
	emitter          events.Emitter
	nowFn            func() int64
	stakeVault       [20]byte
	unattributedPool [20]byte
	operator         [20]byte
}

// NewEngine constructs a session engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
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

// SetStakeVault configures the escrow account that holds listener stakes and
// live listener-reward balances.
func (e *Engine) SetStakeVault(addr [20]byte) { e.stakeVault = addr }

// SetUnattributedPool configures the account receiving reward dust that
// cannot be attributed to a participant.
func (e *Engine) SetUnattributedPool(addr [20]byte) { e.unattributedPool = addr }

// SetOperator configures the platform operator allowed to cancel sessions on
// behalf of speakers.
func (e *Engine) SetOperator(addr [20]byte) { e.operator = addr }

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

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{BalanceSPK: big.NewInt(0), BalanceSUSD: big.NewInt(0)}
	}
	if acc.BalanceSPK == nil {
		acc.BalanceSPK = big.NewInt(0)
	}
	if acc.BalanceSUSD == nil {
		acc.BalanceSUSD = big.NewInt(0)
	}
	return acc
}

// SessionID derives the deterministic identifier for the counter-th session
// hosted by the speaker.
func SessionID(speaker [20]byte, title string, counter uint64) [32]byte {
	var nonce [8]byte
	for i := 0; i < 8; i++ {
		nonce[7-i] = byte(counter >> (8 * i))
	}
	digest := ethcrypto.Keccak256([]byte(strings.TrimSpace(title)))
	hash := ethcrypto.Keccak256(speaker[:], digest, nonce[:])
	var id [32]byte
	copy(id[:], hash)
	return id
}

// Create registers a new session in the Scheduled state. The effective stake
// requirement is fixed here as baseStake scaled by the supplied reputation
// multiplier; later ratings never reprice an existing session.
func (e *Engine) Create(speaker [20]byte, title string, baseStake *big.Int, multiplierBps uint32, maxParticipants uint32, startTime int64, duration uint64, poolID [32]byte) (*Session, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return nil, errors.New("sessions: title required")
	}
	if baseStake == nil || baseStake.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if maxParticipants < 1 {
		return nil, ErrInvalidAmount
	}
	if multiplierBps == 0 {
		return nil, fmt.Errorf("sessions: multiplier required")
	}
	if startTime <= e.now() {
		return nil, ErrTooLate
	}
	counter, err := e.state.SessionHostedCount(speaker)
	if err != nil {
		return nil, err
	}
	requirement := new(big.Int).Mul(baseStake, big.NewInt(int64(multiplierBps)))
	requirement = requirement.Div(requirement, big.NewInt(10_000))
	if requirement.Sign() == 0 {
		requirement = big.NewInt(1)
	}
	session := &Session{
		ID:               SessionID(speaker, trimmed, counter),
		Speaker:          speaker,
		Title:            trimmed,
		BaseStake:        new(big.Int).Set(baseStake),
		StakeRequirement: requirement,
		MaxParticipants:  maxParticipants,
		StartTime:        uint64(startTime),
		Duration:         duration,
		TotalStaked:      big.NewInt(0),
		ListenerRewards:  big.NewInt(0),
		Status:           SessionScheduled,
		PoolID:           poolID,
		CreatedAt:        uint64(e.now()),
	}
	if existing, ok, err := e.state.SessionGet(session.ID); err != nil {
		return nil, err
	} else if ok && existing != nil {
		return nil, fmt.Errorf("sessions: id collision for speaker session %d", counter)
	}
	if err := e.state.SessionPut(session); err != nil {
		return nil, err
	}
	if err := e.state.SessionSetHostedCount(speaker, counter+1); err != nil {
		return nil, err
	}
	e.emit(SessionCreatedEvent(session))
	return session.Clone(), nil
}

// Get fetches a session snapshot without mutating state.
func (e *Engine) Get(id [32]byte) (*Session, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	session, ok, err := e.state.SessionGet(id)
	if err != nil {
		return nil, false, err
	}
	if !ok || session == nil {
		return nil, false, nil
	}
	return session.Clone(), true, nil
}

// Participants returns the roster in join order.
func (e *Engine) Participants(id [32]byte) ([]*Participant, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	roster, err := e.state.SessionParticipants(id)
	if err != nil {
		return nil, err
	}
	cloned := make([]*Participant, 0, len(roster))
	for _, p := range roster {
		cloned = append(cloned, p.Clone())
	}
	return cloned, nil
}

// Join reserves a roster seat by escrowing the listener's stake in the vault.
// Whichever of two racing joins the ledger applies first wins the last seat;
// the other observes a full roster.
func (e *Engine) Join(id [32]byte, listener [20]byte, stakeAmount *big.Int) (*Participant, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if isZeroAddress(e.stakeVault) {
		return nil, errVaultNotSet
	}
	if stakeAmount == nil || stakeAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	// Module accounts hold escrow; they never participate.
	if listener == e.stakeVault || listener == e.unattributedPool {
		return nil, ErrNotAuthorized
	}
	session, ok, err := e.state.SessionGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Status != SessionScheduled {
		return nil, ErrSessionNotJoinable
	}
	if session.ParticipantCount >= session.MaxParticipants {
		return nil, ErrSessionFull
	}
	if _, joined, err := e.state.SessionParticipantGet(id, listener); err != nil {
		return nil, err
	} else if joined {
		return nil, ErrDuplicateParticipant
	}
	if stakeAmount.Cmp(session.StakeRequirement) < 0 {
		return nil, ErrInsufficientStake
	}
	if err := e.transferSPK(listener, e.stakeVault, stakeAmount); err != nil {
		return nil, err
	}
	participant := &Participant{
		Session:     id,
		Listener:    listener,
		StakeAmount: new(big.Int).Set(stakeAmount),
		JoinedAt:    uint64(e.now()),
	}
	if err := e.state.SessionParticipantPut(participant); err != nil {
		return nil, err
	}
	session.ParticipantCount++
	session.TotalStaked = new(big.Int).Add(session.TotalStaked, stakeAmount)
	if err := e.state.SessionPut(session); err != nil {
		return nil, err
	}
	e.emit(SessionJoinedEvent(session, listener, stakeAmount))
	return participant.Clone(), nil
}

// Start transitions the session to Live. Only the speaker may start, and only
// once the scheduled start time has been reached.
func (e *Engine) Start(id [32]byte, caller [20]byte) (*Session, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	session, ok, err := e.state.SessionGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || session == nil {
		return nil, ErrSessionNotFound
	}
	if caller != session.Speaker {
		return nil, ErrNotAuthorized
	}
	if !session.Status.CanTransition(SessionLive) {
		return nil, ErrInvalidState
	}
	if uint64(e.now()) < session.StartTime {
		return nil, ErrTooEarly
	}
	session.Status = SessionLive
	if err := e.state.SessionPut(session); err != nil {
		return nil, err
	}
	if err := e.state.SessionLiveSet(session.Speaker, session.ID); err != nil {
		return nil, err
	}
	e.emit(SessionStartedEvent(session))
	return session.Clone(), nil
}

// Completable validates that the caller may complete the session right now
// and returns the session with its roster. The orchestrator runs this before
// settling yield so that settlement never happens for a session that would
// then refuse to complete.
func (e *Engine) Completable(id [32]byte, caller [20]byte) (*Session, []*Participant, error) {
	if e == nil || e.state == nil {
		return nil, nil, errNilState
	}
	session, ok, err := e.state.SessionGet(id)
	if err != nil {
		return nil, nil, err
	}
	if !ok || session == nil {
		return nil, nil, ErrSessionNotFound
	}
	if caller != session.Speaker {
		return nil, nil, ErrNotAuthorized
	}
	if !session.Status.CanTransition(SessionCompleted) {
		return nil, nil, ErrInvalidState
	}
	roster, err := e.Participants(id)
	if err != nil {
		return nil, nil, err
	}
	return session.Clone(), roster, nil
}

// Complete finalises a live session: every unclaimed stake returns from the
// vault, accumulated listener rewards are split pro-rata by stake, the opaque
// metadata reference and the yield snapshot are recorded, and the session
// reaches its terminal Completed state.
func (e *Engine) Complete(id [32]byte, caller [20]byte, metadataRef string, yield *YieldSnapshot) (*Session, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if isZeroAddress(e.stakeVault) {
		return nil, errVaultNotSet
	}
	session, ok, err := e.state.SessionGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || session == nil {
		return nil, ErrSessionNotFound
	}
	if caller != session.Speaker {
		return nil, ErrNotAuthorized
	}
	if !session.Status.CanTransition(SessionCompleted) {
		return nil, ErrInvalidState
	}
	roster, err := e.state.SessionParticipants(id)
	if err != nil {
		return nil, err
	}
	if err := e.returnStakes(session, roster); err != nil {
		return nil, err
	}
	if err := e.distributeListenerRewards(session, roster); err != nil {
		return nil, err
	}
	session.MetadataRef = strings.TrimSpace(metadataRef)
	if yield != nil {
		session.Yield = yield.Clone()
	} else {
		session.Yield = &YieldSnapshot{Total: big.NewInt(0), Distributed: big.NewInt(0), Retained: big.NewInt(0)}
	}
	session.Status = SessionCompleted
	if err := e.state.SessionPut(session); err != nil {
		return nil, err
	}
	if live, ok, err := e.state.SessionLiveGet(session.Speaker); err != nil {
		return nil, err
	} else if ok && live == session.ID {
		if err := e.state.SessionLiveClear(session.Speaker); err != nil {
			return nil, err
		}
	}
	e.emit(SessionCompletedEvent(session))
	return session.Clone(), nil
}

// Cancel aborts a scheduled session and refunds every stake in full. The
// speaker or the platform operator may cancel; reputation is untouched.
func (e *Engine) Cancel(id [32]byte, caller [20]byte) (*Session, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if isZeroAddress(e.stakeVault) {
		return nil, errVaultNotSet
	}
	session, ok, err := e.state.SessionGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || session == nil {
		return nil, ErrSessionNotFound
	}
	if caller != session.Speaker && (isZeroAddress(e.operator) || caller != e.operator) {
		return nil, ErrNotAuthorized
	}
	if !session.Status.CanTransition(SessionCancelled) {
		return nil, ErrInvalidState
	}
	roster, err := e.state.SessionParticipants(id)
	if err != nil {
		return nil, err
	}
	if err := e.returnStakes(session, roster); err != nil {
		return nil, err
	}
	session.Status = SessionCancelled
	if err := e.state.SessionPut(session); err != nil {
		return nil, err
	}
	e.emit(SessionCancelledEvent(session))
	return session.Clone(), nil
}

func (e *Engine) returnStakes(session *Session, roster []*Participant) error {
	for _, participant := range roster {
		if participant == nil || participant.PayoutClaimed {
			continue
		}
		if err := e.transferSPK(e.stakeVault, participant.Listener, participant.StakeAmount); err != nil {
			return err
		}
		participant.PayoutClaimed = true
		if err := e.state.SessionParticipantPut(participant); err != nil {
			return err
		}
	}
	return nil
}

// distributeListenerRewards pays out the superchat listener-share accumulator
// pro-rata by stake. Flooring dust goes to the unattributed pool so the vault
// balances out exactly.
func (e *Engine) distributeListenerRewards(session *Session, roster []*Participant) error {
	rewards := cloneBigInt(session.ListenerRewards)
	if rewards.Sign() == 0 {
		return nil
	}
	total := cloneBigInt(session.TotalStaked)
	remaining := new(big.Int).Set(rewards)
	if total.Sign() > 0 {
		for _, participant := range roster {
			if participant == nil || participant.StakeAmount == nil {
				continue
			}
			share := new(big.Int).Mul(rewards, participant.StakeAmount)
			share = share.Div(share, total)
			if share.Sign() == 0 {
				continue
			}
			if err := e.transferSUSD(e.stakeVault, participant.Listener, share); err != nil {
				return err
			}
			remaining = remaining.Sub(remaining, share)
		}
	}
	if remaining.Sign() > 0 {
		if isZeroAddress(e.unattributedPool) {
			return errors.New("sessions engine: unattributed pool not configured")
		}
		if err := e.transferSUSD(e.stakeVault, e.unattributedPool, remaining); err != nil {
			return err
		}
	}
	session.ListenerRewards = big.NewInt(0)
	return nil
}

func (e *Engine) transferSPK(from, to [20]byte, amount *big.Int) error {
	return e.transfer(from, to, amount, true)
}

func (e *Engine) transferSUSD(from, to [20]byte, amount *big.Int) error {
	return e.transfer(from, to, amount, false)
}

func (e *Engine) transfer(from, to [20]byte, amount *big.Int, spk bool) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if from == to {
		return nil
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	toAcc = ensureAccount(toAcc)
	if spk {
		if fromAcc.BalanceSPK.Cmp(amount) < 0 {
			return ErrInsufficientFunds
		}
		fromAcc.BalanceSPK = new(big.Int).Sub(fromAcc.BalanceSPK, amount)
		toAcc.BalanceSPK = new(big.Int).Add(toAcc.BalanceSPK, amount)
	} else {
		if fromAcc.BalanceSUSD.Cmp(amount) < 0 {
			return ErrInsufficientFunds
		}
		fromAcc.BalanceSUSD = new(big.Int).Sub(fromAcc.BalanceSUSD, amount)
		toAcc.BalanceSUSD = new(big.Int).Add(toAcc.BalanceSUSD, amount)
	}
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}
