package yieldpool

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"stakespeaks/core/events"
	"stakespeaks/core/types"
)

var (
	errNilState       = errors.New("yieldpool engine: state not configured")
	errVaultNotSet    = errors.New("yieldpool engine: pool vault not configured")
	errTreasuryNotSet = errors.New("yieldpool engine: rewards treasury not configured")

	// ErrPoolNotFound marks lookups against unknown pool identifiers.
	ErrPoolNotFound = errors.New("yieldpool: pool not found")
	// ErrPoolExists marks creation of a pool whose name is already taken.
	ErrPoolExists = errors.New("yieldpool: pool already exists")
	// ErrNotAuthorized marks operator-only calls from other accounts.
	ErrNotAuthorized = errors.New("yieldpool: caller not authorized")
	// ErrInvalidAmount marks non-positive or out-of-range numeric input.
	ErrInvalidAmount = errors.New("yieldpool: amount must be positive")
	// ErrInvalidRate marks accrual rates outside (0, 10000] basis points.
	ErrInvalidRate = errors.New("yieldpool: accrual rate out of range")
	// ErrInsufficientFunds marks withdrawals exceeding pool principal or
	// deposits exceeding the depositor's balance.
	ErrInsufficientFunds = errors.New("yieldpool: insufficient balance")
)

type engineState interface {
	YieldPoolGet(id [32]byte) (*Pool, bool, error)
	YieldPoolPut(pool *Pool) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Engine owns the pool registry and the compounding ledger. Accrued interest
// and session yield are funded from the rewards treasury; the engine never
// mints.
type Engine struct {
	state               engineState
	emitter             events.Emitter
	nowFn               func() int64
	poolVault           [20]byte
	rewardsTreasury     [20]byte
	operator            [20]byte
	participantShareBps uint32
}

// NewEngine constructs a yield pool engine with default dependencies. The
// default distribution rule pays 30% of each session's yield to participants.
func NewEngine() *Engine {
	return &Engine{
		emitter:             events.NoopEmitter{},
		nowFn:               func() int64 { return time.Now().Unix() },
		participantShareBps: 3_000,
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

// SetPoolVault configures the account holding pool principal.
func (e *Engine) SetPoolVault(addr [20]byte) { e.poolVault = addr }

// SetRewardsTreasury configures the treasury that funds accrual and yield.
func (e *Engine) SetRewardsTreasury(addr [20]byte) { e.rewardsTreasury = addr }

// SetOperator configures the platform operator allowed to create pools and
// withdraw principal.
func (e *Engine) SetOperator(addr [20]byte) { e.operator = addr }

// SetParticipantShareBps overrides the participant share of session yield.
func (e *Engine) SetParticipantShareBps(bps uint32) {
	if bps > 10_000 {
		bps = 10_000
	}
	e.participantShareBps = bps
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

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Create registers a zero-balance pool. Operator only.
func (e *Engine) Create(caller [20]byte, name, token string, rateBps uint32) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if isZeroAddress(e.operator) || caller != e.operator {
		return nil, ErrNotAuthorized
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, errors.New("yieldpool: name required")
	}
	normalized, err := NormalizeToken(token)
	if err != nil {
		return nil, err
	}
	if rateBps == 0 || rateBps > 10_000 {
		return nil, ErrInvalidRate
	}
	id := PoolID(trimmed)
	if existing, ok, err := e.state.YieldPoolGet(id); err != nil {
		return nil, err
	} else if ok && existing != nil {
		return nil, ErrPoolExists
	}
	now := uint64(e.now())
	pool := &Pool{
		ID:          id,
		Name:        trimmed,
		Token:       normalized,
		RateBps:     rateBps,
		Principal:   big.NewInt(0),
		LastAccrual: now,
		CreatedAt:   now,
	}
	if err := e.state.YieldPoolPut(pool); err != nil {
		return nil, err
	}
	e.emit(PoolCreatedEvent(pool))
	return pool.Clone(), nil
}

// Get fetches a pool snapshot without mutating state.
func (e *Engine) Get(id [32]byte) (*Pool, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	pool, ok, err := e.state.YieldPoolGet(id)
	if err != nil {
		return nil, false, err
	}
	if !ok || pool == nil {
		return nil, false, nil
	}
	return pool.Clone(), true, nil
}

// Deposit moves the caller's staking tokens into the pool vault and credits
// principal.
func (e *Engine) Deposit(id [32]byte, from [20]byte, amount *big.Int) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if isZeroAddress(e.poolVault) {
		return nil, errVaultNotSet
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	pool, ok, err := e.state.YieldPoolGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || pool == nil {
		return nil, ErrPoolNotFound
	}
	// The vault cannot fund its own principal.
	if from == e.poolVault {
		return nil, ErrNotAuthorized
	}
	if err := e.transferSPK(from, e.poolVault, amount); err != nil {
		return nil, err
	}
	pool.Principal = new(big.Int).Add(pool.Principal, amount)
	if err := e.state.YieldPoolPut(pool); err != nil {
		return nil, err
	}
	e.emit(PoolDepositedEvent(pool, from, amount))
	return pool.Clone(), nil
}

// Accrue applies simple interest for the time elapsed since the last accrual
// and stamps the new accrual time. Accrual only ever moves forward: a zero or
// negative elapsed window changes nothing, and a window whose interest floors
// to zero (or that the treasury cannot fund yet) is deferred rather than
// consumed, so no interest is silently lost.
func (e *Engine) Accrue(id [32]byte) (*Pool, *big.Int, error) {
	if e == nil || e.state == nil {
		return nil, nil, errNilState
	}
	if isZeroAddress(e.poolVault) {
		return nil, nil, errVaultNotSet
	}
	if isZeroAddress(e.rewardsTreasury) {
		return nil, nil, errTreasuryNotSet
	}
	pool, ok, err := e.state.YieldPoolGet(id)
	if err != nil {
		return nil, nil, err
	}
	if !ok || pool == nil {
		return nil, nil, ErrPoolNotFound
	}
	elapsed := e.now() - int64(pool.LastAccrual)
	if elapsed <= 0 {
		return pool.Clone(), big.NewInt(0), nil
	}
	interest := SimpleInterest(pool.Principal, pool.RateBps, elapsed)
	if interest.Sign() == 0 {
		return pool.Clone(), big.NewInt(0), nil
	}
	treasury, err := e.state.GetAccount(e.rewardsTreasury[:])
	if err != nil {
		return nil, nil, err
	}
	treasury = ensureAccount(treasury)
	if treasury.BalanceSPK.Cmp(interest) < 0 {
		return pool.Clone(), big.NewInt(0), nil
	}
	if err := e.transferSPK(e.rewardsTreasury, e.poolVault, interest); err != nil {
		return nil, nil, err
	}
	pool.Principal = new(big.Int).Add(pool.Principal, interest)
	pool.LastAccrual = uint64(e.now())
	if err := e.state.YieldPoolPut(pool); err != nil {
		return nil, nil, err
	}
	e.emit(PoolAccruedEvent(pool, interest))
	return pool.Clone(), new(big.Int).Set(interest), nil
}

// Withdraw releases principal from the pool vault to the recipient. Operator
// only; principal never goes negative.
func (e *Engine) Withdraw(id [32]byte, caller, to [20]byte, amount *big.Int) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if isZeroAddress(e.poolVault) {
		return nil, errVaultNotSet
	}
	if isZeroAddress(e.operator) || caller != e.operator {
		return nil, ErrNotAuthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	// A withdrawal into the vault would desync principal from custody.
	if to == e.poolVault {
		return nil, ErrInvalidAmount
	}
	pool, ok, err := e.state.YieldPoolGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || pool == nil {
		return nil, ErrPoolNotFound
	}
	if pool.Principal.Cmp(amount) < 0 {
		return nil, ErrInsufficientFunds
	}
	if err := e.transferSPK(e.poolVault, to, amount); err != nil {
		return nil, err
	}
	pool.Principal = new(big.Int).Sub(pool.Principal, amount)
	if err := e.state.YieldPoolPut(pool); err != nil {
		return nil, err
	}
	e.emit(PoolWithdrawnEvent(pool, to, amount))
	return pool.Clone(), nil
}

// SettleSession applies the per-session distribution rule: yield equals
// totalStaked scaled by the pool rate, participants split their share
// pro-rata by stake, and the remainder plus all flooring dust compounds into
// pool principal. When the treasury cannot fund the yield the settlement is
// recorded as unfunded with zero amounts; completion still proceeds.
func (e *Engine) SettleSession(id [32]byte, session [32]byte, totalStaked *big.Int, shares []StakeShare) (*Settlement, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if isZeroAddress(e.poolVault) {
		return nil, errVaultNotSet
	}
	if isZeroAddress(e.rewardsTreasury) {
		return nil, errTreasuryNotSet
	}
	pool, ok, err := e.state.YieldPoolGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || pool == nil {
		return nil, ErrPoolNotFound
	}
	settlement := &Settlement{
		PoolID:      pool.ID,
		Total:       big.NewInt(0),
		Distributed: big.NewInt(0),
		Retained:    big.NewInt(0),
	}
	yield := EpochYield(totalStaked, pool.RateBps)
	if yield.Sign() == 0 {
		settlement.Funded = true
		return settlement, nil
	}
	treasury, err := e.state.GetAccount(e.rewardsTreasury[:])
	if err != nil {
		return nil, err
	}
	treasury = ensureAccount(treasury)
	if treasury.BalanceSPK.Cmp(yield) < 0 {
		e.emit(SessionSettledEvent(pool, session, settlement))
		return settlement, nil
	}
	participantPot := ShareOf(yield, e.participantShareBps)
	distributed := big.NewInt(0)
	for _, share := range shares {
		payout := ProRata(participantPot, share.Stake, totalStaked)
		if payout.Sign() == 0 {
			continue
		}
		if err := e.transferSPK(e.rewardsTreasury, share.Listener, payout); err != nil {
			return nil, err
		}
		distributed = distributed.Add(distributed, payout)
		settlement.Payouts = append(settlement.Payouts, Payout{Listener: share.Listener, Amount: payout})
	}
	retained := new(big.Int).Sub(yield, distributed)
	if retained.Sign() > 0 {
		if err := e.transferSPK(e.rewardsTreasury, e.poolVault, retained); err != nil {
			return nil, err
		}
		pool.Principal = new(big.Int).Add(pool.Principal, retained)
		if err := e.state.YieldPoolPut(pool); err != nil {
			return nil, err
		}
	}
	settlement.Total = yield
	settlement.Distributed = distributed
	settlement.Retained = retained
	settlement.Funded = true
	e.emit(SessionSettledEvent(pool, session, settlement))
	return settlement, nil
}

func (e *Engine) transferSPK(from, to [20]byte, amount *big.Int) error {
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
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
	if fromAcc.BalanceSPK.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	fromAcc.BalanceSPK = new(big.Int).Sub(fromAcc.BalanceSPK, amt)
	toAcc.BalanceSPK = new(big.Int).Add(toAcc.BalanceSPK, amt)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}
