package payments

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"stakespeaks/core/events"
	"stakespeaks/core/types"
	"stakespeaks/native/common"
)

const maxMessageLength = 280

var (
	errNilState           = errors.New("payments engine: state not configured")
	errFeeCollectorNotSet = errors.New("payments engine: fee collector not configured")
	errVaultNotSet        = errors.New("payments engine: stake vault not configured")
	errPoolNotSet         = errors.New("payments engine: unattributed pool not configured")

	// ErrInvalidAmount marks non-positive superchat amounts.
	ErrInvalidAmount = errors.New("payments: amount must be positive")
	// ErrNoPayoutDestination marks superchats aimed at speakers that never
	// hosted a session.
	ErrNoPayoutDestination = errors.New("payments: speaker has never hosted a session")
	// ErrInsufficientFunds marks debits exceeding the sender's balance.
	ErrInsufficientFunds = errors.New("payments: insufficient balance")
	// ErrMessageTooLong marks messages over the record limit.
	ErrMessageTooLong = errors.New("payments: message too long")
)

type engineState interface {
	PaymentsSuperchatPut(record *Superchat) error
	PaymentsSequence(speaker [20]byte) (uint64, error)
	PaymentsSetSequence(speaker [20]byte, sequence uint64) error
	PaymentsQuotaGet(sender [20]byte) (common.QuotaNow, bool, error)
	PaymentsQuotaPut(sender [20]byte, usage common.QuotaNow) error
	SessionHostedCount(speaker [20]byte) (uint64, error)
	SessionLiveGet(speaker [20]byte) ([32]byte, bool, error)
	SessionAddListenerReward(id [32]byte, amount *big.Int) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Engine routes superchat payments: fee to the platform collector, speaker
// payout settled instantly, listener share accumulated against the speaker's
// live session or parked in the unattributed pool. Every transfer happens in
// the same call as the sender debit; there is no deferred settlement.
type Engine struct {
	state            engineState
	emitter          events.Emitter
	nowFn            func() int64
	feeCollector     [20]byte
	stakeVault       [20]byte
	unattributedPool [20]byte
	feeBps           uint32
	speakerShareBps  uint32
	quota            common.Quota
}

// NewEngine constructs a payment engine with the platform defaults: 5% fee
// and an 80% speaker share of the remainder.
func NewEngine() *Engine {
	return &Engine{
		emitter:         events.NoopEmitter{},
		nowFn:           func() int64 { return time.Now().Unix() },
		feeBps:          500,
		speakerShareBps: 8_000,
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

// SetFeeCollector configures the platform fee destination.
func (e *Engine) SetFeeCollector(addr [20]byte) { e.feeCollector = addr }

// SetStakeVault configures the escrow account holding live listener shares.
func (e *Engine) SetStakeVault(addr [20]byte) { e.stakeVault = addr }

// SetUnattributedPool configures the account holding listener shares for
// speakers without a live session.
func (e *Engine) SetUnattributedPool(addr [20]byte) { e.unattributedPool = addr }

// SetSplit overrides the fee and speaker-share basis points.
func (e *Engine) SetSplit(feeBps, speakerShareBps uint32) {
	if feeBps > 10_000 {
		feeBps = 10_000
	}
	if speakerShareBps > 10_000 {
		speakerShareBps = 10_000
	}
	e.feeBps = feeBps
	e.speakerShareBps = speakerShareBps
}

// SetQuota configures the per-sender superchat quota. A zero quota disables
// rate limiting.
func (e *Engine) SetQuota(quota common.Quota) { e.quota = quota }

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

// Send processes a superchat from sender to speaker. The gross amount is
// debited, split and settled atomically within the call, and the immutable
// record is emitted with its per-speaker sequence.
func (e *Engine) Send(sender, speaker [20]byte, gross *big.Int, message string) (*Superchat, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if isZeroAddress(e.feeCollector) {
		return nil, errFeeCollectorNotSet
	}
	if isZeroAddress(e.stakeVault) {
		return nil, errVaultNotSet
	}
	if isZeroAddress(e.unattributedPool) {
		return nil, errPoolNotSet
	}
	if gross == nil || gross.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	trimmed := strings.TrimSpace(message)
	if len(trimmed) > maxMessageLength {
		return nil, ErrMessageTooLong
	}
	hosted, err := e.state.SessionHostedCount(speaker)
	if err != nil {
		return nil, err
	}
	if hosted == 0 {
		return nil, ErrNoPayoutDestination
	}
	usage, err := e.enforceQuota(sender, gross)
	if err != nil {
		return nil, err
	}

	split := Split(gross, e.feeBps, e.speakerShareBps)
	if err := e.debitSUSD(sender, gross); err != nil {
		return nil, err
	}
	if err := e.creditSUSD(e.feeCollector, split.Fee); err != nil {
		return nil, err
	}
	if err := e.creditSUSD(speaker, split.SpeakerPayout); err != nil {
		return nil, err
	}

	record := &Superchat{
		Sender:        sender,
		Speaker:       speaker,
		Gross:         new(big.Int).Set(gross),
		Fee:           split.Fee,
		SpeakerPayout: split.SpeakerPayout,
		ListenerShare: split.ListenerShare,
		Message:       trimmed,
		SentAt:        uint64(e.now()),
	}
	if split.ListenerShare.Sign() > 0 {
		live, ok, err := e.state.SessionLiveGet(speaker)
		if err != nil {
			return nil, err
		}
		if ok {
			if err := e.creditSUSD(e.stakeVault, split.ListenerShare); err != nil {
				return nil, err
			}
			if err := e.state.SessionAddListenerReward(live, split.ListenerShare); err != nil {
				return nil, err
			}
			record.Session = live
		} else {
			if err := e.creditSUSD(e.unattributedPool, split.ListenerShare); err != nil {
				return nil, err
			}
		}
	}

	sequence, err := e.state.PaymentsSequence(speaker)
	if err != nil {
		return nil, err
	}
	record.Sequence = sequence
	if err := e.state.PaymentsSuperchatPut(record); err != nil {
		return nil, err
	}
	if err := e.state.PaymentsSetSequence(speaker, sequence+1); err != nil {
		return nil, err
	}
	if err := e.state.PaymentsQuotaPut(sender, usage); err != nil {
		return nil, err
	}
	e.emit(SuperchatSentEvent(record))
	return record.Clone(), nil
}

// enforceQuota applies the per-sender quota and returns the updated counters
// for persistence once the payment succeeds.
func (e *Engine) enforceQuota(sender [20]byte, gross *big.Int) (common.QuotaNow, error) {
	prev, _, err := e.state.PaymentsQuotaGet(sender)
	if err != nil {
		return common.QuotaNow{}, err
	}
	if e.quota.EpochSeconds == 0 {
		return prev, nil
	}
	var spend uint64
	if e.quota.MaxSpendPerEpoch > 0 {
		if !gross.IsUint64() {
			return prev, common.ErrQuotaSpendExceeded
		}
		spend = gross.Uint64()
	}
	epoch := uint64(e.now()) / uint64(e.quota.EpochSeconds)
	return common.CheckQuota(e.quota, epoch, prev, 1, spend)
}

func (e *Engine) debitSUSD(addr [20]byte, amount *big.Int) error {
	account, err := e.state.GetAccount(addr[:])
	if err != nil {
		return err
	}
	account = ensureAccount(account)
	if account.BalanceSUSD.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	account.BalanceSUSD = new(big.Int).Sub(account.BalanceSUSD, amount)
	return e.state.PutAccount(addr[:], account)
}

func (e *Engine) creditSUSD(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	account, err := e.state.GetAccount(addr[:])
	if err != nil {
		return err
	}
	account = ensureAccount(account)
	account.BalanceSUSD = new(big.Int).Add(account.BalanceSUSD, amount)
	return e.state.PutAccount(addr[:], account)
}
