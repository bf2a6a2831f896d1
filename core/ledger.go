package core

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"stakespeaks/config"
	"stakespeaks/core/events"
	"stakespeaks/core/state"
	"stakespeaks/core/types"
	"stakespeaks/native/common"
	"stakespeaks/native/payments"
	"stakespeaks/native/reputation"
	"stakespeaks/native/sessions"
	"stakespeaks/native/yieldpool"
	"stakespeaks/observability/metrics"
	"stakespeaks/storage"
)

// Module identifiers accepted by the pause switchboard.
const (
	ModuleSessions   = "sessions"
	ModuleYieldPool  = "yieldpool"
	ModulePayments   = "payments"
	ModuleReputation = "reputation"
)

// ErrSpeakerNotRegistered is returned by CreateSession when auto-registration
// is disabled and the speaker has no reputation record.
var ErrSpeakerNotRegistered = errors.New("core: speaker not registered")

// Ledger wires the state manager and the native engines into the public
// operation surface. Every mutating call resolves authorization, pause state
// and economics before touching balances.
type Ledger struct {
	cfg     *config.Config
	manager *state.Manager

	sessions   *sessions.Engine
	yieldpool  *yieldpool.Engine
	payments   *payments.Engine
	reputation *reputation.Engine

	operator [20]byte
	metrics  *metrics.LedgerMetrics
}

// NewLedger constructs the ledger from a validated configuration and an open
// storage backend.
func NewLedger(cfg *config.Config, db storage.Database) (*Ledger, error) {
	if cfg == nil {
		return nil, errors.New("core: configuration required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if db == nil {
		return nil, errors.New("core: storage backend required")
	}
	operator, err := config.ParseAddress(cfg.Operator)
	if err != nil {
		return nil, err
	}
	stakeVault, err := config.ParseAddress(cfg.StakeVault)
	if err != nil {
		return nil, err
	}
	poolVault, err := config.ParseAddress(cfg.PoolVault)
	if err != nil {
		return nil, err
	}
	treasury, err := config.ParseAddress(cfg.RewardsTreasury)
	if err != nil {
		return nil, err
	}
	feeCollector, err := config.ParseAddress(cfg.FeeCollector)
	if err != nil {
		return nil, err
	}
	unattributed, err := config.ParseAddress(cfg.UnattributedPool)
	if err != nil {
		return nil, err
	}

	manager := state.NewManager(db)
	for _, module := range cfg.PausedModules {
		manager.SetPaused(module, true)
	}

	sessionEngine := sessions.NewEngine()
	sessionEngine.SetState(manager)
	sessionEngine.SetStakeVault(stakeVault)
	sessionEngine.SetUnattributedPool(unattributed)
	sessionEngine.SetOperator(operator)

	poolEngine := yieldpool.NewEngine()
	poolEngine.SetState(manager)
	poolEngine.SetPoolVault(poolVault)
	poolEngine.SetRewardsTreasury(treasury)
	poolEngine.SetOperator(operator)
	poolEngine.SetParticipantShareBps(cfg.ParticipantShareBps)

	paymentEngine := payments.NewEngine()
	paymentEngine.SetState(manager)
	paymentEngine.SetFeeCollector(feeCollector)
	paymentEngine.SetStakeVault(stakeVault)
	paymentEngine.SetUnattributedPool(unattributed)
	paymentEngine.SetSplit(cfg.PlatformFeeBps, cfg.SpeakerShareBps)
	paymentEngine.SetQuota(common.Quota{
		MaxRequestsPerEpoch: cfg.SuperchatMaxPerEpoch,
		MaxSpendPerEpoch:    cfg.SuperchatSpendPerEpoch,
		EpochSeconds:        cfg.SuperchatEpochSeconds,
	})

	reputationEngine := reputation.NewEngine()
	reputationEngine.SetState(manager)
	reputationEngine.SetMultiplierBounds(cfg.MultiplierFloorBps, cfg.MultiplierCeilingBps)

	return &Ledger{
		cfg:        cfg,
		manager:    manager,
		sessions:   sessionEngine,
		yieldpool:  poolEngine,
		payments:   paymentEngine,
		reputation: reputationEngine,
		operator:   operator,
		metrics:    metrics.Ledger(),
	}, nil
}

// State exposes the underlying state manager for read paths and tooling.
func (l *Ledger) State() *state.Manager { return l.manager }

// SetEmitter propagates the event sink to every engine.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	l.sessions.SetEmitter(emitter)
	l.yieldpool.SetEmitter(emitter)
	l.payments.SetEmitter(emitter)
	l.reputation.SetEmitter(emitter)
}

// SetNowFunc propagates a deterministic clock to every engine.
func (l *Ledger) SetNowFunc(now func() int64) {
	l.sessions.SetNowFunc(now)
	l.yieldpool.SetNowFunc(now)
	l.payments.SetNowFunc(now)
	l.reputation.SetNowFunc(now)
}

// SetPaused flips the pause switch for a module. Operator only.
func (l *Ledger) SetPaused(caller [20]byte, module string, paused bool) error {
	if caller != l.operator {
		return sessions.ErrNotAuthorized
	}
	l.manager.SetPaused(module, paused)
	return nil
}

// RegisterSpeaker creates the reputation record for a speaker.
func (l *Ledger) RegisterSpeaker(speaker [20]byte) (*reputation.SpeakerRecord, error) {
	if err := common.Guard(l.manager, ModuleReputation); err != nil {
		return nil, err
	}
	return l.reputation.Register(speaker)
}

// Speaker fetches the reputation record for a speaker.
func (l *Ledger) Speaker(speaker [20]byte) (*reputation.SpeakerRecord, bool, error) {
	return l.reputation.Record(speaker)
}

// CreateSession registers a new scheduled session. The stake requirement is
// priced from the speaker's current reputation multiplier and frozen for the
// session's lifetime.
func (l *Ledger) CreateSession(speaker [20]byte, title string, baseStake *big.Int, maxParticipants uint32, startTime int64, duration uint64, poolID [32]byte) (*sessions.Session, error) {
	if err := common.Guard(l.manager, ModuleSessions); err != nil {
		return nil, err
	}
	multiplier, ok, err := l.reputation.Multiplier(speaker)
	if err != nil {
		return nil, err
	}
	if !ok {
		if !l.cfg.AutoRegisterSpeakers {
			return nil, ErrSpeakerNotRegistered
		}
		if _, err := l.reputation.Register(speaker); err != nil {
			return nil, err
		}
		multiplier, _, err = l.reputation.Multiplier(speaker)
		if err != nil {
			return nil, err
		}
	}
	session, err := l.sessions.Create(speaker, title, baseStake, multiplier, maxParticipants, startTime, duration, poolID)
	if err != nil {
		return nil, err
	}
	l.metrics.ObserveSessionCreated()
	return session, nil
}

// Session fetches a session snapshot.
func (l *Ledger) Session(id [32]byte) (*sessions.Session, bool, error) {
	return l.sessions.Get(id)
}

// Participants returns the roster of a session in join order.
func (l *Ledger) Participants(id [32]byte) ([]*sessions.Participant, error) {
	return l.sessions.Participants(id)
}

// JoinSession escrows the listener's stake and reserves a roster seat.
func (l *Ledger) JoinSession(id [32]byte, listener [20]byte, stake *big.Int) (*sessions.Participant, error) {
	if err := common.Guard(l.manager, ModuleSessions); err != nil {
		return nil, err
	}
	participant, err := l.sessions.Join(id, listener, stake)
	if err != nil {
		return nil, err
	}
	l.metrics.ObserveParticipantJoined()
	l.metrics.AddStakeEscrowed(bigFloat(participant.StakeAmount))
	return participant, nil
}

// StartSession transitions a scheduled session to Live.
func (l *Ledger) StartSession(id [32]byte, caller [20]byte) (*sessions.Session, error) {
	if err := common.Guard(l.manager, ModuleSessions); err != nil {
		return nil, err
	}
	return l.sessions.Start(id, caller)
}

// CompleteSession settles yield for the session's pool and finalises the
// session: stakes return to listeners, the participant share of the yield is
// paid pro-rata, the remainder compounds into the pool, and accumulated
// listener rewards are distributed.
func (l *Ledger) CompleteSession(id [32]byte, caller [20]byte, metadataRef string) (*sessions.Session, *yieldpool.Settlement, error) {
	if err := common.Guard(l.manager, ModuleSessions); err != nil {
		return nil, nil, err
	}
	session, roster, err := l.sessions.Completable(id, caller)
	if err != nil {
		return nil, nil, err
	}
	var settlement *yieldpool.Settlement
	snapshot := &sessions.YieldSnapshot{
		Total:       big.NewInt(0),
		Distributed: big.NewInt(0),
		Retained:    big.NewInt(0),
	}
	if session.HasPool() {
		shares := make([]yieldpool.StakeShare, 0, len(roster))
		for _, participant := range roster {
			shares = append(shares, yieldpool.StakeShare{
				Listener: participant.Listener,
				Stake:    participant.StakeAmount,
			})
		}
		settlement, err = l.yieldpool.SettleSession(session.PoolID, session.ID, session.TotalStaked, shares)
		if err != nil {
			return nil, nil, err
		}
		snapshot.PoolID = settlement.PoolID
		snapshot.Total = settlement.Total
		snapshot.Distributed = settlement.Distributed
		snapshot.Retained = settlement.Retained
	}
	completed, err := l.sessions.Complete(id, caller, metadataRef, snapshot)
	if err != nil {
		return nil, nil, err
	}
	l.metrics.ObserveSessionFinished("completed")
	l.metrics.AddStakeEscrowed(-bigFloat(completed.TotalStaked))
	if settlement != nil {
		l.metrics.ObserveYieldDistributed("participants", bigFloat(settlement.Distributed))
		l.metrics.ObserveYieldDistributed("pool", bigFloat(settlement.Retained))
		dust := new(big.Int).Sub(yieldpool.ShareOf(settlement.Total, l.cfg.ParticipantShareBps), settlement.Distributed)
		l.metrics.ObserveRoundingDust("settlement", bigFloat(dust))
	}
	return completed, settlement, nil
}

// CancelSession aborts a scheduled session and refunds every stake in full.
func (l *Ledger) CancelSession(id [32]byte, caller [20]byte) (*sessions.Session, error) {
	if err := common.Guard(l.manager, ModuleSessions); err != nil {
		return nil, err
	}
	cancelled, err := l.sessions.Cancel(id, caller)
	if err != nil {
		return nil, err
	}
	l.metrics.ObserveSessionFinished("cancelled")
	l.metrics.AddStakeEscrowed(-bigFloat(cancelled.TotalStaked))
	return cancelled, nil
}

// SendSuperchat routes a superchat payment through the platform split.
func (l *Ledger) SendSuperchat(sender, speaker [20]byte, gross *big.Int, message string) (*payments.Superchat, error) {
	if err := common.Guard(l.manager, ModulePayments); err != nil {
		return nil, err
	}
	record, err := l.payments.Send(sender, speaker, gross, message)
	if err != nil {
		return nil, err
	}
	attribution := "unattributed"
	if record.Attributed() {
		attribution = "live"
	}
	l.metrics.ObserveSuperchat(attribution, bigFloat(record.Gross), bigFloat(record.Fee))
	return record, nil
}

// Superchat fetches a stored superchat record by speaker and sequence.
func (l *Ledger) Superchat(speaker [20]byte, sequence uint64) (*payments.Superchat, bool, error) {
	return l.manager.PaymentsSuperchatGet(speaker, sequence)
}

// RateSession records a participant's rating for a completed session. Only
// roster members may rate, each exactly once, and the speaker's multiplier
// moves for future sessions only.
func (l *Ledger) RateSession(id [32]byte, rater [20]byte, value uint32) (*reputation.SpeakerRecord, error) {
	if err := common.Guard(l.manager, ModuleReputation); err != nil {
		return nil, err
	}
	session, ok, err := l.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	if session.Status != sessions.SessionCompleted {
		return nil, sessions.ErrInvalidState
	}
	if _, joined, err := l.manager.SessionParticipantGet(id, rater); err != nil {
		return nil, err
	} else if !joined {
		return nil, sessions.ErrNotAuthorized
	}
	record, err := l.reputation.Rate(id, rater, session.Speaker, value)
	if err != nil {
		return nil, err
	}
	l.metrics.ObserveRatingRecorded()
	return record, nil
}

// CreatePool registers a yield pool. Operator only.
func (l *Ledger) CreatePool(caller [20]byte, name, token string, rateBps uint32) (*yieldpool.Pool, error) {
	if err := common.Guard(l.manager, ModuleYieldPool); err != nil {
		return nil, err
	}
	return l.yieldpool.Create(caller, name, token, rateBps)
}

// Pool fetches a pool snapshot.
func (l *Ledger) Pool(id [32]byte) (*yieldpool.Pool, bool, error) {
	return l.yieldpool.Get(id)
}

// DepositPool moves the caller's staking tokens into a pool.
func (l *Ledger) DepositPool(id [32]byte, from [20]byte, amount *big.Int) (*yieldpool.Pool, error) {
	if err := common.Guard(l.manager, ModuleYieldPool); err != nil {
		return nil, err
	}
	return l.yieldpool.Deposit(id, from, amount)
}

// AccruePool applies simple interest for the elapsed window.
func (l *Ledger) AccruePool(id [32]byte) (*yieldpool.Pool, *big.Int, error) {
	if err := common.Guard(l.manager, ModuleYieldPool); err != nil {
		return nil, nil, err
	}
	return l.yieldpool.Accrue(id)
}

// WithdrawPool releases pool principal to the recipient. Operator only.
func (l *Ledger) WithdrawPool(id [32]byte, caller, to [20]byte, amount *big.Int) (*yieldpool.Pool, error) {
	if err := common.Guard(l.manager, ModuleYieldPool); err != nil {
		return nil, err
	}
	return l.yieldpool.Withdraw(id, caller, to, amount)
}

// Account fetches the balances for an address.
func (l *Ledger) Account(addr [20]byte) (*types.Account, error) {
	return l.manager.GetAccount(addr[:])
}

// MintSPK issues staking tokens to an address. Operator only; mints are the
// sole supply entry point and are tracked against total supply.
func (l *Ledger) MintSPK(caller, to [20]byte, amount *big.Int) error {
	if caller != l.operator {
		return sessions.ErrNotAuthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return sessions.ErrInvalidAmount
	}
	return l.manager.MintSPK(to[:], amount)
}

// MintSUSD issues payment tokens to an address. Operator only.
func (l *Ledger) MintSUSD(caller, to [20]byte, amount *big.Int) error {
	if caller != l.operator {
		return sessions.ErrNotAuthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return sessions.ErrInvalidAmount
	}
	return l.manager.MintSUSD(to[:], amount)
}

// OpenDatabase opens the storage backend named in the configuration.
func OpenDatabase(cfg *config.Config) (storage.Database, error) {
	if cfg == nil {
		return nil, errors.New("core: configuration required")
	}
	switch cfg.Backend {
	case "memory":
		return storage.NewMemDB(), nil
	case "leveldb":
		return storage.NewLevelDB(cfg.DataDir)
	case "bolt":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "ledger.db"))
	default:
		return nil, fmt.Errorf("core: unknown storage backend %q", cfg.Backend)
	}
}

func bigFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
