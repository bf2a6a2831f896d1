package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"stakespeaks/native/common"
	"stakespeaks/native/payments"
	"stakespeaks/native/reputation"
	"stakespeaks/native/sessions"
	"stakespeaks/native/yieldpool"
	"stakespeaks/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

func id(first byte) [32]byte {
	var out [32]byte
	out[0] = first
	return out
}

func TestAccountRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	owner := addr(0x01)

	// Unknown accounts read as zero balances.
	account, err := manager.GetAccount(owner[:])
	require.NoError(t, err)
	require.Zero(t, account.BalanceSPK.Sign())
	require.Zero(t, account.BalanceSUSD.Sign())

	account.Nonce = 3
	account.BalanceSPK = big.NewInt(1_500)
	account.BalanceSUSD = big.NewInt(250)
	require.NoError(t, manager.PutAccount(owner[:], account))

	loaded, err := manager.GetAccount(owner[:])
	require.NoError(t, err)
	require.Equal(t, uint64(3), loaded.Nonce)
	require.Equal(t, big.NewInt(1_500), loaded.BalanceSPK)
	require.Equal(t, big.NewInt(250), loaded.BalanceSUSD)
}

func TestMintTracksSupply(t *testing.T) {
	manager := newTestManager(t)
	owner := addr(0x01)
	other := addr(0x02)

	require.NoError(t, manager.MintSPK(owner[:], big.NewInt(1_000)))
	require.NoError(t, manager.MintSPK(other[:], big.NewInt(500)))
	require.NoError(t, manager.MintSUSD(owner[:], big.NewInt(9_000)))

	spk, err := manager.TotalSupplySPK()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_500), spk)

	susd, err := manager.TotalSupplySUSD()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(9_000), susd)

	account, err := manager.GetAccount(owner[:])
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_000), account.BalanceSPK)
	require.Equal(t, big.NewInt(9_000), account.BalanceSUSD)
}

func TestSessionRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	session := &sessions.Session{
		ID:               id(0x01),
		Speaker:          addr(0x01),
		Title:            "Intro to Consensus",
		BaseStake:        big.NewInt(1_000),
		StakeRequirement: big.NewInt(1_420),
		MaxParticipants:  25,
		ParticipantCount: 2,
		StartTime:        2_000,
		Duration:         3_600,
		TotalStaked:      big.NewInt(2_840),
		ListenerRewards:  big.NewInt(19),
		Status:           sessions.SessionLive,
		PoolID:           id(0xAA),
		MetadataRef:      "ipfs://recording",
		CreatedAt:        1_000,
	}
	require.NoError(t, manager.SessionPut(session))

	loaded, ok, err := manager.SessionGet(session.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, session.Title, loaded.Title)
	require.Equal(t, session.StakeRequirement, loaded.StakeRequirement)
	require.Equal(t, session.Status, loaded.Status)
	require.Equal(t, session.PoolID, loaded.PoolID)
	require.Nil(t, loaded.Yield)

	// The yield snapshot survives the round trip once settled.
	session.Yield = &sessions.YieldSnapshot{
		PoolID:      id(0xAA),
		Total:       big.NewInt(100),
		Distributed: big.NewInt(30),
		Retained:    big.NewInt(70),
	}
	session.Status = sessions.SessionCompleted
	require.NoError(t, manager.SessionPut(session))

	loaded, ok, err = manager.SessionGet(session.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, loaded.Yield)
	require.Equal(t, big.NewInt(100), loaded.Yield.Total)
	require.Equal(t, big.NewInt(70), loaded.Yield.Retained)

	_, ok, err = manager.SessionGet(id(0xFF))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSessionRosterPreservesJoinOrder(t *testing.T) {
	manager := newTestManager(t)
	session := id(0x01)
	listeners := [][20]byte{addr(0x01), addr(0x02), addr(0x03)}

	for i, listener := range listeners {
		require.NoError(t, manager.SessionParticipantPut(&sessions.Participant{
			Session:     session,
			Listener:    listener,
			StakeAmount: big.NewInt(int64(1_000 + i)),
			JoinedAt:    uint64(1_000 + i),
		}))
	}
	// Re-writing a participant must not duplicate the roster entry.
	require.NoError(t, manager.SessionParticipantPut(&sessions.Participant{
		Session:     session,
		Listener:    listeners[1],
		StakeAmount: big.NewInt(1_001),
		JoinedAt:    1_001,
		PayoutClaimed: true,
	}))

	roster, err := manager.SessionParticipants(session)
	require.NoError(t, err)
	require.Len(t, roster, 3)
	for i, participant := range roster {
		require.Equal(t, listeners[i], participant.Listener)
	}
	require.True(t, roster[1].PayoutClaimed)
}

func TestSessionLivePointer(t *testing.T) {
	manager := newTestManager(t)
	speaker := addr(0x01)

	_, ok, err := manager.SessionLiveGet(speaker)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, manager.SessionLiveSet(speaker, id(0x01)))
	live, ok, err := manager.SessionLiveGet(speaker)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, id(0x01), live)

	require.NoError(t, manager.SessionLiveClear(speaker))
	_, ok, err = manager.SessionLiveGet(speaker)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSessionAddListenerReward(t *testing.T) {
	manager := newTestManager(t)
	session := &sessions.Session{
		ID:               id(0x01),
		Speaker:          addr(0x01),
		Title:            "talk",
		BaseStake:        big.NewInt(100),
		StakeRequirement: big.NewInt(100),
		MaxParticipants:  5,
		TotalStaked:      big.NewInt(0),
		ListenerRewards:  big.NewInt(0),
		Status:           sessions.SessionLive,
	}
	require.NoError(t, manager.SessionPut(session))
	require.NoError(t, manager.SessionAddListenerReward(session.ID, big.NewInt(19)))
	require.NoError(t, manager.SessionAddListenerReward(session.ID, big.NewInt(19)))

	loaded, ok, err := manager.SessionGet(session.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, big.NewInt(38), loaded.ListenerRewards)
}

func TestYieldPoolRoundTripAndIndex(t *testing.T) {
	manager := newTestManager(t)
	first := &yieldpool.Pool{
		ID:          yieldpool.PoolID("main"),
		Name:        "main",
		Token:       yieldpool.StakingToken,
		RateBps:     500,
		Principal:   big.NewInt(10_000),
		LastAccrual: 1_000,
		CreatedAt:   1_000,
	}
	second := &yieldpool.Pool{
		ID:          yieldpool.PoolID("community"),
		Name:        "community",
		Token:       yieldpool.StakingToken,
		RateBps:     300,
		Principal:   big.NewInt(0),
		LastAccrual: 1_000,
		CreatedAt:   1_000,
	}
	require.NoError(t, manager.YieldPoolPut(first))
	require.NoError(t, manager.YieldPoolPut(second))
	// Updates must not duplicate the index entry.
	first.Principal = big.NewInt(10_070)
	require.NoError(t, manager.YieldPoolPut(first))

	loaded, ok, err := manager.YieldPoolGet(first.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, big.NewInt(10_070), loaded.Principal)

	pools, err := manager.YieldPools()
	require.NoError(t, err)
	require.Len(t, pools, 2)
}

func TestSuperchatRecordsAreImmutable(t *testing.T) {
	manager := newTestManager(t)
	speaker := addr(0x02)
	record := &payments.Superchat{
		Sender:        addr(0x01),
		Speaker:       speaker,
		Sequence:      0,
		Gross:         big.NewInt(100),
		Fee:           big.NewInt(5),
		SpeakerPayout: big.NewInt(76),
		ListenerShare: big.NewInt(19),
		Message:       "great talk",
		SentAt:        1_000,
	}
	require.NoError(t, manager.PaymentsSuperchatPut(record))
	require.Error(t, manager.PaymentsSuperchatPut(record))

	loaded, ok, err := manager.PaymentsSuperchatGet(speaker, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "great talk", loaded.Message)
	require.Equal(t, big.NewInt(76), loaded.SpeakerPayout)

	_, ok, err = manager.PaymentsSuperchatGet(speaker, 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPaymentsSequenceAndQuota(t *testing.T) {
	manager := newTestManager(t)
	speaker := addr(0x02)
	sender := addr(0x01)

	sequence, err := manager.PaymentsSequence(speaker)
	require.NoError(t, err)
	require.Zero(t, sequence)

	require.NoError(t, manager.PaymentsSetSequence(speaker, 7))
	sequence, err = manager.PaymentsSequence(speaker)
	require.NoError(t, err)
	require.Equal(t, uint64(7), sequence)

	_, ok, err := manager.PaymentsQuotaGet(sender)
	require.NoError(t, err)
	require.False(t, ok)

	usage := common.QuotaNow{ReqCount: 3, SpendUsed: 420, EpochID: 12}
	require.NoError(t, manager.PaymentsQuotaPut(sender, usage))
	loaded, ok, err := manager.PaymentsQuotaGet(sender)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, usage, loaded)
}

func TestReputationRoundTrip(t *testing.T) {
	manager := newTestManager(t)
	speaker := addr(0x01)

	_, ok, err := manager.ReputationGet(speaker)
	require.NoError(t, err)
	require.False(t, ok)

	record := &reputation.SpeakerRecord{Speaker: speaker, RatingSum: 900, RatingCount: 2, CreatedAt: 1_000}
	require.NoError(t, manager.ReputationPut(record))

	loaded, ok, err := manager.ReputationGet(speaker)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(450), loaded.Average())

	receipt := &reputation.RatingReceipt{Session: id(0x01), Rater: addr(0x02), Speaker: speaker, Value: 400, RatedAt: 1_100}
	require.NoError(t, manager.ReputationReceiptPut(receipt))
	loadedReceipt, ok, err := manager.ReputationReceiptGet(id(0x01), addr(0x02))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(400), loadedReceipt.Value)

	_, ok, err = manager.ReputationReceiptGet(id(0x01), addr(0x03))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPauseSwitches(t *testing.T) {
	manager := newTestManager(t)
	require.False(t, manager.IsPaused("payments"))
	manager.SetPaused("payments", true)
	require.True(t, manager.IsPaused("payments"))
	require.False(t, manager.IsPaused("sessions"))
	manager.SetPaused("payments", false)
	require.False(t, manager.IsPaused("payments"))
}

func TestAccountClonesAreIsolated(t *testing.T) {
	manager := newTestManager(t)
	owner := addr(0x01)
	require.NoError(t, manager.MintSPK(owner[:], big.NewInt(100)))

	account, err := manager.GetAccount(owner[:])
	require.NoError(t, err)
	account.BalanceSPK.SetInt64(0)

	reloaded, err := manager.GetAccount(owner[:])
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), reloaded.BalanceSPK)
}
