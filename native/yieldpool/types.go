package yieldpool

import (
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// StakingToken is the only token pools may hold.
const StakingToken = "SPK"

// Pool tracks one named compounding pool. Principal is the audited book value
// of the pool vault's share attributable to this pool; it never goes negative
// and pools are never deleted, so drained pools remain as historical records.
type Pool struct {
	ID          [32]byte
	Name        string
	Token       string
	RateBps     uint32
	Principal   *big.Int
	LastAccrual uint64
	CreatedAt   uint64
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Principal != nil {
		clone.Principal = new(big.Int).Set(p.Principal)
	} else {
		clone.Principal = big.NewInt(0)
	}
	return &clone
}

// PoolID derives the deterministic identifier from the normalized pool name.
func PoolID(name string) [32]byte {
	normalized := strings.ToLower(strings.TrimSpace(name))
	hash := ethcrypto.Keccak256([]byte(normalized))
	var id [32]byte
	copy(id[:], hash)
	return id
}

// NormalizeToken ensures the provided token symbol matches the staking token
// and returns the canonical uppercase form.
func NormalizeToken(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed != StakingToken {
		return "", fmt.Errorf("unsupported pool token: %s", symbol)
	}
	return trimmed, nil
}

// StakeShare is one participant's contribution to a settled session.
type StakeShare struct {
	Listener [20]byte
	Stake    *big.Int
}

// Payout is one participant's realised share of a settlement.
type Payout struct {
	Listener [20]byte
	Amount   *big.Int
}

// Settlement is the audited result of applying the distribution rule to one
// completed session: Distributed + Retained == Total exactly, with flooring
// dust folded into Retained.
type Settlement struct {
	PoolID      [32]byte
	Total       *big.Int
	Distributed *big.Int
	Retained    *big.Int
	Payouts     []Payout
	Funded      bool
}
