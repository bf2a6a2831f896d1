package state

import (
	"fmt"
	"math/big"

	"stakespeaks/native/yieldpool"
)

var (
	poolPrefix   = []byte("yieldpool/pool/")
	poolIndexKey = []byte("yieldpool/index")
)

func poolKey(id [32]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", poolPrefix, id))
}

type storedPool struct {
	ID          [32]byte
	Name        string
	Token       string
	RateBps     uint32
	Principal   *big.Int
	LastAccrual uint64
	CreatedAt   uint64
}

// YieldPoolGet loads a pool record.
func (m *Manager) YieldPoolGet(id [32]byte) (*yieldpool.Pool, bool, error) {
	var stored storedPool
	ok, err := m.KVGet(poolKey(id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &yieldpool.Pool{
		ID:          stored.ID,
		Name:        stored.Name,
		Token:       stored.Token,
		RateBps:     stored.RateBps,
		Principal:   nonNil(stored.Principal),
		LastAccrual: stored.LastAccrual,
		CreatedAt:   stored.CreatedAt,
	}, true, nil
}

// YieldPoolPut persists a pool record and maintains the registry index. Pools
// are never deleted; zero-balance pools remain as historical records.
func (m *Manager) YieldPoolPut(pool *yieldpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("state: pool required")
	}
	stored := storedPool{
		ID:          pool.ID,
		Name:        pool.Name,
		Token:       pool.Token,
		RateBps:     pool.RateBps,
		Principal:   nonNil(pool.Principal),
		LastAccrual: pool.LastAccrual,
		CreatedAt:   pool.CreatedAt,
	}
	if err := m.KVPut(poolKey(pool.ID), &stored); err != nil {
		return err
	}
	return m.KVAppend(poolIndexKey, pool.ID[:])
}

// YieldPools lists every registered pool in creation order.
func (m *Manager) YieldPools() ([]*yieldpool.Pool, error) {
	ids, err := m.KVList(poolIndexKey)
	if err != nil {
		return nil, err
	}
	pools := make([]*yieldpool.Pool, 0, len(ids))
	for _, raw := range ids {
		if len(raw) != 32 {
			return nil, fmt.Errorf("state: malformed pool index entry")
		}
		var id [32]byte
		copy(id[:], raw)
		pool, ok, err := m.YieldPoolGet(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("state: pool index entry missing record %x", id)
		}
		pools = append(pools, pool)
	}
	return pools, nil
}
