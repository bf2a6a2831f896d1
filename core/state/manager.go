package state

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"stakespeaks/core/types"
	"stakespeaks/storage"
)

// Manager provides the single explicit state store every engine mutates
// through. Keys are hashed with keccak256 and values are RLP encoded before
// hitting the backing database; the substrate below is assumed to apply each
// top-level call atomically and in order.
type Manager struct {
	db storage.Database

	mu     sync.RWMutex
	pauses map[string]bool
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:     db,
		pauses: make(map[string]bool),
	}
}

var (
	accountPrefix = []byte("accounts/")
	supplySPKKey  = []byte("supply/spk")
	supplySUSDKey = []byte("supply/susd")
)

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func accountKey(addr []byte) []byte {
	buf := make([]byte, len(accountPrefix)+len(addr))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr)
	return buf
}

// KVPut stores the provided value under the supplied key using RLP encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the
// key existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.db.Get(kvKey(key))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVAppend appends the provided value to the RLP-encoded byte slice list
// stored under the supplied key. Duplicate values are ignored to keep indexes
// deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	list, err := m.KVList(key)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return m.KVPut(key, list)
}

// KVList retrieves the RLP-encoded byte slice list stored under the supplied
// key; missing keys read as an empty list.
func (m *Manager) KVList(key []byte) ([][]byte, error) {
	var list [][]byte
	if _, err := m.KVGet(key, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = [][]byte{}
	}
	return list, nil
}

type storedAccount struct {
	Nonce       uint64
	BalanceSPK  *big.Int
	BalanceSUSD *big.Int
}

// GetAccount loads the account for the supplied address. Unknown addresses
// read as zero-balance accounts.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	var stored storedAccount
	ok, err := m.KVGet(accountKey(addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{BalanceSPK: big.NewInt(0), BalanceSUSD: big.NewInt(0)}, nil
	}
	account := &types.Account{
		Nonce:       stored.Nonce,
		BalanceSPK:  stored.BalanceSPK,
		BalanceSUSD: stored.BalanceSUSD,
	}
	if account.BalanceSPK == nil {
		account.BalanceSPK = big.NewInt(0)
	}
	if account.BalanceSUSD == nil {
		account.BalanceSUSD = big.NewInt(0)
	}
	return account, nil
}

// PutAccount persists the account for the supplied address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: account required")
	}
	stored := storedAccount{
		Nonce:       account.Nonce,
		BalanceSPK:  account.BalanceSPK,
		BalanceSUSD: account.BalanceSUSD,
	}
	if stored.BalanceSPK == nil {
		stored.BalanceSPK = big.NewInt(0)
	}
	if stored.BalanceSUSD == nil {
		stored.BalanceSUSD = big.NewInt(0)
	}
	return m.KVPut(accountKey(addr), &stored)
}

// MintSPK credits freshly issued staking tokens and tracks total supply.
// Genesis and the rewards treasury top-up path are the only callers.
func (m *Manager) MintSPK(addr []byte, amount *big.Int) error {
	return m.mint(addr, amount, true)
}

// MintSUSD credits freshly issued payment tokens and tracks total supply.
func (m *Manager) MintSUSD(addr []byte, amount *big.Int) error {
	return m.mint(addr, amount, false)
}

func (m *Manager) mint(addr []byte, amount *big.Int, spk bool) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("state: mint amount must be positive")
	}
	account, err := m.GetAccount(addr)
	if err != nil {
		return err
	}
	supplyKey := supplySUSDKey
	if spk {
		supplyKey = supplySPKKey
	}
	supply := new(big.Int)
	if _, err := m.KVGet(supplyKey, supply); err != nil {
		return err
	}
	if spk {
		account.BalanceSPK = new(big.Int).Add(account.BalanceSPK, amount)
	} else {
		account.BalanceSUSD = new(big.Int).Add(account.BalanceSUSD, amount)
	}
	if err := m.PutAccount(addr, account); err != nil {
		return err
	}
	return m.KVPut(supplyKey, new(big.Int).Add(supply, amount))
}

// TotalSupplySPK returns the cumulative minted staking token supply.
func (m *Manager) TotalSupplySPK() (*big.Int, error) {
	supply := new(big.Int)
	if _, err := m.KVGet(supplySPKKey, supply); err != nil {
		return nil, err
	}
	return supply, nil
}

// TotalSupplySUSD returns the cumulative minted payment token supply.
func (m *Manager) TotalSupplySUSD() (*big.Int, error) {
	supply := new(big.Int)
	if _, err := m.KVGet(supplySUSDKey, supply); err != nil {
		return nil, err
	}
	return supply, nil
}

// SetPaused toggles the operator pause switch for a module.
func (m *Manager) SetPaused(module string, paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses[module] = paused
}

// IsPaused implements common.PauseView.
func (m *Manager) IsPaused(module string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pauses[module]
}
