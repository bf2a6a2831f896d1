package types

import "math/big"

// Account holds the two independently accounted fungible balances recognised
// by the ledger: SPK (the staking token) and SUSD (the stablecoin used for
// superchat payments). Module funds (session vault, pool vault, treasury, fee
// collector, unattributed pool) live in ordinary accounts owned by nobody.
type Account struct {
	Nonce       uint64   `json:"nonce"`
	BalanceSPK  *big.Int `json:"balanceSPK"`
	BalanceSUSD *big.Int `json:"balanceSUSD"`
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	if a.BalanceSPK != nil {
		clone.BalanceSPK = new(big.Int).Set(a.BalanceSPK)
	}
	if a.BalanceSUSD != nil {
		clone.BalanceSUSD = new(big.Int).Set(a.BalanceSUSD)
	}
	return &clone
}
