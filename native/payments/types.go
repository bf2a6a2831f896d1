package payments

import "math/big"

// Superchat is the immutable record of one instant payment from a listener to
// a speaker. Identity is the (sender, speaker, sequence) triple; the sequence
// increases per speaker. Records are never mutated or deleted.
type Superchat struct {
	Sender        [20]byte
	Speaker       [20]byte
	Sequence      uint64
	Gross         *big.Int
	Fee           *big.Int
	SpeakerPayout *big.Int
	ListenerShare *big.Int
	Session       [32]byte
	Message       string
	SentAt        uint64
}

// Attributed reports whether the listener share was credited to a live
// session rather than the unattributed pool.
func (s *Superchat) Attributed() bool {
	return s != nil && s.Session != ([32]byte{})
}

// Clone returns a deep copy of the record.
func (s *Superchat) Clone() *Superchat {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Gross = cloneBigInt(s.Gross)
	clone.Fee = cloneBigInt(s.Fee)
	clone.SpeakerPayout = cloneBigInt(s.SpeakerPayout)
	clone.ListenerShare = cloneBigInt(s.ListenerShare)
	return &clone
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
