package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaRequestsExceeded = errors.New("quota requests exceeded")
	ErrQuotaSpendExceeded    = errors.New("quota spend cap exceeded")
	ErrQuotaCounterOverflow  = errors.New("quota counter overflow")
)

// QuotaNow captures the current quota usage counters for an address.
type QuotaNow struct {
	ReqCount  uint32
	SpendUsed uint64
	EpochID   uint64
}

// Quota defines the limits enforced for a module interaction per address. A
// zero limit disables the corresponding check.
type Quota struct {
	MaxRequestsPerEpoch uint32
	MaxSpendPerEpoch    uint64
	EpochSeconds        uint32
}

// CheckQuota verifies whether the additional request and spend fit within the
// configured quota. The returned QuotaNow reflects the updated counters when
// the quota is not exceeded; on failure the previous counters are returned
// untouched so callers can persist nothing.
func CheckQuota(q Quota, nowEpoch uint64, prev QuotaNow, addReq uint32, addSpend uint64) (QuotaNow, error) {
	next := prev
	if prev.EpochID != nowEpoch {
		next = QuotaNow{EpochID: nowEpoch}
	}

	if addReq > 0 {
		if next.ReqCount > math.MaxUint32-addReq {
			return prev, ErrQuotaCounterOverflow
		}
		next.ReqCount += addReq
	}
	if q.MaxRequestsPerEpoch > 0 && next.ReqCount > q.MaxRequestsPerEpoch {
		return prev, ErrQuotaRequestsExceeded
	}

	if addSpend > 0 {
		if next.SpendUsed > math.MaxUint64-addSpend {
			return prev, ErrQuotaCounterOverflow
		}
		next.SpendUsed += addSpend
	}
	if q.MaxSpendPerEpoch > 0 && next.SpendUsed > q.MaxSpendPerEpoch {
		return prev, ErrQuotaSpendExceeded
	}

	return next, nil
}
