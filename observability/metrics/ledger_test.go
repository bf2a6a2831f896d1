package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRoundingDustSetsFlowGauge(t *testing.T) {
	m := Ledger()
	m.ObserveRoundingDust("settlement", 2)
	if got := testutil.ToFloat64(m.roundingDust.WithLabelValues("settlement")); got != 2 {
		t.Fatalf("settlement dust gauge %v, want 2", got)
	}
	m.ObserveRoundingDust("", 1)
	if got := testutil.ToFloat64(m.roundingDust.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("unknown flow gauge %v, want 1", got)
	}
}

func TestAddStakeEscrowedMovesGaugeBothWays(t *testing.T) {
	m := Ledger()
	before := testutil.ToFloat64(m.stakeEscrowed)
	m.AddStakeEscrowed(25)
	m.AddStakeEscrowed(-10)
	if got := testutil.ToFloat64(m.stakeEscrowed) - before; got != 15 {
		t.Fatalf("escrow gauge moved by %v, want 15", got)
	}
}
