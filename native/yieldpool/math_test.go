package yieldpool

import (
	"math/big"
	"testing"
)

func TestSimpleInterest(t *testing.T) {
	principal := big.NewInt(10_000)
	if got := SimpleInterest(principal, 500, YearSeconds); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("full year at 5%%: got %s, want 500", got)
	}
	if got := SimpleInterest(principal, 500, YearSeconds/2); got.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("half year at 5%%: got %s, want 250", got)
	}
	if got := SimpleInterest(principal, 500, 0); got.Sign() != 0 {
		t.Fatalf("zero elapsed: got %s, want 0", got)
	}
	if got := SimpleInterest(principal, 500, -10); got.Sign() != 0 {
		t.Fatalf("negative elapsed: got %s, want 0", got)
	}
	if got := SimpleInterest(nil, 500, YearSeconds); got.Sign() != 0 {
		t.Fatalf("nil principal: got %s, want 0", got)
	}
	// Tiny windows floor to zero instead of rounding up.
	if got := SimpleInterest(big.NewInt(1), 500, 1); got.Sign() != 0 {
		t.Fatalf("dust window: got %s, want 0", got)
	}
}

func TestEpochYield(t *testing.T) {
	if got := EpochYield(big.NewInt(2_000), 500); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("got %s, want 100", got)
	}
	if got := EpochYield(big.NewInt(0), 500); got.Sign() != 0 {
		t.Fatalf("zero stake: got %s, want 0", got)
	}
	if got := EpochYield(nil, 500); got.Sign() != 0 {
		t.Fatalf("nil stake: got %s, want 0", got)
	}
}

func TestShareOf(t *testing.T) {
	if got := ShareOf(big.NewInt(100), 3_000); got.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("got %s, want 30", got)
	}
	if got := ShareOf(big.NewInt(1), 3_000); got.Sign() != 0 {
		t.Fatalf("flooring share: got %s, want 0", got)
	}
	if got := ShareOf(nil, 3_000); got.Sign() != 0 {
		t.Fatalf("nil amount: got %s, want 0", got)
	}
}

func TestProRata(t *testing.T) {
	pot := big.NewInt(30)
	total := big.NewInt(3_000)
	if got := ProRata(pot, big.NewInt(2_000), total); got.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("got %s, want 20", got)
	}
	if got := ProRata(pot, big.NewInt(1_000), total); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("got %s, want 10", got)
	}
	if got := ProRata(pot, big.NewInt(500), big.NewInt(0)); got.Sign() != 0 {
		t.Fatalf("zero total: got %s, want 0", got)
	}
	// Flooring never overpays: the sum of shares stays at or below the pot.
	shares := []int64{333, 333, 334}
	sum := big.NewInt(0)
	for _, s := range shares {
		sum = sum.Add(sum, ProRata(big.NewInt(100), big.NewInt(s), big.NewInt(1_000)))
	}
	if sum.Cmp(big.NewInt(100)) > 0 {
		t.Fatalf("shares overpay: %s", sum)
	}
}
