package payments

import (
	"math/big"
	"testing"
)

func TestSplitCanonicalAmounts(t *testing.T) {
	result := Split(big.NewInt(100), 500, 8_000)
	if result.Fee.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("fee %s, want 5", result.Fee)
	}
	if result.SpeakerPayout.Cmp(big.NewInt(76)) != 0 {
		t.Fatalf("speaker %s, want 76", result.SpeakerPayout)
	}
	if result.ListenerShare.Cmp(big.NewInt(19)) != 0 {
		t.Fatalf("listener %s, want 19", result.ListenerShare)
	}
}

func TestSplitConservesEveryGross(t *testing.T) {
	for gross := int64(1); gross <= 1_000; gross++ {
		result := Split(big.NewInt(gross), 500, 8_000)
		sum := new(big.Int).Add(result.Fee, result.SpeakerPayout)
		sum = sum.Add(sum, result.ListenerShare)
		if sum.Cmp(big.NewInt(gross)) != 0 {
			t.Fatalf("gross %d leaks: fee=%s speaker=%s listener=%s", gross, result.Fee, result.SpeakerPayout, result.ListenerShare)
		}
		if result.Fee.Sign() < 0 || result.SpeakerPayout.Sign() < 0 || result.ListenerShare.Sign() < 0 {
			t.Fatalf("negative component at gross %d", gross)
		}
	}
}

func TestSplitTinyAmounts(t *testing.T) {
	// 1 unit: fee floors to 0, speaker share floors to 0, listener gets the rest.
	result := Split(big.NewInt(1), 500, 8_000)
	if result.Fee.Sign() != 0 {
		t.Fatalf("fee %s, want 0", result.Fee)
	}
	sum := new(big.Int).Add(result.SpeakerPayout, result.ListenerShare)
	if sum.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("tiny gross leaks: %s", sum)
	}
}

func TestSplitFullFee(t *testing.T) {
	result := Split(big.NewInt(100), 10_000, 8_000)
	if result.Fee.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("fee %s, want 100", result.Fee)
	}
	if result.SpeakerPayout.Sign() != 0 || result.ListenerShare.Sign() != 0 {
		t.Fatal("full fee should leave nothing to split")
	}
}
