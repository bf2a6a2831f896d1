package config

import "fmt"

var knownBackends = map[string]bool{
	"memory":  true,
	"leveldb": true,
	"bolt":    true,
}

var knownModules = map[string]bool{
	"sessions":   true,
	"yieldpool":  true,
	"payments":   true,
	"reputation": true,
}

// Validate checks internal consistency of the configuration.
func (c *Config) Validate() error {
	if !knownBackends[c.Backend] {
		return fmt.Errorf("config: unknown storage backend %q", c.Backend)
	}
	if c.MultiplierFloorBps > 10_000 {
		return fmt.Errorf("config: multiplier floor %d exceeds 10000 bps", c.MultiplierFloorBps)
	}
	if c.MultiplierCeilingBps < 10_000 {
		return fmt.Errorf("config: multiplier ceiling %d below 10000 bps", c.MultiplierCeilingBps)
	}
	if c.MultiplierFloorBps > c.MultiplierCeilingBps {
		return fmt.Errorf("config: multiplier floor %d exceeds ceiling %d", c.MultiplierFloorBps, c.MultiplierCeilingBps)
	}
	if c.PlatformFeeBps > 10_000 {
		return fmt.Errorf("config: platform fee %d exceeds 10000 bps", c.PlatformFeeBps)
	}
	if c.SpeakerShareBps > 10_000 {
		return fmt.Errorf("config: speaker share %d exceeds 10000 bps", c.SpeakerShareBps)
	}
	if c.ParticipantShareBps > 10_000 {
		return fmt.Errorf("config: participant share %d exceeds 10000 bps", c.ParticipantShareBps)
	}
	if c.SuperchatEpochSeconds == 0 && (c.SuperchatMaxPerEpoch > 0 || c.SuperchatSpendPerEpoch > 0) {
		return fmt.Errorf("config: superchat quota requires a non-zero epoch length")
	}
	addresses := map[string]string{
		"Operator":         c.Operator,
		"StakeVault":       c.StakeVault,
		"PoolVault":        c.PoolVault,
		"RewardsTreasury":  c.RewardsTreasury,
		"FeeCollector":     c.FeeCollector,
		"UnattributedPool": c.UnattributedPool,
	}
	seen := make(map[[20]byte]string, len(addresses))
	for name, value := range addresses {
		addr, err := ParseAddress(value)
		if err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
		if addr == ([20]byte{}) {
			return fmt.Errorf("config: %s must not be the zero address", name)
		}
		if other, ok := seen[addr]; ok {
			return fmt.Errorf("config: %s and %s share the same address", name, other)
		}
		seen[addr] = name
	}
	for _, module := range c.PausedModules {
		if !knownModules[module] {
			return fmt.Errorf("config: unknown module %q in PausedModules", module)
		}
	}
	return nil
}
