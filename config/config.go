package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Config carries every operator-tunable parameter of the ledger core. All
// splits and rates are basis points; addresses are 0x-prefixed hex.
type Config struct {
	DataDir string `toml:"DataDir"`
	Backend string `toml:"Backend"`

	Operator         string `toml:"Operator"`
	StakeVault       string `toml:"StakeVault"`
	PoolVault        string `toml:"PoolVault"`
	RewardsTreasury  string `toml:"RewardsTreasury"`
	FeeCollector     string `toml:"FeeCollector"`
	UnattributedPool string `toml:"UnattributedPool"`

	AutoRegisterSpeakers bool   `toml:"AutoRegisterSpeakers"`
	MultiplierFloorBps   uint32 `toml:"MultiplierFloorBps"`
	MultiplierCeilingBps uint32 `toml:"MultiplierCeilingBps"`

	PlatformFeeBps      uint32 `toml:"PlatformFeeBps"`
	SpeakerShareBps     uint32 `toml:"SpeakerShareBps"`
	ParticipantShareBps uint32 `toml:"ParticipantShareBps"`

	SuperchatMaxPerEpoch   uint32 `toml:"SuperchatMaxPerEpoch"`
	SuperchatSpendPerEpoch uint64 `toml:"SuperchatSpendPerEpoch"`
	SuperchatEpochSeconds  uint32 `toml:"SuperchatEpochSeconds"`

	PausedModules []string `toml:"PausedModules"`
}

// ModuleAddress derives the deterministic account address for a named module
// fund, so that default configurations need no key management.
func ModuleAddress(name string) [20]byte {
	hash := ethcrypto.Keccak256([]byte("stakespeaks/module/" + strings.ToLower(strings.TrimSpace(name))))
	var addr [20]byte
	copy(addr[:], hash[:20])
	return addr
}

func hexAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

// Default returns the platform defaults: 5% platform fee, 80% speaker share,
// 30% participant yield share, 0.7x..1.5x reputation multiplier and derived
// module accounts.
func Default() *Config {
	return &Config{
		DataDir:                "./data",
		Backend:                "leveldb",
		Operator:               hexAddress(ModuleAddress("operator")),
		StakeVault:             hexAddress(ModuleAddress("stake-vault")),
		PoolVault:              hexAddress(ModuleAddress("pool-vault")),
		RewardsTreasury:        hexAddress(ModuleAddress("rewards-treasury")),
		FeeCollector:           hexAddress(ModuleAddress("fee-collector")),
		UnattributedPool:       hexAddress(ModuleAddress("unattributed-pool")),
		AutoRegisterSpeakers:   true,
		MultiplierFloorBps:     7_000,
		MultiplierCeilingBps:   15_000,
		PlatformFeeBps:         500,
		SpeakerShareBps:        8_000,
		ParticipantShareBps:    3_000,
		SuperchatMaxPerEpoch:   30,
		SuperchatSpendPerEpoch: 0,
		SuperchatEpochSeconds:  60,
		PausedModules:          []string{},
	}
}

// Load loads the configuration from the given path, creating a default file
// on first run.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	defaults := Default()
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = defaults.DataDir
	}
	if strings.TrimSpace(cfg.Backend) == "" {
		cfg.Backend = defaults.Backend
	}
	if cfg.MultiplierFloorBps == 0 {
		cfg.MultiplierFloorBps = defaults.MultiplierFloorBps
	}
	if cfg.MultiplierCeilingBps == 0 {
		cfg.MultiplierCeilingBps = defaults.MultiplierCeilingBps
	}
	if cfg.SpeakerShareBps == 0 {
		cfg.SpeakerShareBps = defaults.SpeakerShareBps
	}
	if cfg.ParticipantShareBps == 0 {
		cfg.ParticipantShareBps = defaults.ParticipantShareBps
	}
	if cfg.PausedModules == nil {
		cfg.PausedModules = []string{}
	}
	for _, field := range []*string{
		&cfg.Operator, &cfg.StakeVault, &cfg.PoolVault,
		&cfg.RewardsTreasury, &cfg.FeeCollector, &cfg.UnattributedPool,
	} {
		if strings.TrimSpace(*field) == "" {
			*field = ""
		}
	}
	if cfg.Operator == "" {
		cfg.Operator = defaults.Operator
	}
	if cfg.StakeVault == "" {
		cfg.StakeVault = defaults.StakeVault
	}
	if cfg.PoolVault == "" {
		cfg.PoolVault = defaults.PoolVault
	}
	if cfg.RewardsTreasury == "" {
		cfg.RewardsTreasury = defaults.RewardsTreasury
	}
	if cfg.FeeCollector == "" {
		cfg.FeeCollector = defaults.FeeCollector
	}
	if cfg.UnattributedPool == "" {
		cfg.UnattributedPool = defaults.UnattributedPool
	}
}

// ParseAddress decodes a 0x-prefixed 20-byte hex address.
func ParseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = trimmed[2:]
	}
	if len(trimmed) != 40 {
		return addr, fmt.Errorf("config: address must be 20 bytes (got %d hex chars)", len(trimmed))
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("config: decode address: %w", err)
	}
	copy(addr[:], decoded)
	return addr, nil
}
