package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stakespeaks.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, "leveldb", cfg.Backend)
	require.Equal(t, uint32(500), cfg.PlatformFeeBps)
	require.Equal(t, uint32(8_000), cfg.SpeakerShareBps)
	require.Equal(t, uint32(3_000), cfg.ParticipantShareBps)
	require.NoError(t, cfg.Validate())

	// A second load reads the same file back.
	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Operator, reloaded.Operator)
	require.Equal(t, cfg.StakeVault, reloaded.StakeVault)
}

func TestLoadAppliesDefaultsToSparseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stakespeaks.toml")
	require.NoError(t, os.WriteFile(path, []byte("Backend = \"memory\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Backend)
	require.Equal(t, uint32(7_000), cfg.MultiplierFloorBps)
	require.Equal(t, uint32(15_000), cfg.MultiplierCeilingBps)
	require.NotEmpty(t, cfg.Operator)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := Default()

	cfg := *base
	cfg.Backend = "postgres"
	require.Error(t, cfg.Validate())

	cfg = *base
	cfg.MultiplierFloorBps = 12_000
	require.Error(t, cfg.Validate())

	cfg = *base
	cfg.MultiplierCeilingBps = 9_000
	require.Error(t, cfg.Validate())

	cfg = *base
	cfg.PlatformFeeBps = 10_001
	require.Error(t, cfg.Validate())

	cfg = *base
	cfg.StakeVault = cfg.PoolVault
	require.Error(t, cfg.Validate())

	// The operator colliding with a module vault is just as unsafe.
	cfg = *base
	cfg.Operator = cfg.StakeVault
	require.Error(t, cfg.Validate())

	cfg = *base
	cfg.Operator = "0x0000000000000000000000000000000000000000"
	require.Error(t, cfg.Validate())

	cfg = *base
	cfg.SuperchatEpochSeconds = 0
	cfg.SuperchatMaxPerEpoch = 10
	require.Error(t, cfg.Validate())

	cfg = *base
	cfg.PausedModules = []string{"consensus"}
	require.Error(t, cfg.Validate())
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x00000000000000000000000000000000000000ff")
	require.NoError(t, err)
	require.Equal(t, byte(0xFF), addr[19])

	_, err = ParseAddress("0x1234")
	require.Error(t, err)
	_, err = ParseAddress("zz00000000000000000000000000000000000000")
	require.Error(t, err)
}

func TestModuleAddressIsDeterministic(t *testing.T) {
	require.Equal(t, ModuleAddress("stake-vault"), ModuleAddress(" Stake-Vault "))
	require.NotEqual(t, ModuleAddress("stake-vault"), ModuleAddress("pool-vault"))
	require.NotEqual(t, [20]byte{}, ModuleAddress("operator"))
}
