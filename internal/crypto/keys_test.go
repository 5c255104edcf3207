package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMasterKeyFile(t *testing.T) {
	t.Setenv(MasterKeyEnv, "")
	path := filepath.Join(t.TempDir(), "master.key")
	hexKey := GenerateMasterKeyHex()
	require.NoError(t, os.WriteFile(path, []byte(hexKey+"\n"), 0o600))

	key, err := ReadMasterKey(path)
	require.NoError(t, err)
	assert.Len(t, key, MasterKeySize)
}

func TestReadMasterKeyEnvWins(t *testing.T) {
	t.Setenv(MasterKeyEnv, strings.Repeat("ab", 32))
	key, err := ReadMasterKey(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), key[0])
}

func TestReadMasterKeyErrors(t *testing.T) {
	t.Setenv(MasterKeyEnv, "")
	_, err := ReadMasterKey(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, ErrNoMasterKey)

	_, err = ParseMasterKey("zz")
	require.Error(t, err)
	_, err = ParseMasterKey("abcd")
	require.Error(t, err)
}

func TestLoadOrGenerateMasterKey(t *testing.T) {
	t.Setenv(MasterKeyEnv, "")
	key, generated, err := LoadOrGenerateMasterKey(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Len(t, key, MasterKeySize)
}

func TestDeriveSessionKeys(t *testing.T) {
	master := MustRandom(MasterKeySize)
	a, err := DeriveSessionKeys(master)
	require.NoError(t, err)
	b, err := DeriveSessionKeys(master)
	require.NoError(t, err)

	assert.Len(t, a.Hash, 64)
	assert.Len(t, a.Block, 32)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a.Hash[:32], a.Block)
}

func TestRandomToken(t *testing.T) {
	assert.NotEqual(t, RandomToken(16), RandomToken(16))
}
