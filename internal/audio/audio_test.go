package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlarmSynthesized(t *testing.T) {
	c := Alarm(filepath.Join(t.TempDir(), "beep-02.mp3"))
	require.True(t, c.Synthesized)
	assert.Equal(t, "audio/wav", c.ContentType)

	d := c.Data
	require.Greater(t, len(d), 44)
	assert.Equal(t, "RIFF", string(d[0:4]))
	assert.Equal(t, "WAVE", string(d[8:12]))
	assert.Equal(t, uint32(len(d)-8), binary.LittleEndian.Uint32(d[4:8]))

	dataLen := binary.LittleEndian.Uint32(d[40:44])
	assert.Equal(t, uint32(26460*2), dataLen)
}

func TestSuccessFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "success.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3"), 0o644))

	c := Success(path)
	assert.False(t, c.Synthesized)
	assert.Equal(t, "audio/mpeg", c.ContentType)
	assert.Equal(t, []byte("ID3"), c.Data)
}

func TestSuccessSynthesizedLength(t *testing.T) {
	c := Success("")
	dataLen := binary.LittleEndian.Uint32(c.Data[40:44])
	assert.Equal(t, uint32((3308+5513)*2), dataLen)
}
