package audio

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkpodai/attested-audio/utils/unittest"
)

func TestDecode(t *testing.T) {
	clip, err := Decode(unittest.WavFixture(t, 8000))
	require.NoError(t, err)

	assert.Equal(t, uint16(1), clip.AudioFormat)
	assert.Equal(t, uint32(8000), clip.SampleRate)
	assert.Equal(t, uint16(1), clip.Channels)
	assert.Equal(t, uint16(16), clip.BitDepth)
	assert.Equal(t, time.Second, clip.Duration)
}

// The duration only counts the PCM data, not the container headers.
func TestDecode_DurationFromPCMData(t *testing.T) {
	for samples, expected := range map[int]time.Duration{
		4000: 500 * time.Millisecond,
		64:   8 * time.Millisecond,
		1:    125 * time.Microsecond,
	} {
		clip, err := Decode(unittest.WavFixture(t, samples))
		require.NoError(t, err)
		assert.Equal(t, expected, clip.Duration, "samples: %d", samples)
	}
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte("definitely not a wav file"))
	require.ErrorIs(t, err, ErrInvalidContainer)

	_, err = Decode(nil)
	require.ErrorIs(t, err, ErrInvalidContainer)
}

func TestDiscardPlayer(t *testing.T) {
	player := NewDiscardPlayer(unittest.Logger())
	require.NoError(t, player.Play(unittest.WavFixture(t, 16)))
	require.ErrorIs(t, player.Play([]byte("garbage")), ErrInvalidContainer)
}

func TestCommandPlayer(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat is not available")
	}

	player, err := NewCommandPlayer(unittest.Logger(), []string{"cat"})
	require.NoError(t, err)

	wav := unittest.WavFixture(t, 16)
	// playbacks are independent and may overlap
	for i := 0; i < 3; i++ {
		require.NoError(t, player.Play(wav))
	}

	require.ErrorIs(t, player.Play([]byte("garbage")), ErrInvalidContainer)

	unittest.RequireReturnsBefore(t, player.Wait, 5*time.Second, "playbacks did not finish")
}

func TestCommandPlayer_Invalid(t *testing.T) {
	_, err := NewCommandPlayer(unittest.Logger(), nil)
	require.Error(t, err)

	player, err := NewCommandPlayer(unittest.Logger(), []string{"/nonexistent/player-binary"})
	require.NoError(t, err)
	require.Error(t, player.Play(unittest.WavFixture(t, 16)))
}
