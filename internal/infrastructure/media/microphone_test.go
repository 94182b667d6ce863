package media

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3/pkg/media/oggwriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSilenceMicrophone(t *testing.T) {
	mic := NewMicrophone(Config{FrameDuration: 5 * time.Millisecond}, nil)
	assert.Empty(t, mic.Tracks())

	require.NoError(t, mic.Start(context.Background()))
	tracks := mic.Tracks()
	require.Len(t, tracks, 1)
	assert.Equal(t, "audio", tracks[0].Kind())
	assert.True(t, tracks[0].Enabled())

	tracks[0].SetEnabled(false)
	assert.False(t, tracks[0].Enabled())

	first := tracks[0].ID()
	require.NoError(t, mic.Start(context.Background()))
	require.Len(t, mic.Tracks(), 1)
	assert.NotEqual(t, first, mic.Tracks()[0].ID())

	require.NoError(t, mic.Stop())
	assert.Empty(t, mic.Tracks())
	require.NoError(t, mic.Stop())
}

func TestMicrophoneSourceErrors(t *testing.T) {
	mic := NewMicrophone(Config{Source: SourceOgg}, nil)
	assert.ErrorIs(t, mic.Start(context.Background()), ErrNoSource)

	mic = NewMicrophone(Config{Source: SourceOgg, File: filepath.Join(t.TempDir(), "missing.ogg")}, nil)
	assert.Error(t, mic.Start(context.Background()))
	assert.Empty(t, mic.Tracks())

	mic = NewMicrophone(Config{Source: "line-in"}, nil)
	assert.Error(t, mic.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewMicrophone(Config{}, nil).Start(ctx), context.Canceled)
}

func TestOggMicrophone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.ogg")
	w, err := oggwriter.New(path, opusClockRate, 2)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, w.WriteRTP(&rtp.Packet{
			Header:  rtp.Header{SequenceNumber: uint16(i), Timestamp: uint32(i * 960)},
			Payload: opusSilence,
		}))
	}
	require.NoError(t, w.Close())

	mic := NewMicrophone(Config{Source: SourceOgg, File: path, FrameDuration: 2 * time.Millisecond}, nil)
	require.NoError(t, mic.Start(context.Background()))
	require.Len(t, mic.Tracks(), 1)

	// Long enough to hit EOF and loop at least once.
	time.Sleep(60 * time.Millisecond)
	require.NoError(t, mic.Stop())
}
