package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectTrackPrefersChannelMatch(t *testing.T) {
	streams := []probeStream{
		{Index: 0, CodecType: "video"},
		{Index: 1, CodecType: "audio", Channels: 6, SampleRate: "48000"},
		{Index: 2, CodecType: "audio", Channels: 2, SampleRate: "44100"},
	}
	info, err := selectTrack(streams, 44100, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, info.index)
	assert.Equal(t, 2, info.channels)
	assert.Equal(t, 44100, info.rate)
}

func TestSelectTrackFallsBackToRateMatch(t *testing.T) {
	streams := []probeStream{
		{Index: 0, CodecType: "audio", Channels: 6, SampleRate: "48000"},
		{Index: 1, CodecType: "audio", Channels: 8, SampleRate: "44100"},
	}
	info, err := selectTrack(streams, 44100, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, info.index)
}

func TestSelectTrackFallsBackToFirst(t *testing.T) {
	streams := []probeStream{
		{Index: 3, CodecType: "audio", Channels: 6, SampleRate: "48000"},
		{Index: 4, CodecType: "audio", Channels: 8, SampleRate: "96000"},
	}
	info, err := selectTrack(streams, 2, 44100)
	require.NoError(t, err)
	assert.Equal(t, 3, info.index)
}

func TestSelectTrackNoAudioIsError(t *testing.T) {
	streams := []probeStream{{Index: 0, CodecType: "video"}}
	_, err := selectTrack(streams, 0, 0)
	assert.ErrorIs(t, err, ErrNoAudioTracks)
}

func TestFrameCountDerivedFromDuration(t *testing.T) {
	streams := []probeStream{{Index: 0, CodecType: "audio", Channels: 2, SampleRate: "44100", Duration: "2.0"}}
	info, err := selectTrack(streams, 0, 0)
	require.NoError(t, err)
	require.NotNil(t, info.frames)
	assert.Equal(t, int64(88200), *info.frames)
}

func TestMetadataFromProbeNilWhenEmpty(t *testing.T) {
	r := &probeResult{}
	assert.Nil(t, metadataFromProbe(r))
}

func TestMetadataFromProbePopulated(t *testing.T) {
	r := &probeResult{}
	r.Format.Tags.Title = "Song"
	r.Format.Tags.Artist = "Band"
	md := metadataFromProbe(r)
	require.NotNil(t, md)
	assert.Equal(t, "Song", md.Title)
	assert.Equal(t, "Band", md.Artist)
}
