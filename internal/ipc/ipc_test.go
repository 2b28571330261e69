package ipc

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdisanti/millenium-player-sub000/internal/events"
	"github.com/jdisanti/millenium-player-sub000/internal/location"
	"github.com/jdisanti/millenium-player-sub000/internal/playlist"
	"github.com/jdisanti/millenium-player-sub000/internal/waveform"
)

type fakePlayerSource struct {
	status events.PlaybackStatus
	snap   waveform.Snapshot
	haveWave bool
}

func (f *fakePlayerSource) Status() events.PlaybackStatus                 { return f.status }
func (f *fakePlayerSource) WaveformSnapshot() (waveform.Snapshot, bool) { return f.snap, f.haveWave }

type fakePlaylistSource struct {
	entry playlist.Entry
	haveEntry bool
	mode  playlist.Mode
}

func (f *fakePlaylistSource) CurrentEntry() (playlist.Entry, bool) { return f.entry, f.haveEntry }
func (f *fakePlaylistSource) Mode() playlist.Mode                  { return f.mode }

func newTestServer(pl PlayerStatusSource, list PlaylistSource) (*Server, *events.Bus) {
	bus := events.NewBus()
	return New(bus, pl, list, ""), bus
}

func TestHandlePlaybackReportsCurrentTrackAndStatus(t *testing.T) {
	dur := 180 * time.Second
	pl := &fakePlayerSource{status: events.PlaybackStatus{Playing: true, Position: 30 * time.Second, Duration: &dur, Volume: 200}}
	loc, err := location.Parse("song.ogg")
	require.NoError(t, err)
	list := &fakePlaylistSource{
		entry:     playlist.Entry{ID: 1, Location: loc, Metadata: &events.TrackMetadata{Title: "Song", Artist: "Band"}},
		haveEntry: true,
		mode:      playlist.ModeRepeatOne,
	}
	s, _ := newTestServer(pl, list)

	req := httptest.NewRequest(http.MethodGet, "/ipc/playback", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	track := body["current_track"].(map[string]any)
	assert.Equal(t, "Song", track["title"])
	assert.Equal(t, "Band", track["artist"])
	assert.Equal(t, "RepeatOne", body["playlist_mode"])

	status := body["playback_status"].(map[string]any)
	assert.Equal(t, true, status["playing"])
	assert.InDelta(t, 30.0, status["position"].(float64), 1e-6)
	assert.InDelta(t, 180.0, status["duration"].(float64), 1e-6)
}

func TestHandlePlaybackOmitsTrackWhenNoneLoaded(t *testing.T) {
	pl := &fakePlayerSource{}
	list := &fakePlaylistSource{}
	s, _ := newTestServer(pl, list)

	req := httptest.NewRequest(http.MethodGet, "/ipc/playback", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body["current_track"])
	assert.Equal(t, "Normal", body["playlist_mode"])
}

func TestHandleWaveformNotFoundBeforeFirstSnapshot(t *testing.T) {
	pl := &fakePlayerSource{haveWave: false}
	s, _ := newTestServer(pl, &fakePlaylistSource{})

	req := httptest.NewRequest(http.MethodGet, "/ipc/waveform", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleWaveformEncodesTwoFloatBlocks(t *testing.T) {
	var snap waveform.Snapshot
	snap.Spectrum[0] = 0.5
	snap.Amplitude[0] = 0.25
	pl := &fakePlayerSource{snap: snap, haveWave: true}
	s, _ := newTestServer(pl, &fakePlaylistSource{})

	req := httptest.NewRequest(http.MethodGet, "/ipc/waveform", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, waveform.BinCount*4*2, rec.Body.Len())

	var first, spectrumAtStart float32
	first = math.Float32frombits(binary.NativeEndian.Uint32(rec.Body.Bytes()[0:4]))
	spectrumAtStart = first
	assert.Equal(t, float32(0.5), spectrumAtStart)

	ampOffset := waveform.BinCount * 4
	amp := math.Float32frombits(binary.NativeEndian.Uint32(rec.Body.Bytes()[ampOffset : ampOffset+4]))
	assert.Equal(t, float32(0.25), amp)
}

func TestHandleMessageTranslatesAndBroadcasts(t *testing.T) {
	s, bus := newTestServer(&fakePlayerSource{}, &fakePlaylistSource{})
	sub := bus.Subscribe("test", events.ChannelPlaylist|events.ChannelPlayer)

	body, err := json.Marshal(map[string]any{"kind": "MediaControlVolume", "volume": 128})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/ipc/message", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	msg, ok := sub.TryRecv()
	require.True(t, ok)
	assert.Equal(t, events.KindMediaControlVolume, msg.Kind)
	assert.Equal(t, uint8(128), msg.Volume)
}

func TestHandleMessageEchoedNotificationKindIsNoOp(t *testing.T) {
	s, bus := newTestServer(&fakePlayerSource{}, &fakePlaylistSource{})
	sub := bus.Subscribe("test", events.ChannelAll)

	body, err := json.Marshal(map[string]any{"kind": "PlaybackStateUpdated"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/ipc/message", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	_, ok := sub.TryRecv()
	assert.False(t, ok, "an echoed notification kind should not be rebroadcast")
}

func TestHandleMessageUnknownKindIsBadRequest(t *testing.T) {
	s, _ := newTestServer(&fakePlayerSource{}, &fakePlaylistSource{})

	body, err := json.Marshal(map[string]any{"kind": "NotARealKind"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/ipc/message", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranslateUIMessageSeekConvertsSecondsToDuration(t *testing.T) {
	msg, skip, err := translateUIMessage(uiMessage{Kind: "MediaControlSeek", Position: 2.5})
	require.NoError(t, err)
	assert.False(t, skip)
	assert.Equal(t, 2500*time.Millisecond, msg.Position)
}
