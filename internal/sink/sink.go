// Package sink implements Component D of the playback engine: it owns
// the resampler, applies the volume gain, and paces already-decoded
// audio into the output device in fixed-size chunks. It plays the same
// role the teacher's audio.AudioPlayer.runOutputLoop plays -- chunking
// a continuous stream into frame-sized pieces before handing them to
// the device -- but here the device itself (not a ticker) decides when
// it wants more, via NeedsMore.
package sink

import (
	"sync/atomic"

	"github.com/jdisanti/millenium-player-sub000/internal/device"
	"github.com/jdisanti/millenium-player-sub000/internal/sourcebuffer"
)

// ChunkSizeFrames is the unit the sink pushes to the device in:
// decoded audio accumulates in Sink.pending until at least this many
// frames are ready, then it's handed off as one PushAudio call.
const ChunkSizeFrames = 1024

// Sink converts decoded, player-native-rate audio into the output
// device's negotiated format. It is owned exclusively by the player
// thread; nothing about it is safe for concurrent use except SetVolume
// and Volume, which go through an atomic.
type Sink struct {
	dev       device.Device
	resampler *sourcebuffer.Resampler
	volume    atomic.Uint32
	pending   *sourcebuffer.Buffer
}

// New creates a Sink targeting dev's negotiated rate and channel
// count, at full volume.
func New(dev device.Device) *Sink {
	s := &Sink{
		dev:       dev,
		resampler: sourcebuffer.NewResampler(),
		pending:   sourcebuffer.Empty(dev.Rate(), dev.Channels()),
	}
	s.volume.Store(255)
	return s
}

// SetVolume sets the linear gain applied to every sample before it
// reaches the device, 0 (silent) to 255 (unity).
func (s *Sink) SetVolume(v uint8) { s.volume.Store(uint32(v)) }

// Volume returns the current gain setting.
func (s *Sink) Volume() uint8 { return uint8(s.volume.Load()) }

// NeedsMore reports whether the device wants more audio.
func (s *Sink) NeedsMore() bool { return s.dev.NeedsMore() }

// Queue remixes and resamples src in place to the device's negotiated
// shape, applies the current volume, and pushes as many whole
// ChunkSizeFrames chunks as are now available. src is consumed; the
// caller must not reuse it afterward.
func (s *Sink) Queue(src *sourcebuffer.Buffer) error {
	if src.Channels() != s.dev.Channels() {
		if err := src.Remix(s.dev.Channels()); err != nil {
			return err
		}
	}
	if src.Rate() != s.dev.Rate() {
		if err := src.Resample(s.dev.Rate(), s.resampler); err != nil {
			return err
		}
	}
	applyVolume(src, s.Volume())

	if err := s.pending.Extend(src); err != nil {
		return err
	}
	s.drainChunks()
	return nil
}

func (s *Sink) drainChunks() {
	for s.pending.Frames() >= ChunkSizeFrames {
		chunk := sourcebuffer.Empty(s.dev.Rate(), s.dev.Channels())
		if err := s.pending.DrainInto(ChunkSizeFrames, chunk); err != nil {
			return
		}
		s.dev.PushAudio(chunk)
	}
}

// Flush pushes whatever partial chunk remains (used at end of track,
// where waiting for a full ChunkSizeFrames would drop the tail) and
// resets the pending buffer.
func (s *Sink) Flush() {
	if s.pending.Frames() > 0 {
		s.dev.PushAudio(s.pending)
	}
	s.pending = sourcebuffer.Empty(s.dev.Rate(), s.dev.Channels())
}

// Reset discards any buffered-but-not-yet-pushed audio without playing
// it, for use on seek and stop where stale samples must not be heard.
func (s *Sink) Reset() {
	s.pending = sourcebuffer.Empty(s.dev.Rate(), s.dev.Channels())
}

func applyVolume(b *sourcebuffer.Buffer, volume uint8) {
	if volume == 255 {
		return
	}
	gain := float32(volume) / 255
	for c := 0; c < b.Channels(); c++ {
		ch := b.Channel(c)
		for i := range ch {
			ch[i] *= gain
		}
	}
}
