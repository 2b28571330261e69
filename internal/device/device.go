// Package device implements the output device adapter (spec.md §4.C):
// negotiating a stream format with the sound card, buffering already-
// converted audio in a type-erased Queue, and feeding portaudio's
// real-time callback from it. It follows the same
// portaudio-initialize/open-stream/callback shape as the teacher's
// audio/microphone.go, flipped from capture to playback.
package device

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/jdisanti/millenium-player-sub000/internal/sourcebuffer"
)

var deviceLog = log.New(os.Stderr, "device: ", log.LstdFlags)

// ErrDeviceFailed is surfaced by Healthcheck once a stream control call
// has hit an unrecoverable error; the player reports it by broadcasting
// KindEventAudioDeviceFailed.
var ErrDeviceFailed = errors.New("device: output stream failed")

// Device is the engine-facing surface of an open output stream. It is
// intentionally small and non-generic: every format-specific detail
// lives behind Queue's byte-oriented interface so the player and sink
// never need to know which Sample type backs the stream.
type Device interface {
	// Rate, Channels and Format report the negotiated stream shape.
	Rate() int
	Channels() int
	Format() SampleFormat

	// PushAudio interleaves and converts buf's planar float32 samples
	// into the stream's native format and enqueues them. buf must
	// already be remixed to Channels() and resampled to Rate(); the
	// sink, not this package, owns that conversion.
	PushAudio(buf *sourcebuffer.Buffer)

	// NeedsMore reports whether the queue is below its low-water mark.
	NeedsMore() bool

	// Play, Pause and Stop control the underlying stream.
	Play() error
	Pause() error
	Stop() error

	// FramesConsumed is the running count of frames the callback has
	// pulled out of the queue (real or silence), used to drive the
	// player's position clock.
	FramesConsumed() uint64
	ResetFramesConsumed()

	// Healthcheck returns the most recent unrecoverable error a stream
	// control call (Play, Pause, Stop) recorded, if any, and clears it --
	// a one-shot signal so repeated
	// polling doesn't re-report the same failure forever.
	Healthcheck() error

	// Close releases the underlying stream and terminates portaudio.
	Close() error
}

// Open negotiates a format against the default output device's
// reported configs and returns a ready-to-play Device in whichever
// Sample type config.Format selected. Initialize/Terminate bracket the
// stream's lifetime the same way the teacher's Microphone does.
func Open(preferredChannels, preferredRate int) (Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("device: initialize portaudio: %w", err)
	}

	host, err := portaudio.DefaultHostApi()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("device: query host api: %w", err)
	}
	info := host.DefaultOutputDevice
	if info == nil {
		portaudio.Terminate()
		return nil, errors.New("device: no default output device")
	}

	configs := configsFromDeviceInfo(info)
	chosen, ok := Select(configs, preferredChannels, preferredRate)
	if !ok {
		portaudio.Terminate()
		return nil, errors.New("device: no supported output format")
	}

	switch chosen.Format {
	case FormatF32:
		return openTyped[float32](info, chosen)
	case FormatI16:
		return openTyped[int16](info, chosen)
	case FormatU16:
		return openTyped[uint16](info, chosen)
	case FormatI32:
		return openTyped[int32](info, chosen)
	case FormatU32:
		return openTyped[uint32](info, chosen)
	case FormatF64:
		return openTyped[float64](info, chosen)
	case FormatI8:
		return openTyped[int8](info, chosen)
	case FormatU8:
		return openTyped[uint8](info, chosen)
	default:
		portaudio.Terminate()
		return nil, fmt.Errorf("device: unsupported format %s", chosen.Format)
	}
}

// configsFromDeviceInfo builds the candidate list Select chooses from.
// portaudio doesn't expose a discrete list of supported formats, so we
// offer every format this package implements at the device's reported
// default rate and the stereo-or-native channel count; Select still
// performs the real preference ordering described in spec.md §4.C.
func configsFromDeviceInfo(info *portaudio.DeviceInfo) []Config {
	rate := int(info.DefaultSampleRate)
	if rate <= 0 {
		rate = 44100
	}
	channels := info.MaxOutputChannels
	if channels <= 0 {
		channels = 2
	}
	formats := []SampleFormat{FormatF32, FormatI16, FormatU16, FormatI32, FormatU32, FormatF64, FormatI8, FormatU8}
	configs := make([]Config, 0, len(formats)*2)
	for _, ch := range []int{2, channels} {
		for _, f := range formats {
			configs = append(configs, Config{Channels: ch, MinRate: rate, MaxRate: rate, Format: f})
		}
	}
	return configs
}

// portAudioDevice is the generic real-time device implementation.
// F is the negotiated output sample format; all conversion from the
// float32 domain into F happens in PushAudio, before bytes ever reach
// Queue, so the callback here only copies bytes and reinterprets them.
type portAudioDevice[F sourcebuffer.Sample] struct {
	rate     int
	channels int
	format   SampleFormat

	stream *portaudio.Stream
	queue  *Queue

	silenceFrame   []byte
	warnedUnderrun atomic.Bool

	framesConsumed atomic.Uint64

	mu       sync.Mutex
	lastErr  error
	stopped  bool
}

func openTyped[F sourcebuffer.Sample](info *portaudio.DeviceInfo, cfg Config) (Device, error) {
	d := &portAudioDevice[F]{
		rate:         cfg.MinRate,
		channels:     cfg.Channels,
		format:       cfg.Format,
		queue:        NewQueue(cfg.Format.BytesPerSample() * cfg.Channels),
		silenceFrame: midpointBytes(cfg.Format, cfg.Channels),
	}

	params := portaudio.HighLatencyParameters(nil, info)
	params.Output.Channels = cfg.Channels
	params.SampleRate = float64(cfg.MinRate)

	stream, err := portaudio.OpenStream(params, d.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("device: open stream: %w", err)
	}
	d.stream = stream
	return d, nil
}

// callback runs on the real-time audio thread: it must never log
// unconditionally or block. It allocates one scratch byte slice per
// call, pulls from the queue into it, falling back to silence on
// underrun, and counts every frame it hands to the device either way.
func (d *portAudioDevice[F]) callback(out []F) {
	bytesPerFrame := d.format.BytesPerSample() * d.channels
	raw := make([]byte, len(out)*d.format.BytesPerSample())
	filled, silence := d.queue.FillFrom(raw, d.silenceFrame)
	decodeInto(raw, out, d.format)
	d.framesConsumed.Add(uint64(filled + silence))

	if silence > 0 {
		if d.warnedUnderrun.CompareAndSwap(false, true) {
			deviceLog.Printf("output underrun: filled %d of %d frames with silence", silence, len(raw)/bytesPerFrame)
		}
	} else {
		d.warnedUnderrun.Store(false)
	}
}

func (d *portAudioDevice[F]) Rate() int            { return d.rate }
func (d *portAudioDevice[F]) Channels() int        { return d.channels }
func (d *portAudioDevice[F]) Format() SampleFormat { return d.format }
func (d *portAudioDevice[F]) NeedsMore() bool      { return d.queue.NeedsMore() }

// PushAudio converts buf once, here, off the real-time thread, so the
// callback itself never touches a float32.
func (d *portAudioDevice[F]) PushAudio(buf *sourcebuffer.Buffer) {
	var out []F
	sourcebuffer.ExtendInterleavedInto(buf, &out)
	if len(out) == 0 {
		return
	}
	d.queue.Push(encodeInterleaved(out, d.format))
}

func (d *portAudioDevice[F]) FramesConsumed() uint64 { return d.framesConsumed.Load() }
func (d *portAudioDevice[F]) ResetFramesConsumed()   { d.framesConsumed.Store(0) }

func (d *portAudioDevice[F]) Play() error {
	if err := d.stream.Start(); err != nil {
		d.recordErr(err)
		return err
	}
	return nil
}

func (d *portAudioDevice[F]) Pause() error {
	if err := d.stream.Stop(); err != nil {
		d.recordErr(err)
		return err
	}
	return nil
}

func (d *portAudioDevice[F]) Stop() error {
	d.mu.Lock()
	stopped := d.stopped
	d.stopped = true
	d.mu.Unlock()
	if stopped {
		return nil
	}
	d.queue.Flush()
	if err := d.stream.Stop(); err != nil {
		d.recordErr(err)
		return err
	}
	return nil
}

func (d *portAudioDevice[F]) Close() error {
	err := d.stream.Close()
	portaudio.Terminate()
	return err
}

func (d *portAudioDevice[F]) recordErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastErr = fmt.Errorf("%w: %v", ErrDeviceFailed, err)
}

func (d *portAudioDevice[F]) Healthcheck() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.lastErr
	d.lastErr = nil
	return err
}

// decodeInto reinterprets raw device-format bytes back into the typed
// output slice portaudio expects. It mirrors sourcebuffer.ConvertSample
// in reverse: both sides agree on the same byte layout, so this is a
// plain reinterpretation rather than a numeric conversion.
func decodeInto[F sourcebuffer.Sample](raw []byte, out []F, format SampleFormat) {
	width := format.BytesPerSample()
	for i := range out {
		out[i] = decodeOne[F](raw[i*width:(i+1)*width], format)
	}
}
