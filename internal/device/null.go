package device

import "github.com/jdisanti/millenium-player-sub000/internal/sourcebuffer"

// NullDevice is an output device that discards everything written to
// it, the same role the teacher's audio.NullDevice plays for input: a
// drop-in substitute used in tests and on hosts with no sound card, so
// the player state machine never needs a special code path for "there
// is no audio hardware."
type NullDevice struct {
	rate     int
	channels int
	format   SampleFormat
	queue    *Queue
	consumed uint64
}

// NewNullDevice returns a NullDevice negotiated at the given rate and
// channel count, always in F32 format.
func NewNullDevice(rate, channels int) *NullDevice {
	return &NullDevice{
		rate:     rate,
		channels: channels,
		format:   FormatF32,
		queue:    NewQueue(FormatF32.BytesPerSample() * channels),
	}
}

func (d *NullDevice) Rate() int            { return d.rate }
func (d *NullDevice) Channels() int        { return d.channels }
func (d *NullDevice) Format() SampleFormat { return d.format }

func (d *NullDevice) PushAudio(buf *sourcebuffer.Buffer) {
	var out []float32
	sourcebuffer.ExtendInterleavedInto(buf, &out)
	if len(out) == 0 {
		return
	}
	d.queue.Push(encodeInterleaved(out, FormatF32))
}

// NeedsMore reports whether fewer than DesiredQueueFrames frames are
// queued. No audio callback drains the queue; FramesConsumed empties it
// each time it is called, so the sink is paced by how often the player
// reads the position clock rather than by real playback speed.
func (d *NullDevice) NeedsMore() bool {
	return d.queue.QueuedFrames() < DesiredQueueFrames
}

func (d *NullDevice) Play() error  { return nil }
func (d *NullDevice) Pause() error { return nil }
func (d *NullDevice) Stop() error {
	d.queue.Flush()
	return nil
}

func (d *NullDevice) FramesConsumed() uint64 {
	// Simulate real-time draining so the player's position clock still
	// advances under a null device: every observation drains whatever
	// is queued, as if it had just been played.
	drained := d.queue.QueuedFrames()
	if drained > 0 {
		buf := make([]byte, drained*d.format.BytesPerSample()*d.channels)
		d.queue.FillFrom(buf, nil)
		d.consumed += uint64(drained)
	}
	return d.consumed
}

func (d *NullDevice) ResetFramesConsumed() { d.consumed = 0 }
func (d *NullDevice) Healthcheck() error   { return nil }
func (d *NullDevice) Close() error         { return nil }
