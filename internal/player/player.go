// Package player implements Component F, the state machine that owns
// the decoder, the sink, and the waveform analyzer on a single
// dedicated goroutine (spec.md §4.F, §5). It is the direct analogue of
// the teacher's audio.AudioPlayer run loop: one goroutine pulls
// commands, decodes, and pushes to the device until told to quit.
package player

import (
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jdisanti/millenium-player-sub000/internal/decoder"
	"github.com/jdisanti/millenium-player-sub000/internal/device"
	"github.com/jdisanti/millenium-player-sub000/internal/events"
	"github.com/jdisanti/millenium-player-sub000/internal/location"
	"github.com/jdisanti/millenium-player-sub000/internal/sink"
	"github.com/jdisanti/millenium-player-sub000/internal/waveform"
)

var playerLog = log.New(os.Stderr, "player: ", log.LstdFlags)

// sinkTimeout bounds how long the tick loop blocks pushing audio before
// checking for new commands again (spec.md §4.F "tick pacing").
const sinkTimeout = 50 * time.Millisecond

// statusInterval is how often Playing publishes a PlaybackStatus while
// nothing else changed.
const statusInterval = 1 * time.Second

// stateKind discriminates the player's state machine (spec.md §3
// "Player state").
type stateKind int

const (
	stateDoNothing stateKind = iota
	stateLoadLocation
	statePlaying
	statePaused
	stateQuit
)

// Player runs the state machine described in spec.md §4.F on its own
// goroutine. Every field below this comment is touched only from that
// goroutine, except lastStatus (guarded by statusMu), waveSnap and
// haveWave (guarded by waveMu), and finished, which Status,
// WaveformSnapshot and Finished read from other goroutines. Commands
// reach the player only through the bus.
type Player struct {
	bus         *events.Bus
	commands    *events.Subscription
	openDevice  func(preferredChannels, preferredRate int) (device.Device, error)
	preferred   decoder.PreferredFormat

	state    stateKind
	pending  location.Location // valid when state == stateLoadLocation
	dec      *decoder.Decoder
	dev      device.Device
	snk      *sink.Sink
	analyzer *waveform.Analyzer

	framesConsumed      atomic.Uint64
	lastStatusAt        time.Time
	lastWaveformPublish time.Time
	pausedStatus        events.PlaybackStatus
	atEOF               bool

	statusMu   sync.Mutex
	lastStatus events.PlaybackStatus

	waveMu   sync.Mutex
	waveSnap waveform.Snapshot
	haveWave bool

	wg       sync.WaitGroup
	finished atomic.Bool
}

// Option customizes a Player at construction.
type Option func(*Player)

// WithDeviceOpener overrides how the player opens the real output
// device; tests substitute device.NewNullDevice-backed openers.
func WithDeviceOpener(open func(preferredChannels, preferredRate int) (device.Device, error)) Option {
	return func(p *Player) { p.openDevice = open }
}

// New creates a Player subscribed to bus's player channel. Call Run in
// its own goroutine (that goroutine becomes "the player thread").
func New(bus *events.Bus, opts ...Option) *Player {
	p := &Player{
		bus:        bus,
		commands:   bus.Subscribe("player", events.ChannelPlayer),
		openDevice: func(ch, rate int) (device.Device, error) { return device.Open(ch, rate) },
		preferred:  decoder.PreferredFormat{Rate: 44100, Channels: 2},
		state:      stateDoNothing,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the player's command/update loop until CommandQuit is
// received. It is meant to be invoked as `go p.Run()`.
func (p *Player) Run() {
	p.wg.Add(1)
	defer p.wg.Done()
	defer p.cleanup()

	for p.state != stateQuit {
		p.pumpCommands()
		if p.state == stateQuit {
			return
		}
		p.update()
	}
}

// Wait blocks until Run has returned. Only the goroutine holding the
// "strong" reference to a Player (the one that created it) should call
// this; spec.md §5 treats joining a player handle that did not
// originate the thread as a programmer error, and Go has no weak
// thread-handle type to enforce that statically, so callers must
// self-police which goroutine owns the strong reference.
func (p *Player) Wait() { p.wg.Wait() }

// Finished reports whether the player's run loop has exited, usable
// from any goroutine as the "weak handle" status check spec.md §9
// describes.
func (p *Player) Finished() bool { return p.finished.Load() }

func (p *Player) cleanup() {
	if p.dec != nil {
		p.dec.Close()
	}
	if p.dev != nil {
		p.dev.Close()
	}
	p.finished.Store(true)
}

// pumpCommands blocks on the command subscription in DoNothing and
// Paused (idle states, per spec.md §4.F) and otherwise drains whatever
// is pending without blocking, so Playing keeps ticking.
func (p *Player) pumpCommands() {
	if p.state == stateDoNothing || p.state == statePaused {
		msg, ok := p.commands.Recv()
		if !ok {
			p.state = stateQuit
			return
		}
		p.handle(msg)
		return
	}
	for {
		msg, ok := p.commands.TryRecv()
		if !ok {
			return
		}
		p.handle(msg)
		if p.state == stateQuit {
			return
		}
	}
}

func (p *Player) handle(msg events.Message) {
	switch msg.Kind {
	case events.KindCommandQuit:
		p.state = stateQuit
	case events.KindCommandLoadAndPlayLocation:
		p.loadLocation(msg.Location)
	case events.KindCommandPause:
		p.handlePause()
	case events.KindCommandResume:
		p.handleResume()
	case events.KindCommandStop:
		p.handleStop()
	case events.KindCommandSeek:
		p.handleSeek(msg.Position)
	case events.KindCommandSetVolume:
		if p.snk != nil {
			p.snk.SetVolume(msg.Volume)
		}
	}
}

func (p *Player) loadLocation(loc location.Location) {
	if p.state == statePlaying || p.state == statePaused {
		p.teardownTrack()
	}
	p.state = stateLoadLocation
	p.pending = loc
}

func (p *Player) handlePause() {
	if p.state != statePlaying {
		return
	}
	if err := p.dev.Pause(); err != nil {
		playerLog.Printf("pause failed: %v", err)
	}
	p.pausedStatus = p.currentStatus()
	p.pausedStatus.Playing = false
	p.publishStatus(p.pausedStatus)
	p.state = statePaused
}

func (p *Player) handleResume() {
	if p.state != statePaused {
		return
	}
	if err := p.dev.Play(); err != nil {
		playerLog.Printf("resume failed: %v", err)
	}
	p.state = statePlaying
}

func (p *Player) handleStop() {
	if p.state != statePlaying && p.state != statePaused {
		return
	}
	if err := p.dev.Stop(); err != nil {
		playerLog.Printf("stop failed: %v", err)
		p.bus.Broadcast(events.Message{Kind: events.KindEventAudioDeviceFailed, Text: err.Error()})
	}
	p.teardownTrack()
	p.state = stateDoNothing
}

func (p *Player) handleSeek(pos time.Duration) {
	if p.dec == nil {
		return
	}
	if err := p.dec.Seek(pos.Seconds()); err != nil {
		playerLog.Printf("seek failed: %v", err)
		p.bus.Broadcast(events.Message{Kind: events.KindEventFailedToDecodeAudio, Text: err.Error()})
		return
	}
	if p.snk != nil {
		p.snk.Reset()
	}
	p.resetFramesConsumed()
}

func (p *Player) teardownTrack() {
	if p.dec != nil {
		p.dec.Close()
		p.dec = nil
	}
	p.snk = nil
	p.analyzer = nil
}

func (p *Player) resetFramesConsumed() {
	p.framesConsumed.Store(0)
	if p.dev != nil {
		p.dev.ResetFramesConsumed()
	}
}

// update runs one iteration of the per-state side effects described in
// spec.md §4.F's transition table, then paces the loop against the
// sink's pull rate.
func (p *Player) update() {
	switch p.state {
	case stateLoadLocation:
		p.doLoad()
	case statePlaying:
		p.doPlayingTick()
	}

	if p.dev != nil {
		if err := p.dev.Healthcheck(); err != nil {
			playerLog.Printf("device healthcheck failed: %v", err)
			p.bus.Broadcast(events.Message{Kind: events.KindEventAudioDeviceFailed, Text: err.Error()})
			p.teardownTrack()
			p.state = stateDoNothing
			return
		}
	}
	// Tick pacing (spec.md §4.F): throttle the loop against the
	// device's pull rate rather than spinning, the same role
	// send_audio_with_timeout(50ms) plays against a blocking "output
	// needed" signal.
	if p.snk != nil && p.state == statePlaying {
		time.Sleep(sinkTimeout)
	}
}

func (p *Player) doLoad() {
	if p.dev == nil {
		dev, err := p.openDevice(p.preferred.Channels, p.preferred.Rate)
		if err != nil {
			playerLog.Printf("falling back to null device: %v", err)
			dev = device.NewNullDevice(p.preferred.Rate, p.preferred.Channels)
		}
		p.dev = dev
	}

	dec, err := decoder.New(p.pending, p.preferred)
	if err != nil {
		playerLog.Printf("failed to load %q: %v", p.pending.String(), err)
		p.bus.Broadcast(events.Message{Kind: events.KindEventFailedToLoadAudio, Location: p.pending, Text: err.Error()})
		p.state = stateDoNothing
		return
	}
	p.dec = dec
	if md := dec.Metadata(); md != nil {
		p.bus.Broadcast(events.Message{Kind: events.KindEventStartedTrack, Location: p.pending, Metadata: md})
	} else {
		p.bus.Broadcast(events.Message{Kind: events.KindEventStartedTrack, Location: p.pending})
	}

	if err := p.dev.Pause(); err != nil {
		playerLog.Printf("pre-load pause failed: %v", err)
	}

	if err := p.queueChunks(); err != nil {
		playerLog.Printf("decode failed while prefilling: %v", err)
		p.bus.Broadcast(events.Message{Kind: events.KindEventFailedToDecodeAudio, Text: err.Error()})
		p.teardownTrack()
		p.state = stateDoNothing
		return
	}

	p.atEOF = false
	p.resetFramesConsumed()
	if err := p.dev.Play(); err != nil {
		playerLog.Printf("play failed: %v", err)
		p.bus.Broadcast(events.Message{Kind: events.KindEventAudioDeviceFailed, Text: err.Error()})
	}
	p.lastStatusAt = time.Time{}
	p.state = statePlaying
}

// queueChunks implements spec.md §4.F's loop: pull decoded chunks while
// the sink wants more. The sink is created once per track; a mid-stream
// change of rate or channel count needs no new sink, because Sink.Queue
// remixes and resamples every chunk to the device's shape. It sets
// p.atEOF once the decoder reports a clean end of stream.
func (p *Player) queueChunks() error {
	for p.snk == nil || p.snk.NeedsMore() {
		chunk, err := p.dec.NextChunk()
		if err != nil {
			return err
		}
		if chunk == nil {
			p.atEOF = true
			return nil
		}
		if chunk.Frames() == 0 {
			continue
		}

		if p.analyzer == nil {
			p.analyzer = waveform.New(chunk.Rate())
		}
		p.analyzer.Push(chunk, time.Now())

		if p.snk == nil {
			p.snk = sink.New(p.dev)
		}
		if err := p.snk.Queue(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (p *Player) doPlayingTick() {
	if err := p.queueChunks(); err != nil {
		playerLog.Printf("decode error: %v", err)
		p.bus.Broadcast(events.Message{Kind: events.KindEventFailedToDecodeAudio, Text: err.Error()})
		p.teardownTrack()
		p.state = stateDoNothing
		return
	}
	if p.atEOF {
		if p.snk != nil {
			p.snk.Flush()
		}
		p.teardownTrack()
		p.state = stateDoNothing
		p.bus.Broadcast(events.Message{Kind: events.KindEventFinishedTrack})
		return
	}

	p.framesConsumed.Store(p.dev.FramesConsumed())
	now := time.Now()
	if p.lastStatusAt.IsZero() || now.Sub(p.lastStatusAt) >= statusInterval {
		p.lastStatusAt = now
		p.publishStatus(p.currentStatus())
	}
	if p.analyzer != nil && p.analyzer.NeedsUpdate(p.lastWaveformPublish) {
		p.lastWaveformPublish = now
		snap := p.analyzer.Snapshot()
		p.waveMu.Lock()
		p.waveSnap, p.haveWave = snap, true
		p.waveMu.Unlock()
		p.bus.Broadcast(events.Message{Kind: events.KindWaveformStateUpdated})
	}
}

// WaveformSnapshot returns the most recently published waveform state
// and whether one has been computed yet. Safe to call from any
// goroutine (the IPC handler calls it off the player thread).
func (p *Player) WaveformSnapshot() (waveform.Snapshot, bool) {
	p.waveMu.Lock()
	defer p.waveMu.Unlock()
	return p.waveSnap, p.haveWave
}

// Status returns the most recently published playback status. Safe to
// call from any goroutine.
func (p *Player) Status() events.PlaybackStatus {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	return p.lastStatus
}

func (p *Player) publishStatus(status events.PlaybackStatus) {
	p.statusMu.Lock()
	p.lastStatus = status
	p.statusMu.Unlock()
	p.bus.Broadcast(events.Message{Kind: events.KindPlaybackStateUpdated, Status: &status})
}

func (p *Player) currentStatus() events.PlaybackStatus {
	status := events.PlaybackStatus{Playing: p.state == statePlaying, Volume: 255}
	rate := p.preferred.Rate
	if p.dev != nil {
		rate = p.dev.Rate()
	}
	if rate > 0 {
		frames := p.framesConsumed.Load()
		status.Position = time.Duration(frames) * time.Second / time.Duration(rate)
	}
	if p.snk != nil {
		status.Volume = p.snk.Volume()
	}
	if p.dec != nil {
		if fc := p.dec.FrameCount(); fc != nil && p.dec.Rate() > 0 {
			d := time.Duration(*fc) * time.Second / time.Duration(p.dec.Rate())
			status.Duration = &d
		}
	}
	return status
}
