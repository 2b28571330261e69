// Package playlist implements Component H: an ordered list of track
// entries, a cursor, and a mode policy (Normal, RepeatOne, RepeatAll,
// Shuffle) that reacts to UI transport commands and player events
// arriving on the bus (spec.md §4.H). It has no blocking calls of its
// own, so, per spec.md §5, it is safe to drive from the main/UI
// goroutine via message polling rather than a dedicated thread.
package playlist

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/jdisanti/millenium-player-sub000/internal/events"
	"github.com/jdisanti/millenium-player-sub000/internal/location"
)

var playlistLog = log.New(os.Stderr, "playlist: ", log.LstdFlags)

// ErrModeNotImplemented is logged when a skip or finished-track event
// arrives in Shuffle or RepeatAll mode. In those modes skip-forward and
// skip-back change nothing, and a finished track clears the cursor.
var ErrModeNotImplemented = errors.New("playlist: mode not implemented")

// skipBackRestartThreshold is the position, in the current track, at or
// past which SkipBack restarts the track instead of moving back one
// entry (spec.md §4.H, §8 property 6).
const skipBackRestartThreshold = 7 * time.Second

// Entry is a Track entry (spec.md §3): a stable id, a location, and
// optional metadata/duration learned once the player starts it.
type Entry struct {
	ID       uint64
	Location location.Location
	Metadata *events.TrackMetadata
	Duration *time.Duration
}

// Mode selects how the playlist advances on end-of-track and
// skip-forward/back (spec.md §3 PlaylistMode).
type Mode = events.PlaylistMode

const (
	ModeNormal    = events.ModeNormal
	ModeRepeatOne = events.ModeRepeatOne
	ModeRepeatAll = events.ModeRepeatAll
	ModeShuffle   = events.ModeShuffle
)

// Controller owns the Playlist (entries + cursor) and the current
// Mode. It is driven exclusively by Run's message loop; nothing else
// should mutate its fields.
type Controller struct {
	bus *events.Bus
	sub *events.Subscription

	entries []Entry
	cursor  int // index into entries, or -1 when the cursor is None
	nextID  uint64

	mode          Mode
	lastPosition  time.Duration
	currentStatus events.PlaybackStatus
}

// New creates a Controller subscribed to the playlist channel, which
// carries both the MediaControl* commands and the player's events such
// as EventFinishedTrack.
func New(bus *events.Bus) *Controller {
	return &Controller{
		bus:    bus,
		sub:    bus.Subscribe("playlist", events.ChannelPlaylist),
		cursor: -1,
		mode:   ModeNormal,
	}
}

// Run processes messages until the subscription is closed or a
// CommandQuit-equivalent Quit message arrives. It has no blocking
// calls besides the subscription receive itself, so it is safe to run
// on the main/UI goroutine (spec.md §5).
func (c *Controller) Run() {
	for {
		msg, ok := c.sub.Recv()
		if !ok {
			return
		}
		if msg.Kind == events.KindQuit {
			c.bus.BroadcastFrom(c.sub, events.Message{Kind: events.KindCommandQuit})
			return
		}
		c.Handle(msg)
	}
}

// Handle processes a single message synchronously; Run calls this in a
// loop, and tests call it directly to avoid a goroutine per scenario.
func (c *Controller) Handle(msg events.Message) {
	switch msg.Kind {
	case events.KindLoadLocations:
		c.handleLoadLocations(msg.Locations)
	case events.KindMediaControlSkipForward, events.KindMediaControlForward:
		c.handleSkipForward()
	case events.KindMediaControlSkipBack, events.KindMediaControlBack:
		c.handleSkipBack()
	case events.KindEventFinishedTrack:
		c.handleFinishedTrack()
	case events.KindEventStartedTrack:
		if msg.Metadata != nil {
			c.SetCurrentMetadata(msg.Location, msg.Metadata)
		}
	case events.KindMediaControlPause:
		c.bus.BroadcastFrom(c.sub, events.Message{Kind: events.KindCommandPause})
	case events.KindMediaControlPlay:
		c.bus.BroadcastFrom(c.sub, events.Message{Kind: events.KindCommandResume})
	case events.KindMediaControlStop:
		c.bus.BroadcastFrom(c.sub, events.Message{Kind: events.KindCommandStop})
		c.cursor = -1
	case events.KindMediaControlSeek:
		c.bus.BroadcastFrom(c.sub, events.Message{Kind: events.KindCommandSeek, Position: msg.Position})
	case events.KindMediaControlVolume:
		c.bus.BroadcastFrom(c.sub, events.Message{Kind: events.KindCommandSetVolume, Volume: msg.Volume})
	case events.KindMediaControlPlaylistMode:
		c.mode = msg.Mode
	case events.KindPlaybackStateUpdated:
		if msg.Status != nil {
			c.currentStatus = *msg.Status
			c.lastPosition = msg.Status.Position
		}
	case events.KindEventFailedToDecodeAudio, events.KindEventFailedToLoadAudio:
		// Recoverable at the track level (spec.md §7): the same
		// advance-or-stop policy as a finished track applies so a bad
		// file doesn't wedge the playlist.
		c.handleFinishedTrack()
	}
}

// handleLoadLocations filters the input to audio locations (playlist
// files are recognized but not yet supported, per spec.md §4.H),
// replaces the playlist, and starts the first entry.
func (c *Controller) handleLoadLocations(raw []string) {
	entries := make([]Entry, 0, len(raw))
	for _, s := range raw {
		loc, err := location.Parse(s)
		if err != nil {
			playlistLog.Printf("skipping unparsable location %q: %v", s, err)
			continue
		}
		if location.InferKind(loc) != location.KindAudio {
			continue
		}
		c.nextID++
		entries = append(entries, Entry{ID: c.nextID, Location: loc})
	}

	if len(entries) == 0 {
		if len(raw) > 0 {
			c.bus.BroadcastFrom(c.sub, events.Message{
				Kind:  events.KindShowAlert,
				Level: events.AlertInfo,
				Text:  "None of the given files are audio or playlist files.",
			})
		}
		return
	}

	c.entries = entries
	c.cursor = 0
	c.playCurrent()
}

func (c *Controller) playCurrent() {
	if c.cursor < 0 || c.cursor >= len(c.entries) {
		return
	}
	c.bus.BroadcastFrom(c.sub, events.Message{
		Kind:     events.KindCommandLoadAndPlayLocation,
		Location: c.entries[c.cursor].Location,
	})
}

// handleSkipForward implements spec.md §4.H MediaControlSkipForward:
// Normal advances and stops off the end; RepeatOne replays; Shuffle
// and RepeatAll are explicitly unimplemented.
func (c *Controller) handleSkipForward() {
	if c.cursor < 0 {
		return
	}
	switch c.mode {
	case ModeRepeatOne:
		c.playCurrent()
	case ModeShuffle, ModeRepeatAll:
		playlistLog.Printf("skip-forward in mode %s: %v", c.mode, ErrModeNotImplemented)
	default: // ModeNormal
		if c.cursor+1 >= len(c.entries) {
			c.bus.BroadcastFrom(c.sub, events.Message{Kind: events.KindCommandStop})
			c.cursor = -1
			return
		}
		c.cursor++
		c.playCurrent()
	}
}

// handleSkipBack implements spec.md §4.H MediaControlSkipBack: restart
// the current track if far enough into it, else step back; off the
// start in Normal mode stops and clears the cursor.
func (c *Controller) handleSkipBack() {
	if c.cursor < 0 {
		return
	}
	if c.mode == ModeRepeatOne || c.lastPosition >= skipBackRestartThreshold {
		c.playCurrent()
		return
	}
	switch c.mode {
	case ModeShuffle, ModeRepeatAll:
		playlistLog.Printf("skip-back in mode %s: %v", c.mode, ErrModeNotImplemented)
	default: // ModeNormal
		if c.cursor == 0 {
			c.bus.BroadcastFrom(c.sub, events.Message{Kind: events.KindCommandStop})
			c.cursor = -1
			return
		}
		c.cursor--
		c.playCurrent()
	}
}

// handleFinishedTrack implements spec.md §4.H EventFinishedTrack: like
// skip-forward, but end-of-playlist just clears the cursor without
// publishing CommandStop, because the track already ended cleanly.
func (c *Controller) handleFinishedTrack() {
	if c.cursor < 0 {
		return
	}
	switch c.mode {
	case ModeRepeatOne:
		c.playCurrent()
	case ModeShuffle, ModeRepeatAll:
		playlistLog.Printf("finished-track in mode %s: %v", c.mode, ErrModeNotImplemented)
		c.cursor = -1
	default: // ModeNormal
		if c.cursor+1 >= len(c.entries) {
			c.cursor = -1
			return
		}
		c.cursor++
		c.playCurrent()
	}
}

// CurrentIndex and CurrentID report the cursor (spec.md §3 "cursor
// consisting of (optional current id, optional current index)"); ok is
// false when the cursor is None.
func (c *Controller) CurrentIndex() (int, bool) {
	if c.cursor < 0 {
		return 0, false
	}
	return c.cursor, true
}

func (c *Controller) CurrentID() (uint64, bool) {
	if c.cursor < 0 || c.cursor >= len(c.entries) {
		return 0, false
	}
	return c.entries[c.cursor].ID, true
}

// CurrentEntry returns the entry at the cursor, if any.
func (c *Controller) CurrentEntry() (Entry, bool) {
	if c.cursor < 0 || c.cursor >= len(c.entries) {
		return Entry{}, false
	}
	return c.entries[c.cursor], true
}

// SetCurrentMetadata records metadata for the entry matching loc;
// Handle calls it when a KindEventStartedTrack message arrives with the
// decoder's probed tags.
func (c *Controller) SetCurrentMetadata(loc location.Location, md *events.TrackMetadata) {
	for i := range c.entries {
		if c.entries[i].Location == loc {
			c.entries[i].Metadata = md
			return
		}
	}
}

// Mode returns the active playlist mode.
func (c *Controller) Mode() Mode { return c.mode }

// Entries returns a copy of the current playlist entries, which the
// caller may keep while later Handle calls change the playlist. It
// takes no lock, so it must be called from the goroutine that drives
// Handle.
func (c *Controller) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}
