// Package events defines the single message type carried on the
// engine's message bus (spec.md §4.G), covering UI commands, internal
// player commands, player-to-playlist events, and published state
// notifications. Using one tagged struct for all of it mirrors the
// teacher's preference for a small number of plain types over a deep
// interface hierarchy, while still giving every call site a `Kind` to
// switch on.
package events

import (
	"time"

	"github.com/jdisanti/millenium-player-sub000/internal/bus"
	"github.com/jdisanti/millenium-player-sub000/internal/location"
)

// Channel tags used for subscription filtering. A subscriber on
// ChannelUI, for instance, only hears messages meant for the UI (state
// snapshots, alerts); the player only hears commands.
const (
	ChannelUI       bus.Channel = 1 << iota // state updates, alerts bound for the UI
	ChannelPlayer                           // commands bound for the player state machine
	ChannelPlaylist                         // events bound for the playlist controller
)

// Kind discriminates the payload carried by a Message.
type Kind int

const (
	// UI -> engine commands (spec.md §6 IPC contract).
	KindDragWindowStart Kind = iota
	KindQuit
	KindLoadLocations
	KindMediaControlPlay
	KindMediaControlPause
	KindMediaControlStop
	KindMediaControlSkipBack
	KindMediaControlSkipForward
	KindMediaControlBack
	KindMediaControlForward
	KindMediaControlSeek
	KindMediaControlVolume
	KindMediaControlPlaylistMode

	// engine -> UI notifications.
	KindShowAlert
	KindLog
	KindPlaybackStateUpdated
	KindWaveformStateUpdated

	// playlist -> player commands (internal, not on the IPC contract).
	KindCommandLoadAndPlayLocation
	KindCommandPause
	KindCommandResume
	KindCommandStop
	KindCommandSeek
	KindCommandSetVolume
	KindCommandQuit

	// player -> playlist events (internal).
	KindEventStartedTrack
	KindEventFinishedTrack
	KindEventFailedToDecodeAudio
	KindEventFailedToLoadAudio
	KindEventAudioDeviceFailed
)

// AlertLevel mirrors the {level, message} ShowAlert/Log payload shape.
type AlertLevel int

const (
	AlertInfo AlertLevel = iota
	AlertWarning
	AlertError
)

// PlaylistMode is repeated here (rather than imported from the
// playlist package) to avoid an import cycle: both player and playlist
// need to refer to it when building messages.
type PlaylistMode int

const (
	ModeNormal PlaylistMode = iota
	ModeRepeatOne
	ModeRepeatAll
	ModeShuffle
)

func (m PlaylistMode) String() string {
	switch m {
	case ModeRepeatOne:
		return "RepeatOne"
	case ModeRepeatAll:
		return "RepeatAll"
	case ModeShuffle:
		return "Shuffle"
	default:
		return "Normal"
	}
}

// Message is the single payload type broadcast on the engine bus.
// Only the fields relevant to Kind are populated; the rest are zero.
type Message struct {
	Kind Kind

	Locations []string
	Location  location.Location
	Position  time.Duration
	Volume    uint8
	Mode      PlaylistMode
	Level     AlertLevel
	Text      string

	Status   *PlaybackStatus
	Metadata *TrackMetadata
}

// PlaybackStatus mirrors spec.md §3's "Playback status".
type PlaybackStatus struct {
	Playing  bool
	Position time.Duration
	Duration *time.Duration
	Volume   uint8
}

// TrackMetadata mirrors the minimal metadata spec.md §3 allows on a
// track entry, plus the front-cover image spec.md §4.B's decoder
// adapter is asked to obtain from the container's tag snapshot.
type TrackMetadata struct {
	Artist      string
	AlbumArtist string
	Title       string
	Cover       []byte
	CoverMIME   string
}

// Channel implements bus.Message.
func (m Message) Channel() bus.Channel {
	switch m.Kind {
	case KindDragWindowStart, KindQuit, KindLoadLocations,
		KindMediaControlPlay, KindMediaControlPause, KindMediaControlStop,
		KindMediaControlSkipBack, KindMediaControlSkipForward,
		KindMediaControlBack, KindMediaControlForward,
		KindMediaControlSeek, KindMediaControlVolume, KindMediaControlPlaylistMode:
		return ChannelPlaylist | ChannelPlayer
	case KindShowAlert, KindLog, KindWaveformStateUpdated:
		return ChannelUI
	case KindPlaybackStateUpdated:
		// The playlist controller needs every status tick too: it reads
		// Status.Position to decide whether MediaControlSkipBack should
		// restart the current track or step back (spec.md §4.H).
		return ChannelPlaylist | ChannelUI
	case KindCommandLoadAndPlayLocation, KindCommandPause, KindCommandResume,
		KindCommandStop, KindCommandSeek, KindCommandSetVolume, KindCommandQuit:
		return ChannelPlayer
	case KindEventStartedTrack, KindEventFinishedTrack, KindEventFailedToDecodeAudio,
		KindEventFailedToLoadAudio, KindEventAudioDeviceFailed:
		return ChannelPlaylist | ChannelUI
	default:
		return bus.ChannelAll
	}
}

// Frequent implements bus.Message: status and waveform ticks are
// high-rate and log at debug level only.
func (m Message) Frequent() bool {
	return m.Kind == KindPlaybackStateUpdated || m.Kind == KindWaveformStateUpdated
}

// Bus is the concrete bus type used throughout the engine.
type Bus = bus.Bus[Message]

// Subscription is the concrete subscription type returned by Bus.Subscribe.
type Subscription = bus.Subscription[Message]

// NewBus constructs the shared message bus with a modest per-subscriber
// queue depth; any message that finds a subscriber's queue full is
// dropped for that subscriber rather than blocking.
func NewBus() *Bus {
	return bus.New[Message](32)
}
