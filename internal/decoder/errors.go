package decoder

import "errors"

// Sentinel errors the player state machine branches on (spec.md §7
// "Source errors"). Each is recoverable at the track level: the
// caller logs it, publishes the matching event, and returns to
// DoNothing.
var (
	ErrFailedToOpen      = errors.New("decoder: failed to open source")
	ErrStreamProbeFailed = errors.New("decoder: stream probe failed")
	ErrNoAudioTracks     = errors.New("decoder: no audio tracks")
	ErrFailedToDecode    = errors.New("decoder: failed to decode")
	ErrFailedToRead      = errors.New("decoder: failed to read packet")
	ErrMetadataFailed    = errors.New("decoder: metadata conversion failed")
)
