// Package location implements the Location value (a filesystem path or
// a URL) and the file-extension based inference table from spec.md §6
// that the playlist controller uses to filter incoming requests.
package location

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Location is either a filesystem path or a URL, distinguished the way
// the CLI does it: the presence of "://" marks a URL.
type Location struct {
	raw   string
	isURL bool
}

// Parse classifies s as a path or URL. A string containing "://" must
// parse as a URL with a non-empty scheme, so "://bad" is rejected.
// An empty string is rejected.
func Parse(s string) (Location, error) {
	if s == "" {
		return Location{}, fmt.Errorf("location: empty string")
	}
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" {
			return Location{}, fmt.Errorf("location: invalid URL %q", s)
		}
		return Location{raw: s, isURL: true}, nil
	}
	return Location{raw: s, isURL: false}, nil
}

// MustParse is Parse but panics on error; used for literal locations in
// tests and internal construction from already-validated strings.
func MustParse(s string) Location {
	l, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return l
}

// String returns the raw location text.
func (l Location) String() string { return l.raw }

// IsURL reports whether the location was classified as a URL.
func (l Location) IsURL() bool { return l.isURL }

// MarshalJSON serializes the location as its raw string, so
// "/path/to/x" round-trips as the JSON string "/path/to/x" (spec §8 S6).
func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.raw)
}

// UnmarshalJSON parses the location from a JSON string.
func (l *Location) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Kind classifies a location by its file extension, per the table in
// spec.md §6.
type Kind int

const (
	KindUnknown Kind = iota
	KindAudio
	KindPlaylist
)

var audioExtensions = map[string]bool{
	"aac": true, "mp1": true, "mp2": true, "mp3": true, "mp4": true,
	"m4a": true, "ogg": true, "oga": true, "opus": true, "flac": true,
	"wav": true, "webm": true,
}

var playlistExtensions = map[string]bool{
	"m3u": true, "m3u8": true, "pls": true,
}

// InferKind returns the Kind of l based on its lower-cased file
// extension. Locations with no extension are KindUnknown.
func InferKind(l Location) Kind {
	ext := filepath.Ext(l.raw)
	if ext == "" {
		return KindUnknown
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch {
	case audioExtensions[ext]:
		return KindAudio
	case playlistExtensions[ext]:
		return KindPlaylist
	default:
		return KindUnknown
	}
}
