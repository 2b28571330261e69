// Package ipc implements the published-state contract from spec.md
// §6: the HTTP surface a windowed UI shell's web view polls for
// playback state and waveform data, and posts commands back through.
// It is built on gin, the HTTP framework arung-agamani-denpa-radio's
// internal/radio handlers use (the teacher has no HTTP surface), rather
// than stdlib net/http, matching the handler-struct shape that package
// uses.
package ipc

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jdisanti/millenium-player-sub000/internal/events"
	"github.com/jdisanti/millenium-player-sub000/internal/player"
	"github.com/jdisanti/millenium-player-sub000/internal/playlist"
	"github.com/jdisanti/millenium-player-sub000/internal/waveform"
)

var ipcLog = log.New(os.Stderr, "ipc: ", log.LstdFlags)

// PlayerStatusSource is the subset of *player.Player the IPC layer
// needs; a narrow interface keeps handler tests from having to stand
// up a real device and decoder.
type PlayerStatusSource interface {
	Status() events.PlaybackStatus
	WaveformSnapshot() (waveform.Snapshot, bool)
}

// PlaylistSource is the subset of *playlist.Controller the IPC layer
// reads from.
type PlaylistSource interface {
	CurrentEntry() (playlist.Entry, bool)
	Mode() playlist.Mode
}

var _ PlayerStatusSource = (*player.Player)(nil)
var _ PlaylistSource = (*playlist.Controller)(nil)

// Server wires the gin engine described in spec.md §6: GET
// /ipc/playback, GET /ipc/waveform, asset serving, and the UI->backend
// message endpoint.
type Server struct {
	engine   *gin.Engine
	bus      *events.Bus
	pl       PlayerStatusSource
	list     PlaylistSource
	assetDir string
}

// New builds the gin engine and registers routes. assetDir is the
// directory GET /<path> serves static files from (spec.md §6 "Assets
// served from GET /<path>").
func New(bus *events.Bus, pl PlayerStatusSource, list PlaylistSource, assetDir string) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{engine: engine, bus: bus, pl: pl, list: list, assetDir: assetDir}
	engine.GET("/ipc/playback", s.handlePlayback)
	engine.GET("/ipc/waveform", s.handleWaveform)
	engine.POST("/ipc/message", s.handleMessage)
	if assetDir != "" {
		engine.StaticFS("/", http.Dir(assetDir))
	}
	return s
}

// Run starts the HTTP server on addr, blocking until it exits.
func (s *Server) Run(addr string) error {
	ipcLog.Printf("listening on %s", addr)
	return s.engine.Run(addr)
}

type trackJSON struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

type playbackStatusJSON struct {
	Playing  bool     `json:"playing"`
	Position float64  `json:"position"`
	Duration *float64 `json:"duration"`
	Volume   uint8    `json:"volume"`
}

// handlePlayback serves spec.md §6's `GET /ipc/playback` contract.
func (s *Server) handlePlayback(c *gin.Context) {
	status := s.pl.Status()

	var current *trackJSON
	if entry, ok := s.list.CurrentEntry(); ok && entry.Metadata != nil {
		current = &trackJSON{
			Title:  entry.Metadata.Title,
			Artist: entry.Metadata.Artist,
			Album:  entry.Metadata.AlbumArtist,
		}
	}

	var duration *float64
	if status.Duration != nil {
		d := status.Duration.Seconds()
		duration = &d
	}

	c.JSON(http.StatusOK, gin.H{
		"current_track": current,
		"playback_status": playbackStatusJSON{
			Playing:  status.Playing,
			Position: status.Position.Seconds(),
			Duration: duration,
			Volume:   status.Volume,
		},
		"playlist_mode": s.list.Mode().String(),
	})
}

// handleWaveform serves spec.md §6's `GET /ipc/waveform` contract: two
// contiguous blocks of BIN_COUNT 32-bit native-endian floats, spectrum
// then amplitude. 404 if nothing has been computed yet.
func (s *Server) handleWaveform(c *gin.Context) {
	snap, ok := s.pl.WaveformSnapshot()
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	buf := make([]byte, 0, waveform.BinCount*4*2)
	buf = appendFloats(buf, snap.Spectrum[:])
	buf = appendFloats(buf, snap.Amplitude[:])
	c.Data(http.StatusOK, "application/octet-stream", buf)
}

func appendFloats(buf []byte, vals []float32) []byte {
	var tmp [4]byte
	for _, v := range vals {
		binary.NativeEndian.PutUint32(tmp[:], math.Float32bits(v))
		buf = append(buf, tmp[:]...)
	}
	return buf
}

// uiMessage mirrors spec.md §6's JSON-tagged UI->backend message union.
type uiMessage struct {
	Kind      string   `json:"kind"`
	Locations []string `json:"locations"`
	Position  float64  `json:"position"`
	Volume    uint8    `json:"volume"`
	Mode      string   `json:"mode"`
	Level     string   `json:"level"`
	Message   string   `json:"message"`
}

// handleMessage accepts a UI->backend message and republishes it on the
// bus's UI/playlist/player channel so the rest of the engine reacts to
// it exactly as if it arrived over the in-process bus directly.
func (s *Server) handleMessage(c *gin.Context) {
	var m uiMessage
	if err := c.ShouldBindJSON(&m); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, skip, err := translateUIMessage(m)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !skip {
		s.bus.Broadcast(msg)
	}
	c.Status(http.StatusAccepted)
}

// translateUIMessage maps the JSON-tagged union onto an internal bus
// Message. skip is true for kinds that are part of the UI's shared
// tagged-union type but carry nothing for the engine to act on.
func translateUIMessage(m uiMessage) (msg events.Message, skip bool, err error) {
	switch m.Kind {
	case "Quit":
		return events.Message{Kind: events.KindQuit}, false, nil
	case "LoadLocations":
		return events.Message{Kind: events.KindLoadLocations, Locations: m.Locations}, false, nil
	case "MediaControlPlay":
		return events.Message{Kind: events.KindMediaControlPlay}, false, nil
	case "MediaControlPause":
		return events.Message{Kind: events.KindMediaControlPause}, false, nil
	case "MediaControlStop":
		return events.Message{Kind: events.KindMediaControlStop}, false, nil
	case "MediaControlSkipBack":
		return events.Message{Kind: events.KindMediaControlSkipBack}, false, nil
	case "MediaControlSkipForward":
		return events.Message{Kind: events.KindMediaControlSkipForward}, false, nil
	case "MediaControlBack":
		return events.Message{Kind: events.KindMediaControlBack}, false, nil
	case "MediaControlForward":
		return events.Message{Kind: events.KindMediaControlForward}, false, nil
	case "MediaControlSeek":
		return events.Message{Kind: events.KindMediaControlSeek, Position: secondsToDuration(m.Position)}, false, nil
	case "MediaControlVolume":
		return events.Message{Kind: events.KindMediaControlVolume, Volume: m.Volume}, false, nil
	case "MediaControlPlaylistMode":
		return events.Message{Kind: events.KindMediaControlPlaylistMode, Mode: parseMode(m.Mode)}, false, nil
	case "DragWindowStart":
		return events.Message{Kind: events.KindDragWindowStart}, false, nil
	case "ShowAlert":
		return events.Message{Kind: events.KindShowAlert, Level: parseAlertLevel(m.Level), Text: m.Message}, false, nil
	case "Log":
		return events.Message{Kind: events.KindLog, Level: parseAlertLevel(m.Level), Text: m.Message}, false, nil
	case "PlaybackStateUpdated", "WaveformStateUpdated":
		// Part of the UI's shared tagged-union type but nothing the
		// engine needs to act on when the UI echoes its own
		// notification kind back.
		return events.Message{}, true, nil
	default:
		return events.Message{}, false, fmt.Errorf("ipc: unknown message kind %q", m.Kind)
	}
}

func parseMode(s string) events.PlaylistMode {
	switch s {
	case "RepeatOne":
		return events.ModeRepeatOne
	case "RepeatAll":
		return events.ModeRepeatAll
	case "Shuffle":
		return events.ModeShuffle
	default:
		return events.ModeNormal
	}
}

func parseAlertLevel(s string) events.AlertLevel {
	switch s {
	case "Warning":
		return events.AlertWarning
	case "Error":
		return events.AlertError
	default:
		return events.AlertInfo
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
