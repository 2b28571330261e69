// Package decoder wraps an external demuxer/decoder (spec.md §4.B):
// here, an ffmpeg subprocess piping raw planar-compatible float32 PCM
// back to us, the same way the teacher's audio/ffmpegbase.go shells
// out to ffmpeg and reads its stdout pipe. It exposes next_chunk,
// seek, metadata and track selection exactly as spec.md describes
// them, independent of which concrete tool produces the bytes.
package decoder

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/jdisanti/millenium-player-sub000/internal/events"
	"github.com/jdisanti/millenium-player-sub000/internal/location"
	"github.com/jdisanti/millenium-player-sub000/internal/sourcebuffer"
)

var decoderLog = log.New(os.Stderr, "decoder: ", log.LstdFlags)

// chunkFrames is how many frames we ask the ffmpeg subprocess for per
// read. It does not need to match the sink's 1024-frame chunk size;
// the sink accumulates whatever the decoder hands it.
const chunkFrames = 4096

// PreferredFormat is the target rate/channel hint used only for track
// selection (spec.md §4.B): it never forces a resample here, that is
// the sink's job.
type PreferredFormat struct {
	Rate     int
	Channels int
}

// Decoder adapts an ffmpeg subprocess to the engine's next_chunk/seek
// contract. It is owned exclusively by the player thread.
type Decoder struct {
	loc      location.Location
	preferred PreferredFormat

	track    trackInfo
	metadata *events.TrackMetadata

	cmd    *exec.Cmd
	stdout io.ReadCloser
	reader *bufio.Reader

	mu  sync.Mutex
	eof bool
}

// New opens loc, probes its container, selects an audio track, and
// starts decoding it. It returns ErrNoAudioTracks if the container has
// none, ErrStreamProbeFailed if ffprobe itself fails, and
// ErrFailedToOpen if the decode subprocess can't be started.
func New(loc location.Location, preferred PreferredFormat) (*Decoder, error) {
	result, err := probe(loc.String())
	if err != nil {
		return nil, err
	}
	track, err := selectTrack(result.Streams, preferred.Rate, preferred.Channels)
	if err != nil {
		return nil, err
	}

	d := &Decoder{
		loc:       loc,
		preferred: preferred,
		track:     track,
		metadata:  metadataFromProbe(result),
	}
	if cover, mime := readCover(loc); cover != nil {
		if d.metadata == nil {
			d.metadata = &events.TrackMetadata{}
		}
		d.metadata.Cover = cover
		d.metadata.CoverMIME = mime
	}

	if err := d.start(0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToOpen, err)
	}
	return d, nil
}

func metadataFromProbe(r *probeResult) *events.TrackMetadata {
	tags := r.Format.Tags
	if tags.Title == "" && tags.Artist == "" && tags.AlbumArtist == "" {
		return nil
	}
	return &events.TrackMetadata{
		Title:       tags.Title,
		Artist:      tags.Artist,
		AlbumArtist: tags.AlbumArtist,
	}
}

// start (re)launches the ffmpeg subprocess, seeking to offsetSeconds
// into the selected track before decoding begins.
func (d *Decoder) start(offsetSeconds float64) error {
	inputArgs := ffmpeg.KwArgs{}
	if offsetSeconds > 0 {
		inputArgs["ss"] = fmt.Sprintf("%.3f", offsetSeconds)
	}
	outputArgs := ffmpeg.KwArgs{
		"f":   "f32le",
		"c:a": "pcm_f32le",
		"ar":  strconv.Itoa(d.track.rate),
		"ac":  strconv.Itoa(d.track.channels),
		"map": fmt.Sprintf("0:%d", d.track.index),
	}

	node := ffmpeg.Input(d.loc.String(), inputArgs)
	stream := node.Output("pipe:", outputArgs).ErrorToStdOut()
	cmd := stream.Compile()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	d.cmd = cmd
	d.stdout = stdout
	d.reader = bufio.NewReaderSize(stdout, chunkFrames*4*d.track.channels)
	d.eof = false
	return nil
}

func (d *Decoder) stopLocked() {
	if d.stdout != nil {
		d.stdout.Close()
	}
	if d.cmd != nil && d.cmd.Process != nil {
		_ = d.cmd.Process.Signal(syscall.SIGKILL)
		_ = d.cmd.Wait()
	}
	d.cmd = nil
	d.stdout = nil
	d.reader = nil
}

// Metadata returns the track's tag metadata, if any was found.
func (d *Decoder) Metadata() *events.TrackMetadata { return d.metadata }

// FrameCount returns the selected track's total frame count, if the
// container reported a duration.
func (d *Decoder) FrameCount() *int64 { return d.track.frames }

// Rate returns the selected track's native sample rate.
func (d *Decoder) Rate() int { return d.track.rate }

// Channels returns the selected track's native channel count.
func (d *Decoder) Channels() int { return d.track.channels }

// Seek performs a coarse seek to position (in seconds) by restarting
// the decode subprocess with an input-side -ss offset, mirroring how a
// subprocess-based decoder without native seek support must behave.
func (d *Decoder) Seek(positionSeconds float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	if err := d.start(positionSeconds); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToDecode, err)
	}
	return nil
}

// NextChunk reads the next block of samples from the subprocess pipe
// and decodes it into a new planar SourceBuffer. A clean end of stream
// is reported as (nil, nil); any other failure is wrapped as
// ErrFailedToRead or ErrFailedToDecode.
func (d *Decoder) NextChunk() (*sourcebuffer.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.eof || d.reader == nil {
		return nil, nil
	}

	bytesPerFrame := 4 * d.track.channels
	raw := make([]byte, chunkFrames*bytesPerFrame)
	n, err := io.ReadFull(d.reader, raw)
	switch {
	case err == nil:
		// full chunk
	case err == io.EOF:
		// no more data at all: clean EOF
		d.eof = true
		return nil, nil
	case err == io.ErrUnexpectedEOF:
		// a short final chunk; process what we got, then stop
		d.eof = true
	default:
		return nil, fmt.Errorf("%w: %v", ErrFailedToRead, err)
	}

	frames := n / bytesPerFrame
	if frames == 0 {
		d.eof = true
		return nil, nil
	}

	buf := sourcebuffer.Empty(d.track.rate, d.track.channels)
	planar := make([][]float32, d.track.channels)
	for c := range planar {
		planar[c] = make([]float32, frames)
	}
	r := newLittleEndianFloatReader(raw[:frames*bytesPerFrame])
	for f := 0; f < frames; f++ {
		for c := 0; c < d.track.channels; c++ {
			v, decErr := r.next()
			if decErr != nil {
				return nil, fmt.Errorf("%w: %v", ErrFailedToDecode, decErr)
			}
			planar[c][f] = v
		}
	}
	for c := 0; c < d.track.channels; c++ {
		buf.SetChannel(c, planar[c])
	}
	return buf, nil
}

// Close terminates the decode subprocess.
func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	return nil
}

type littleEndianFloatReader struct {
	data []byte
	pos  int
}

func newLittleEndianFloatReader(data []byte) *littleEndianFloatReader {
	return &littleEndianFloatReader{data: data}
}

func (r *littleEndianFloatReader) next() (float32, error) {
	if r.pos+4 > len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	bits := binary.LittleEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return math.Float32frombits(bits), nil
}
