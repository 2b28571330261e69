package decoder

import (
	"encoding/json"
	"fmt"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// probeStream is the subset of an ffprobe stream entry we care about.
type probeStream struct {
	Index      int    `json:"index"`
	CodecType  string `json:"codec_type"`
	Channels   int    `json:"channels"`
	SampleRate string `json:"sample_rate"`
	Duration   string `json:"duration"`
}

type probeFormatTags struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	AlbumArtist string `json:"album_artist"`
	Album       string `json:"album"`
}

type probeFormat struct {
	Duration string          `json:"duration"`
	Tags     probeFormatTags `json:"tags"`
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

// trackInfo describes one selected audio stream's native parameters.
type trackInfo struct {
	index    int
	rate     int
	channels int
	frames   *int64 // nil if duration/rate couldn't establish a frame count
}

// probe runs ffprobe (via ffmpeg-go's Probe helper, which shells out to
// the ffprobe binary the way the teacher's audio package shells out to
// ffmpeg) against loc and returns the parsed result with every stream
// ffprobe reports; selectTrack filters out the non-audio ones.
func probe(loc string) (*probeResult, error) {
	raw, err := ffmpeg.Probe(loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamProbeFailed, err)
	}
	var result probeResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamProbeFailed, err)
	}
	return &result, nil
}

// selectTrack implements spec.md §4.B's track selection policy: the
// track whose channel count matches the preferred format, else whose
// rate matches, else the first audio track.
func selectTrack(streams []probeStream, preferRate, preferChannels int) (trackInfo, error) {
	var audio []probeStream
	for _, s := range streams {
		if s.CodecType == "audio" {
			audio = append(audio, s)
		}
	}
	if len(audio) == 0 {
		return trackInfo{}, ErrNoAudioTracks
	}

	pick := audio[0]
	found := false
	if preferChannels > 0 {
		for _, s := range audio {
			if s.Channels == preferChannels {
				pick = s
				found = true
				break
			}
		}
	}
	if !found && preferRate > 0 {
		for _, s := range audio {
			rate, _ := strconv.Atoi(s.SampleRate)
			if rate == preferRate {
				pick = s
				break
			}
		}
	}
	rate, _ := strconv.Atoi(pick.SampleRate)
	if rate <= 0 {
		rate = 44100
	}
	channels := pick.Channels
	if channels <= 0 {
		channels = 2
	}

	info := trackInfo{index: pick.Index, rate: rate, channels: channels}
	if dur, err := strconv.ParseFloat(pick.Duration, 64); err == nil && dur > 0 {
		frames := int64(dur * float64(rate))
		info.frames = &frames
	}
	return info, nil
}
