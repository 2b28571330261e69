package decoder

import (
	"os"

	"github.com/dhowden/tag"

	"github.com/jdisanti/millenium-player-sub000/internal/location"
)

// readCover opens loc (when it is a local file) and extracts the
// front-cover picture dhowden/tag finds in the container's tag block,
// complementing the title/artist/album-artist ffprobe's own "tags"
// object already supplies (probe.go). ffprobe does not surface
// embedded pictures, so this is the one piece of metadata that
// genuinely needs a second, tag-specific parse of the file.
//
// URLs are skipped: tag.ReadFrom needs a local io.ReadSeeker, and
// spec.md §4.B only requires cover extraction "from the container's
// latest snapshot", which for a remote stream has no stable seekable
// handle to re-read.
func readCover(loc location.Location) ([]byte, string) {
	if loc.IsURL() {
		return nil, ""
	}
	f, err := os.Open(loc.String())
	if err != nil {
		return nil, ""
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, ""
	}
	pic := m.Picture()
	if pic == nil {
		return nil, ""
	}
	return pic.Data, pic.MIMEType
}
