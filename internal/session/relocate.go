package session

import (
	"github.com/codalotl/livediff/internal/editdist"
	"github.com/codalotl/livediff/internal/normalize"
)

// MatchConfig tunes approximate chunk matching. A candidate is accepted if its edit distance is at most ErrorThreshold, or if distance*ErrorRatio is at most the
// chunk's length in runes.
type MatchConfig struct {
	ErrorThreshold int
	ErrorRatio     float64
}

// DefaultMatchConfig accepts up to 5 edits, or more if they amount to at most a tenth of the chunk.
var DefaultMatchConfig = MatchConfig{ErrorThreshold: 5, ErrorRatio: 10}

// Relocate finds where chunk, a run of whole lines seen earlier, now sits in haystack. The search starts at the line containing rune offset start (clamped to
// haystack) and picks the closest window of lines. Match.Start is the rune offset of the match in the line-ending-normalized haystack, or -1 if nothing is close
// enough.
func Relocate(haystack, chunk string, start int, cfg MatchConfig) editdist.Match {
	haystack = normalize.LineEndings(haystack)
	chunk = normalize.LineEndings(chunk)
	start = min(max(start, 0), len([]rune(haystack)))
	return editdist.FindBestMatch(haystack, chunk, start, cfg.ErrorThreshold, cfg.ErrorRatio)
}
