package editdist

import (
	"strings"
	"unicode/utf8"
)

// Match is the outcome of FindBestMatch.
type Match struct {
	Start int // rune offset into haystack of the best window, or -1 if no window was admissible
	Steps int // sum of Compute steps over all windows searched
}

// FindBestMatch looks for the block of consecutive haystack lines that best matches needle, where the block has as many lines as needle. Offsets are rune offsets.
// Neither string may contain '\r' (normalize line endings first).
//
// Windows are tried from the line containing start to the last window that fits. If start falls inside a line, the first window is clipped so it begins at start
// (text before start never takes part in a match). Each window is scored with Compute, bounded so that a search whose distance exceeds errorThreshold and whose
// distance-to-progress ratio exceeds errorRatio is abandoned. A window is admissible if its distance is <= errorThreshold, or if distance*errorRatio <= len(needle).
// The admissible window with the smallest distance wins; ties go to the earliest window. errorRatio may be +Inf.
func FindBestMatch(haystack, needle string, start, errorThreshold int, errorRatio float64) Match {
	if strings.ContainsRune(haystack, '\r') || strings.ContainsRune(needle, '\r') {
		panic("editdist: FindBestMatch requires LF-only input")
	}
	if start < 0 {
		panic("editdist: FindBestMatch called with negative start")
	}

	needleLen := utf8.RuneCountInString(needle)
	count := strings.Count(needle, "\n") + 1

	lines := splitLines(haystack)
	limit := func(row, col, d int) bool {
		return d > errorThreshold && exceedsRatio(d, errorRatio, row+col)
	}

	best := Match{Start: -1}
	bestDistance := -1
	for i := lineContaining(lines, start); i >= 0 && i+count <= len(lines); i++ {
		winStart := max(lines[i].start, start)
		window := haystack[lines[i].byteOffset(haystack, winStart):lines[i+count-1].endByte]

		res := Compute(window, needle, limit)
		best.Steps += res.Steps
		d := res.Distance
		if d < 0 {
			continue
		}
		if d > errorThreshold && exceedsRatio(d, errorRatio, needleLen) {
			continue
		}
		if bestDistance < 0 || d < bestDistance {
			bestDistance = d
			best.Start = winStart
			if d == 0 {
				break
			}
		}
	}
	return best
}

// exceedsRatio reports whether d*ratio > n. It treats d == 0 as never exceeding, which also keeps 0*Inf out of the comparison.
func exceedsRatio(d int, ratio float64, n int) bool {
	if d == 0 {
		return false
	}
	return float64(d)*ratio > float64(n)
}

// line is one '\n'-separated line of a string. start/end are rune offsets ([start, end) excludes the '\n'); startByte/endByte are the matching byte offsets.
type line struct {
	start, end         int
	startByte, endByte int
}

// byteOffset returns the byte offset in s of the rune offset pos, which must lie within l.
func (l line) byteOffset(s string, pos int) int {
	b := l.startByte
	for r := l.start; r < pos; r++ {
		_, size := utf8.DecodeRuneInString(s[b:])
		b += size
	}
	return b
}

func splitLines(s string) []line {
	var lines []line
	cur := line{}
	runePos := 0
	for bytePos, r := range s {
		if r == '\n' {
			cur.end, cur.endByte = runePos, bytePos
			lines = append(lines, cur)
			cur = line{start: runePos + 1, startByte: bytePos + 1}
		}
		runePos++
	}
	cur.end, cur.endByte = runePos, len(s)
	return append(lines, cur)
}

// lineContaining returns the index of the line containing the rune offset pos. An offset pointing at the '\n' that ends a non-empty line belongs to the following
// line. It returns -1 if pos is past the end.
func lineContaining(lines []line, pos int) int {
	for i, l := range lines {
		if pos < l.end || (pos == l.end && (pos == l.start || i == len(lines)-1)) {
			return i
		}
	}
	return -1
}
