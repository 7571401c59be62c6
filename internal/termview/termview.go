// Package termview renders the output of diff.Format for a terminal: each rendered character is colored by its Kind, and text can be wrapped to a column width.
// Widths are measured per grapheme cluster, so combining marks, emoji sequences, and wide East Asian characters wrap correctly.
package termview

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/graphemes"
	"github.com/codalotl/livediff/internal/diff"
	"github.com/mattn/go-runewidth"
)

// ANSI 256-color styles.
const (
	reset    = "\x1b[0m"
	removed  = "\x1b[30m\x1b[48;5;217m" // pink
	added    = "\x1b[30m\x1b[48;5;114m" // green
	modified = "\x1b[30m\x1b[48;5;229m" // yellow
	gap      = "\x1b[4m"                // underline
)

// TabWidth is the number of columns between tab stops.
const TabWidth = 4

// newlineMark stands in for a changed line break, which would otherwise be invisible.
const newlineMark = "↵"

type Options struct {
	Width     int  // wrap lines longer than Width columns; <= 0 disables wrapping
	Color     bool // emit ANSI colors; if false, only the text is written
	EastAsian bool // treat ambiguous-width East Asian characters as 2 columns
}

// Render returns text styled per chars, which must hold one Char per rune of text (as returned by diff.Format). Tabs are expanded to spaces. Render panics if
// chars does not match text.
func Render(text string, chars []diff.Char, opts Options) string {
	out, _ := RenderLines(text, chars, opts)
	return out
}

// RenderLines is Render, also returning the index into chars of the first character of each output line. A line that starts past the last character (after a
// trailing newline) gets len(chars).
func RenderLines(text string, chars []diff.Char, opts Options) (string, []int) {
	r := renderer{opts: opts, cond: condition(opts), lineStarts: []int{0}}
	iter := graphemes.FromString(text)
	runeIdx := 0
	for iter.Next() {
		cluster := iter.Value()
		n := len([]rune(cluster))
		if runeIdx+n > len(chars) {
			panic("termview: fewer chars than runes in text")
		}
		r.idx = runeIdx
		r.cluster(cluster, clusterKind(chars[runeIdx:runeIdx+n]), runeIdx+n)
		runeIdx += n
	}
	if runeIdx != len(chars) {
		panic("termview: more chars than runes in text")
	}
	r.setStyle("")
	return r.out.String(), r.lineStarts
}

func condition(opts Options) *runewidth.Condition {
	cond := runewidth.NewCondition()
	cond.EastAsianWidth = opts.EastAsian
	cond.StrictEmojiNeutral = true
	return cond
}

// clusterKind picks the Kind shown for a grapheme cluster: the first changed rune wins, then the first gap marker.
func clusterKind(chars []diff.Char) diff.Kind {
	kind := diff.KindEqual
	for _, c := range chars {
		switch c.Kind {
		case diff.KindAdded, diff.KindRemoved, diff.KindModified:
			return c.Kind
		case diff.KindGapLeft, diff.KindGapRight:
			if kind == diff.KindEqual {
				kind = c.Kind
			}
		}
	}
	return kind
}

func styleFor(k diff.Kind) string {
	switch k {
	case diff.KindAdded:
		return added
	case diff.KindRemoved:
		return removed
	case diff.KindModified:
		return modified
	case diff.KindGapLeft, diff.KindGapRight:
		return gap
	default:
		return ""
	}
}

type renderer struct {
	opts  Options
	cond  *runewidth.Condition
	out   strings.Builder
	style string // currently active style
	col   int

	idx        int   // index of the cluster being written
	lineStarts []int // char index at the start of each line
}

func (r *renderer) setStyle(style string) {
	if !r.opts.Color || style == r.style {
		return
	}
	if r.style != "" {
		r.out.WriteString(reset)
	}
	r.out.WriteString(style)
	r.style = style
}

// newline ends the current line; the next line starts at char index next. Styles never span a line break.
func (r *renderer) newline(next int) {
	r.setStyle("")
	r.out.WriteByte('\n')
	r.col = 0
	r.lineStarts = append(r.lineStarts, next)
}

// cluster writes one grapheme cluster; next is the char index just after it.
func (r *renderer) cluster(cluster string, kind diff.Kind, next int) {
	style := styleFor(kind)
	switch cluster {
	case "\n":
		if kind == diff.KindAdded || kind == diff.KindRemoved || kind == diff.KindModified {
			r.write(newlineMark, style)
		}
		r.newline(next)
	case "\t":
		r.write(strings.Repeat(" ", TabWidth-r.col%TabWidth), style)
	default:
		r.write(cluster, style)
	}
}

// write emits s, which is either one grapheme cluster or a run of spaces, wrapping first if it does not fit.
func (r *renderer) write(s string, style string) {
	w := r.cond.StringWidth(s)
	if r.opts.Width > 0 && r.col > 0 && r.col+w > r.opts.Width {
		r.newline(r.idx)
	}
	r.setStyle(style)
	r.out.WriteString(s)
	r.col += w
}
