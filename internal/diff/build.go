package diff

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Aligner computes a minimal (or near-minimal) alignment between raw and ref, returned as ordered, disjoint, non-touching blocks.
type Aligner interface {
	Align(raw, ref []rune) []Block
}

// DMPAligner aligns with diff-match-patch's Myers implementation. The time budget is disabled so the result depends only on the input.
type DMPAligner struct{}

// Align implements Aligner.
func (DMPAligner) Align(raw, ref []rune) []Block {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMainRunes(raw, ref, false)

	var blocks []Block
	rawPos, refPos := 0, 0
	open := false // whether the last block can still grow (no equal text since)
	for _, d := range diffs {
		n := utf8.RuneCountInString(d.Text)
		if n == 0 {
			continue
		}
		if d.Type == diffmatchpatch.DiffEqual {
			rawPos += n
			refPos += n
			open = false
			continue
		}
		if !open {
			blocks = append(blocks, Block{RawFrom: rawPos, RawTo: rawPos, RefFrom: refPos, RefTo: refPos})
			open = true
		}
		last := &blocks[len(blocks)-1]
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			rawPos += n
			last.RawTo = rawPos
		case diffmatchpatch.DiffInsert:
			refPos += n
			last.RefTo = refPos
		}
	}
	return blocks
}

// BuildOptions selects the refinement passes Build applies after alignment.
type BuildOptions struct {
	// Shift slides each block to a canonical position: merged into its predecessor if it can slide onto it, otherwise moved to the nearest word boundary.
	Shift bool

	// JoinClose merges blocks separated by at most 3 non-whitespace characters.
	JoinClose bool

	// FixCommon trims a common prefix/suffix of a block's raw and ref text (merging can leave some behind).
	FixCommon bool

	// Aligner computes the initial alignment. If nil, DMPAligner is used.
	Aligner Aligner
}

// DefaultBuildOptions enables every refinement pass.
var DefaultBuildOptions = BuildOptions{Shift: true, JoinClose: true, FixCommon: true}

// maxJoinGap is the largest whitespace-free gap (in runes) JoinClose bridges.
const maxJoinGap = 3

// Build computes the change blocks between raw and ref.
//
// The result is ordered and disjoint in both coordinate spaces, and the text between blocks is equal in raw and ref, so stitching the equal runs with each block's
// raw (or ref) text reconstructs raw (or ref). Build panics if the aligner violates its contract.
func Build(raw, ref string, opts BuildOptions) []Block {
	return buildRunes([]rune(raw), []rune(ref), opts)
}

func buildRunes(raw, ref []rune, opts BuildOptions) []Block {
	aligner := opts.Aligner
	if aligner == nil {
		aligner = DMPAligner{}
	}

	blocks := joinTouching(aligner.Align(raw, ref))
	if err := validate(raw, ref, blocks); err != nil {
		panic(fmt.Errorf("Build: aligner returned invalid blocks: %w", err))
	}

	t := texts{raw: raw, ref: ref}
	if opts.Shift {
		blocks = t.shift(blocks)
	}
	if opts.JoinClose {
		blocks = t.joinClose(blocks)
	}
	if opts.FixCommon {
		blocks = t.fixCommon(blocks)
	}

	if err := validate(raw, ref, blocks); err != nil {
		panic(fmt.Errorf("Build: validate failed with %v", err))
	}
	return blocks
}

// joinTouching merges blocks that touch. The default aligner never produces them, but other aligners may.
func joinTouching(blocks []Block) []Block {
	var out []Block
	for _, b := range blocks {
		if n := len(out); n > 0 && out[n-1].RawTo == b.RawFrom && out[n-1].RefTo == b.RefFrom {
			out[n-1].RawTo = b.RawTo
			out[n-1].RefTo = b.RefTo
			continue
		}
		out = append(out, b)
	}
	return out
}

type texts struct {
	raw []rune
	ref []rune
}

// shift applies, block by block: mergeUp, then shiftDown, then shiftUpToWordBoundary.
func (t texts) shift(blocks []Block) []Block {
	out := make([]Block, 0, len(blocks))
	for i, b := range blocks {
		if n := len(out); n > 0 {
			if merged, ok := t.mergeUp(out[n-1], b); ok {
				out[n-1] = merged
				continue
			}
		}

		// Blocks after i have not moved yet, so their start bounds how far b may slide.
		rawLimit, refLimit := len(t.raw), len(t.ref)
		if i+1 < len(blocks) {
			rawLimit, refLimit = blocks[i+1].RawFrom, blocks[i+1].RefFrom
		}
		b = t.shiftDown(b, rawLimit, refLimit)

		prevRaw, prevRef := -1, -1
		if n := len(out); n > 0 {
			prevRaw, prevRef = out[n-1].RawTo, out[n-1].RefTo
		}
		b = t.shiftUpToWordBoundary(b, prevRaw, prevRef)

		out = append(out, b)
	}
	return out
}

// canSlideUp reports whether b can move back by one rune on both sides without changing the texts it stands for: the rune before each side equals that side's last
// rune. An empty side always qualifies.
func (t texts) canSlideUp(b Block) bool {
	if b.RawFrom == 0 || b.RefFrom == 0 {
		return false
	}
	return t.raw[b.RawFrom-1] == t.raw[b.RawTo-1] && t.ref[b.RefFrom-1] == t.ref[b.RefTo-1]
}

// canSlideDown is the mirror of canSlideUp; b may not reach past rawLimit/refLimit.
func (t texts) canSlideDown(b Block, rawLimit, refLimit int) bool {
	if b.RawTo >= rawLimit || b.RefTo >= refLimit {
		return false
	}
	return t.raw[b.RawFrom] == t.raw[b.RawTo] && t.ref[b.RefFrom] == t.ref[b.RefTo]
}

func slide(b Block, delta int) Block {
	return Block{RawFrom: b.RawFrom + delta, RawTo: b.RawTo + delta, RefFrom: b.RefFrom + delta, RefTo: b.RefTo + delta}
}

// mergeUp slides b back onto prev. If b reaches prev's end, the two become one block.
func (t texts) mergeUp(prev, b Block) (Block, bool) {
	for gap := b.RawFrom - prev.RawTo; gap > 0; gap-- {
		if !t.canSlideUp(b) {
			return prev, false
		}
		b = slide(b, -1)
	}
	return Block{RawFrom: prev.RawFrom, RawTo: b.RawTo, RefFrom: prev.RefFrom, RefTo: b.RefTo}, true
}

func (t texts) shiftDown(b Block, rawLimit, refLimit int) Block {
	for t.canSlideDown(b, rawLimit, refLimit) {
		b = slide(b, 1)
	}
	return b
}

// shiftUpToWordBoundary slides b back, but not onto the previous block's end (prevRaw/prevRef, or -1 if there is none), looking for a position whose ref side ends
// at a word end. Failing that it takes the first position whose ref side starts at a word start, and failing that it leaves b where it is.
func (t texts) shiftUpToWordBoundary(b Block, prevRaw, prevRef int) Block {
	best, found := b, false
	for cur := b; ; cur = slide(cur, -1) {
		if t.isWordEnd(cur.RefTo) {
			return cur
		}
		if !found && t.isWordStart(cur.RefFrom) {
			best, found = cur, true
		}
		if cur.RawFrom-1 <= prevRaw || cur.RefFrom-1 <= prevRef || !t.canSlideUp(cur) {
			break
		}
	}
	return best
}

// isWordEnd reports whether ref goes from non-whitespace to whitespace (or the end of text) at pos.
func (t texts) isWordEnd(pos int) bool {
	return pos > 0 && !unicode.IsSpace(t.ref[pos-1]) && (pos == len(t.ref) || unicode.IsSpace(t.ref[pos]))
}

// isWordStart reports whether ref goes from whitespace (or the start of text) to non-whitespace at pos.
func (t texts) isWordStart(pos int) bool {
	return pos < len(t.ref) && !unicode.IsSpace(t.ref[pos]) && (pos == 0 || unicode.IsSpace(t.ref[pos-1]))
}

// joinClose merges a block into its predecessor when the equal text between them is short and contains no whitespace, so one edited word is not split into
// fragments.
func (t texts) joinClose(blocks []Block) []Block {
	var out []Block
	for _, b := range blocks {
		if n := len(out); n > 0 {
			prev := &out[n-1]
			gap := t.ref[prev.RefTo:b.RefFrom]
			if len(gap) <= maxJoinGap && !containsSpace(gap) {
				prev.RawTo = b.RawTo
				prev.RefTo = b.RefTo
				continue
			}
		}
		out = append(out, b)
	}
	return out
}

// fixCommon trims runes shared by the start (then the end) of a block's raw and ref text. A block left empty on both sides is dropped.
func (t texts) fixCommon(blocks []Block) []Block {
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		for b.RawFrom < b.RawTo && b.RefFrom < b.RefTo && t.raw[b.RawFrom] == t.ref[b.RefFrom] {
			b.RawFrom++
			b.RefFrom++
		}
		for b.RawFrom < b.RawTo && b.RefFrom < b.RefTo && t.raw[b.RawTo-1] == t.ref[b.RefTo-1] {
			b.RawTo--
			b.RefTo--
		}
		if b.RawFrom == b.RawTo && b.RefFrom == b.RefTo {
			continue
		}
		out = append(out, b)
	}
	return out
}

func containsSpace(rs []rune) bool {
	for _, r := range rs {
		if unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
