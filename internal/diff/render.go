package diff

import (
	"fmt"
	"sort"
	"strings"
)

// Mode selects how Format presents a block.
type Mode int

// Presentation modes.
const (
	// ModeReplaceModifiedByAddedRemoved shows a block's raw text as removed, followed by its ref text as added.
	ModeReplaceModifiedByAddedRemoved Mode = iota

	// ModeKeepRawForModified shows raw text only; the output equals Diff.Raw.
	ModeKeepRawForModified

	// ModeKeepRefForModified shows ref text only; the output equals Diff.Ref.
	ModeKeepRefForModified
)

var modeNames = []string{"replace", "raw", "ref"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode parses the String form of a Mode ("replace", "raw", or "ref").
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q (want one of %s)", s, strings.Join(modeNames, ", "))
}

// Format renders d as display text plus one Char per rune of that text.
//
// Equal text between blocks is tagged KindEqual. A block's content depends on mode (see Mode). A block with nothing to show in the chosen mode (an insertion
// under ModeKeepRawForModified, or a deletion under ModeKeepRefForModified) emits no text; instead the character before it becomes KindGapLeft and the character
// after it becomes KindGapRight.
//
// Text after the last block is taken from Ref under ModeKeepRefForModified and from Raw otherwise, so ModeKeepRawForModified always returns exactly d.Raw, even while
// d is still streaming. Format panics if d.Blocks are invalid for d.Raw and d.Ref.
func Format(d Diff, mode Mode) (string, []Char) {
	if mode < ModeReplaceModifiedByAddedRemoved || mode > ModeKeepRefForModified {
		panic(fmt.Errorf("Format: invalid mode %d", int(mode)))
	}
	f := formatter{raw: []rune(d.Raw), ref: []rune(d.Ref), mode: mode, pendingGap: -1}
	if err := checkBlocks(d.Blocks, len(f.raw), len(f.ref)); err != nil {
		panic(fmt.Errorf("Format: %w", err))
	}

	rawPos, refPos := 0, 0
	for i, b := range d.Blocks {
		f.equal(rawPos, b.RawFrom, refPos)
		f.block(i, b)
		rawPos, refPos = b.RawTo, b.RefTo
	}
	f.trailing(rawPos, refPos)

	return f.out.String(), f.chars
}

type formatter struct {
	raw  []rune
	ref  []rune
	mode Mode

	out   strings.Builder
	chars []Char

	pendingGap int // block index whose gap still needs a KindGapRight, or -1
}

func (f *formatter) emit(r rune, c Char) {
	if f.pendingGap >= 0 {
		c.Kind = KindGapRight
		c.Block = f.pendingGap
		f.pendingGap = -1
	}
	f.out.WriteRune(r)
	f.chars = append(f.chars, c)
}

// gap marks a zero-width block on its neighbours. A character squeezed between two gaps keeps KindGapLeft, with Block naming the later gap.
func (f *formatter) gap(block int) {
	if n := len(f.chars); n > 0 {
		f.chars[n-1].Kind = KindGapLeft
		f.chars[n-1].Block = block
	}
	f.pendingGap = block
}

// equal emits raw[rawFrom:rawTo], which equals the ref text starting at refFrom.
func (f *formatter) equal(rawFrom, rawTo, refFrom int) {
	src, from := f.raw, rawFrom
	if f.mode == ModeKeepRefForModified {
		src, from = f.ref, refFrom
	}
	for k := 0; k < rawTo-rawFrom; k++ {
		f.emit(src[from+k], Char{Kind: KindEqual, Block: -1, RawPos: rawFrom + k, RefPos: refFrom + k})
	}
}

func (f *formatter) block(i int, b Block) {
	switch f.mode {
	case ModeReplaceModifiedByAddedRemoved:
		for k := b.RawFrom; k < b.RawTo; k++ {
			f.emit(f.raw[k], Char{Kind: KindRemoved, Block: i, RawPos: k, RefPos: b.RefFrom})
		}
		for k := b.RefFrom; k < b.RefTo; k++ {
			f.emit(f.ref[k], Char{Kind: KindAdded, Block: i, RawPos: b.RawTo, RefPos: k})
		}
	case ModeKeepRawForModified:
		if b.IsInsertion() {
			f.gap(i)
			return
		}
		kind := KindRemoved
		if b.IsModification() {
			kind = KindModified
		}
		for k := b.RawFrom; k < b.RawTo; k++ {
			f.emit(f.raw[k], Char{Kind: kind, Block: i, RawPos: k, RefPos: min(b.RefFrom+k-b.RawFrom, b.RefTo)})
		}
	case ModeKeepRefForModified:
		if b.IsDeletion() {
			f.gap(i)
			return
		}
		kind := KindAdded
		if b.IsModification() {
			kind = KindModified
		}
		for k := b.RefFrom; k < b.RefTo; k++ {
			f.emit(f.ref[k], Char{Kind: kind, Block: i, RawPos: min(b.RawFrom+k-b.RefFrom, b.RawTo), RefPos: k})
		}
	}
}

// trailing emits the text after the last block.
func (f *formatter) trailing(rawPos, refPos int) {
	if f.mode == ModeKeepRefForModified {
		for k := refPos; k < len(f.ref); k++ {
			f.emit(f.ref[k], Char{Kind: KindEqual, Block: -1, RawPos: min(rawPos+k-refPos, len(f.raw)), RefPos: k})
		}
		return
	}
	for k := rawPos; k < len(f.raw); k++ {
		f.emit(f.raw[k], Char{Kind: KindEqual, Block: -1, RawPos: k, RefPos: min(refPos+k-rawPos, len(f.ref))})
	}
}

// RefPosForRaw maps a raw offset to the ref offset of the first rendered character at or after it. chars must come from Format. ok is false if rawPos is past every
// character.
func RefPosForRaw(chars []Char, rawPos int) (refPos int, ok bool) {
	i := sort.Search(len(chars), func(i int) bool { return chars[i].RawPos >= rawPos })
	if i == len(chars) {
		return 0, false
	}
	return chars[i].RefPos, true
}

// RawPosForRef is the mirror of RefPosForRaw.
func RawPosForRef(chars []Char, refPos int) (rawPos int, ok bool) {
	i := sort.Search(len(chars), func(i int) bool { return chars[i].RefPos >= refPos })
	if i == len(chars) {
		return 0, false
	}
	return chars[i].RawPos, true
}
