package diff

import "fmt"

// Block is one contiguous change: raw[RawFrom:RawTo] was replaced by ref[RefFrom:RefTo]. Offsets are rune offsets.
//
// Invariants:
//   - RawFrom <= RawTo and RefFrom <= RefTo.
//   - A block is never empty on both sides.
//   - Blocks in a list are ordered and non-overlapping in both coordinate spaces, and never touch (touching blocks are one block).
type Block struct {
	RawFrom int
	RawTo   int
	RefFrom int
	RefTo   int
}

// IsInsertion reports whether b adds text without removing any.
func (b Block) IsInsertion() bool {
	return b.RawFrom == b.RawTo && b.RefFrom < b.RefTo
}

// IsDeletion reports whether b removes text without adding any.
func (b Block) IsDeletion() bool {
	return b.RawFrom < b.RawTo && b.RefFrom == b.RefTo
}

// IsModification reports whether b replaces text on both sides.
func (b Block) IsModification() bool {
	return b.RawFrom < b.RawTo && b.RefFrom < b.RefTo
}

func (b Block) String() string {
	return fmt.Sprintf("raw[%d,%d) ref[%d,%d)", b.RawFrom, b.RawTo, b.RefFrom, b.RefTo)
}

// Kind tags one rendered character.
type Kind int

// Kinds of rendered characters.
const (
	KindEqual    Kind = iota
	KindAdded         // present only in ref
	KindModified      // part of a block that has content on both sides
	KindRemoved       // present only in raw
	KindGapLeft       // the character just before a zero-width block; wins over KindGapRight when both apply
	KindGapRight      // the character just after a zero-width block
)

func (k Kind) String() string {
	switch k {
	case KindEqual:
		return "equal"
	case KindAdded:
		return "added"
	case KindModified:
		return "modified"
	case KindRemoved:
		return "removed"
	case KindGapLeft:
		return "gap-left"
	case KindGapRight:
		return "gap-right"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Char describes one rendered character (rune) of Format's output. It locates the character in both raw and ref, so a scroll or selection position can be mapped
// from one text view to the other.
type Char struct {
	Kind   Kind
	Block  int // index into Diff.Blocks, or -1 for plain equal text
	RawPos int
	RefPos int
}

// Prediction is the streaming state threaded from one Extend call to the next.
//
// While ref is still arriving, Extend diffs raw against RefExtended: the ref received so far followed by raw's tail from RawStart, i.e. a guess that the rest of
// ref will match raw. RefStart always equals the rune length of the Diff's Ref. Blocks are the blocks of that predicted diff, unfiltered.
type Prediction struct {
	RefExtended string
	RawStart    int
	RefStart    int
	Blocks      []Block
}

// Diff is an immutable snapshot of the divergence between Raw (the original text) and Ref (the rewritten text, possibly still arriving).
//
// Blocks only covers content that is confirmed. Callers must not mutate a Diff (including its slices) after it has been returned; pass it to the next Extend call
// as-is.
type Diff struct {
	Raw         string
	Ref         string
	Blocks      []Block
	Prediction  Prediction
	RefFinished bool
}

// Empty returns the initial diff, used before any rewritten text has arrived.
func Empty() Diff {
	return Diff{}
}

// Stats summarizes a diff.
type Stats struct {
	Blocks   int
	Inserted int // runes only in Ref
	Deleted  int // runes only in Raw
}

// Stats counts d's blocks and the runes they insert and delete.
func (d Diff) Stats() Stats {
	s := Stats{Blocks: len(d.Blocks)}
	for _, b := range d.Blocks {
		s.Inserted += b.RefTo - b.RefFrom
		s.Deleted += b.RawTo - b.RawFrom
	}
	return s
}
