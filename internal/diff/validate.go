package diff

import (
	"fmt"
	"slices"
)

// checkBlocks checks the structural invariants of blocks against texts of rawLen and refLen runes, and returns an error on the first violation.
func checkBlocks(blocks []Block, rawLen, refLen int) error {
	prevRaw, prevRef := 0, 0
	for i, b := range blocks {
		if b.RawFrom > b.RawTo || b.RefFrom > b.RefTo {
			return fmt.Errorf("block[%d] %v: inverted range", i, b)
		}
		if b.RawFrom == b.RawTo && b.RefFrom == b.RefTo {
			return fmt.Errorf("block[%d] %v: empty block", i, b)
		}
		if b.RawTo > rawLen || b.RefTo > refLen {
			return fmt.Errorf("block[%d] %v: out of range (raw=%d ref=%d)", i, b, rawLen, refLen)
		}
		if i > 0 && (b.RawFrom <= prevRaw || b.RefFrom <= prevRef) {
			return fmt.Errorf("block[%d] %v: overlaps or touches previous block", i, b)
		}
		if b.RawFrom < prevRaw || b.RefFrom < prevRef {
			return fmt.Errorf("block[%d] %v: out of order", i, b)
		}
		if b.RawFrom-prevRaw != b.RefFrom-prevRef {
			return fmt.Errorf("block[%d] %v: equal runs before it differ in length", i, b)
		}
		prevRaw, prevRef = b.RawTo, b.RefTo
	}
	return nil
}

// validate checks that blocks fully describe raw -> ref: they satisfy checkBlocks, and all text outside of them is equal on both sides.
func validate(raw, ref []rune, blocks []Block) error {
	if err := checkBlocks(blocks, len(raw), len(ref)); err != nil {
		return err
	}
	prevRaw, prevRef := 0, 0
	for i, b := range blocks {
		if !slices.Equal(raw[prevRaw:b.RawFrom], ref[prevRef:b.RefFrom]) {
			return fmt.Errorf("block[%d] %v: text before block differs", i, b)
		}
		prevRaw, prevRef = b.RawTo, b.RefTo
	}
	if !slices.Equal(raw[prevRaw:], ref[prevRef:]) {
		return fmt.Errorf("text after last block differs")
	}
	return nil
}
