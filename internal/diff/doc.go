// Package diff computes character-level change blocks between an original text ("raw") and a rewritten text ("ref"), renders them for display, and keeps the
// result stable while ref is still streaming in.
//
// Representation: a Block pairs a half-open rune range of raw with one of ref. Blocks are ordered, disjoint, and never touch; the text between them is equal on both
// sides. A Diff is an immutable snapshot holding raw, ref, the visible blocks, and the streaming Prediction state.
//
// Invariants (checked by validate; violations panic):
//   - For each block, RawFrom <= RawTo, RefFrom <= RefTo, and the block is not empty on both sides.
//   - Stitching the equal runs with each block's raw text reconstructs raw; likewise for ref.
//
// Getting blocks: Build aligns the two texts (DMPAligner by default) and then refines the blocks so they read well: blocks slide to word boundaries, blocks
// separated by a few non-space characters are joined, and common affixes left by joining are trimmed. Exact grouping is a policy of Build and may evolve; rely
// on the invariants above.
//
//	blocks := diff.Build(raw, ref, diff.DefaultBuildOptions)
//
// Streaming: Extend is the transition function for a rewrite arriving piece by piece. Thread each returned Diff into the next call:
//
//	d := diff.Empty()
//	for update := range updates {
//		d = diff.Extend(raw, update.Text, d, update.Finished)
//		text, chars := diff.Format(d, diff.ModeKeepRefForModified)
//		show(text, chars)
//	}
//
// Rendering: Format returns display text and one Char per rune of it. Each Char has a Kind and its position in both raw and ref, which lets a UI map scroll and
// selection offsets between the two texts (see RefPosForRaw and RawPosForRef).
//
// Units: all offsets are rune offsets. Nothing in this package performs I/O or keeps state between calls, so it is safe to call from any goroutine.
package diff
