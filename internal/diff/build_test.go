package diff

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedAligner returns canned blocks, to exercise the refinement passes independently of the default aligner.
type fixedAligner []Block

func (a fixedAligner) Align(raw, ref []rune) []Block {
	return append([]Block(nil), a...)
}

// stitch rebuilds raw and ref from blocks and the equal runs around them.
func stitch(raw, ref string, blocks []Block) (string, string) {
	r, f := []rune(raw), []rune(ref)
	var gotRaw, gotRef strings.Builder
	rawPos, refPos := 0, 0
	for _, b := range blocks {
		eq := string(r[rawPos:b.RawFrom])
		gotRaw.WriteString(eq)
		gotRef.WriteString(eq)
		gotRaw.WriteString(string(r[b.RawFrom:b.RawTo]))
		gotRef.WriteString(string(f[b.RefFrom:b.RefTo]))
		rawPos, refPos = b.RawTo, b.RefTo
	}
	gotRaw.WriteString(string(r[rawPos:]))
	gotRef.WriteString(string(f[refPos:]))
	return gotRaw.String(), gotRef.String()
}

func TestBuild_TypoScenario(t *testing.T) {
	raw := "Ther is a typo."
	ref := "There is a typo."

	blocks := Build(raw, ref, DefaultBuildOptions)

	require.Len(t, blocks, 1)
	assert.Equal(t, Block{RawFrom: 4, RawTo: 4, RefFrom: 4, RefTo: 5}, blocks[0])
	assert.True(t, blocks[0].IsInsertion())
}

func TestBuild_Blocks(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ref  string
		want []Block
	}{
		{
			name: "both empty",
			raw:  "",
			ref:  "",
			want: nil,
		},
		{
			name: "identical",
			raw:  "nothing changed here",
			ref:  "nothing changed here",
			want: nil,
		},
		{
			name: "everything added",
			raw:  "",
			ref:  "abc",
			want: []Block{{RawFrom: 0, RawTo: 0, RefFrom: 0, RefTo: 3}},
		},
		{
			name: "everything removed",
			raw:  "abc",
			ref:  "",
			want: []Block{{RawFrom: 0, RawTo: 3, RefFrom: 0, RefTo: 0}},
		},
		{
			name: "inserted word moves to a word end",
			raw:  "the cat",
			ref:  "the big cat",
			want: []Block{{RawFrom: 3, RawTo: 3, RefFrom: 3, RefTo: 7}},
		},
		{
			name: "deleted word moves to a word end",
			raw:  "the big cat",
			ref:  "the cat",
			want: []Block{{RawFrom: 3, RawTo: 7, RefFrom: 3, RefTo: 3}},
		},
		{
			name: "deleted space slides to word end",
			raw:  "a  b",
			ref:  "a b",
			want: []Block{{RawFrom: 1, RawTo: 2, RefFrom: 1, RefTo: 1}},
		},
		{
			name: "close edits in one word are joined",
			raw:  "abcdef",
			ref:  "xbcdyf",
			want: []Block{{RawFrom: 0, RawTo: 5, RefFrom: 0, RefTo: 5}},
		},
		{
			name: "edits separated by whitespace stay apart",
			raw:  "a cd",
			ref:  "x cy",
			want: []Block{{RawFrom: 0, RawTo: 1, RefFrom: 0, RefTo: 1}, {RawFrom: 3, RawTo: 4, RefFrom: 3, RefTo: 4}},
		},
		{
			name: "edits four apart stay apart",
			raw:  "abcdef",
			ref:  "xbcdey",
			want: []Block{{RawFrom: 0, RawTo: 1, RefFrom: 0, RefTo: 1}, {RawFrom: 5, RawTo: 6, RefFrom: 5, RefTo: 6}},
		},
		{
			name: "offsets are runes",
			raw:  "naïve café",
			ref:  "naive cafe",
			want: []Block{{RawFrom: 2, RawTo: 3, RefFrom: 2, RefTo: 3}, {RawFrom: 9, RawTo: 10, RefFrom: 9, RefTo: 10}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Build(tc.raw, tc.ref, DefaultBuildOptions)
			if len(tc.want) == 0 {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tc.want, got)
			}

			gotRaw, gotRef := stitch(tc.raw, tc.ref, got)
			assert.Equal(t, tc.raw, gotRaw)
			assert.Equal(t, tc.ref, gotRef)
		})
	}
}

func TestBuild_MergeUp(t *testing.T) {
	// Two one-rune insertions of "a" around an "a": the second can slide onto the first.
	opts := BuildOptions{Shift: true, Aligner: fixedAligner{
		{RawFrom: 0, RawTo: 0, RefFrom: 0, RefTo: 1},
		{RawFrom: 1, RawTo: 1, RefFrom: 2, RefTo: 3},
	}}

	got := Build("a", "aaa", opts)

	assert.Equal(t, []Block{{RawFrom: 0, RawTo: 0, RefFrom: 0, RefTo: 2}}, got)
}

func TestBuild_NoShiftKeepsAlignment(t *testing.T) {
	aligned := fixedAligner{{RawFrom: 4, RawTo: 4, RefFrom: 4, RefTo: 8}}

	got := Build("the cat", "the big cat", BuildOptions{Aligner: aligned})
	assert.Equal(t, []Block{{RawFrom: 4, RawTo: 4, RefFrom: 4, RefTo: 8}}, got)

	got = Build("the cat", "the big cat", BuildOptions{Shift: true, Aligner: aligned})
	assert.Equal(t, []Block{{RawFrom: 3, RawTo: 3, RefFrom: 3, RefTo: 7}}, got)
}

func TestBuild_FixCommon(t *testing.T) {
	opts := BuildOptions{FixCommon: true, Aligner: fixedAligner{{RawFrom: 0, RawTo: 4, RefFrom: 0, RefTo: 4}}}

	got := Build("abcd", "abxd", opts)
	assert.Equal(t, []Block{{RawFrom: 2, RawTo: 3, RefFrom: 2, RefTo: 3}}, got)

	// A block whose two sides are the same text disappears.
	opts.Aligner = fixedAligner{{RawFrom: 1, RawTo: 3, RefFrom: 1, RefTo: 3}}
	assert.Empty(t, Build("abcd", "abcd", opts))
}

func TestBuild_JoinsTouchingAlignerBlocks(t *testing.T) {
	opts := BuildOptions{Aligner: fixedAligner{
		{RawFrom: 0, RawTo: 1, RefFrom: 0, RefTo: 0},
		{RawFrom: 1, RawTo: 1, RefFrom: 0, RefTo: 1},
	}}

	got := Build("ab", "xb", opts)
	assert.Equal(t, []Block{{RawFrom: 0, RawTo: 1, RefFrom: 0, RefTo: 1}}, got)
}

func TestBuild_PanicsOnBadAligner(t *testing.T) {
	outOfRange := BuildOptions{Aligner: fixedAligner{{RawFrom: 0, RawTo: 9, RefFrom: 0, RefTo: 0}}}
	assert.Panics(t, func() { Build("abc", "abc", outOfRange) })

	wrongText := BuildOptions{Aligner: fixedAligner{{RawFrom: 0, RawTo: 1, RefFrom: 0, RefTo: 1}}}
	assert.Panics(t, func() { Build("abc", "xbz", wrongText) })
}

func TestBuild_RandomInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	words := []string{"a", "b", "ab", "ba", "the", "cat", " ", " ", "é", "x"}
	randText := func() string {
		var b strings.Builder
		for n := rng.Intn(10); n > 0; n-- {
			b.WriteString(words[rng.Intn(len(words))])
		}
		return b.String()
	}

	for i := 0; i < 400; i++ {
		raw, ref := randText(), randText()
		opts := BuildOptions{Shift: rng.Intn(2) == 0, JoinClose: rng.Intn(2) == 0, FixCommon: rng.Intn(2) == 0}

		blocks := Build(raw, ref, opts)

		require.NoError(t, validate([]rune(raw), []rune(ref), blocks), "raw=%q ref=%q opts=%+v", raw, ref, opts)
		gotRaw, gotRef := stitch(raw, ref, blocks)
		require.Equal(t, raw, gotRaw)
		require.Equal(t, ref, gotRef)
		require.Equal(t, blocks, Build(raw, ref, opts), "Build must be deterministic")
	}
}

func TestDiff_Stats(t *testing.T) {
	d := Diff{Blocks: []Block{
		{RawFrom: 0, RawTo: 2, RefFrom: 0, RefTo: 1},
		{RawFrom: 5, RawTo: 5, RefFrom: 4, RefTo: 7},
	}}
	assert.Equal(t, Stats{Blocks: 2, Inserted: 4, Deleted: 2}, d.Stats())

	assert.True(t, d.Blocks[0].IsModification())
	assert.True(t, d.Blocks[1].IsInsertion())
	assert.False(t, d.Blocks[1].IsDeletion())
	assert.Equal(t, "raw[0,2) ref[0,1)", d.Blocks[0].String())
}
