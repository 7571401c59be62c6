package diff

import (
	"math/rand"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// prefixes returns every non-empty rune prefix of s, shortest first.
func prefixes(s string) []string {
	rs := []rune(s)
	out := make([]string, 0, len(rs))
	for i := 1; i <= len(rs); i++ {
		out = append(out, string(rs[:i]))
	}
	return out
}

// requireStreamingDiff checks what must hold for any snapshot produced while ref is still arriving.
func requireStreamingDiff(t *testing.T, d Diff) {
	t.Helper()
	raw, ref := []rune(d.Raw), []rune(d.Ref)

	require.NoError(t, checkBlocks(d.Blocks, len(raw), len(ref)))
	prevRaw, prevRef := 0, 0
	for _, b := range d.Blocks {
		require.Less(t, b.RefTo, len(ref), "block %v reaches the end of ref %q", b, d.Ref)
		require.True(t, slices.Equal(raw[prevRaw:b.RawFrom], ref[prevRef:b.RefFrom]), "text before %v differs", b)
		prevRaw, prevRef = b.RawTo, b.RefTo
	}

	require.Equal(t, len(ref), d.Prediction.RefStart)
	require.True(t, strings.HasPrefix(d.Prediction.RefExtended, d.Ref))
	require.NoError(t, validate(raw, []rune(d.Prediction.RefExtended), d.Prediction.Blocks))

	text, _ := Format(d, ModeKeepRawForModified)
	require.Equal(t, d.Raw, text)
	text, _ = Format(d, ModeKeepRefForModified)
	require.Equal(t, d.Ref, text)
}

// requireNoRetraction checks that every block shown in prev is still represented, possibly refined, by an overlapping block in next.
func requireNoRetraction(t *testing.T, prev, next Diff) {
	t.Helper()
	for _, b := range prev.Blocks {
		found := false
		for _, c := range next.Blocks {
			if c.RawFrom <= b.RawTo && b.RawFrom <= c.RawTo && c.RefFrom <= b.RefTo && b.RefFrom <= c.RefTo {
				found = true
				break
			}
		}
		require.True(t, found, "block %v shown at ref=%q is gone at ref=%q", b, prev.Ref, next.Ref)
	}
}

func TestExtend_EmptyRefResets(t *testing.T) {
	d := Extend("abc", "abx", Empty(), true)
	require.True(t, d.RefFinished)

	assert.Equal(t, Empty(), Extend("abc", "", d, false))
	assert.Equal(t, Empty(), Extend("abc", "", d, true))
}

func TestExtend_FinishedMatchesBuild(t *testing.T) {
	raw := "The quick brwn fox jumps over the lazy dog."
	ref := "The quick brown fox jumped over a lazy dog."

	d := Extend(raw, ref, Empty(), true)

	assert.True(t, d.RefFinished)
	assert.Equal(t, Build(raw, ref, DefaultBuildOptions), d.Blocks)
	assert.Equal(t, d.Blocks, d.Prediction.Blocks)
	assert.Equal(t, ref, d.Prediction.RefExtended)
	assert.Equal(t, utf8.RuneCountInString(raw), d.Prediction.RawStart)
	assert.Equal(t, utf8.RuneCountInString(ref), d.Prediction.RefStart)
}

func TestExtend_StreamingSubstitution(t *testing.T) {
	raw := "abcdefg"
	modified := Block{RawFrom: 1, RawTo: 2, RefFrom: 1, RefTo: 2}

	tests := []struct {
		ref          string
		wantRawStart int
		wantBlocks   []Block
	}{
		{ref: "a", wantRawStart: 1},
		{ref: "ax", wantRawStart: 2}, // "x" is the last char of ref so far, and could still be the start of anything
		{ref: "axc", wantRawStart: 3, wantBlocks: []Block{modified}},
		{ref: "axcd", wantRawStart: 4, wantBlocks: []Block{modified}},
		{ref: "axcde", wantRawStart: 5, wantBlocks: []Block{modified}},
		{ref: "axcdef", wantRawStart: 6, wantBlocks: []Block{modified}},
		{ref: "axcdefg", wantRawStart: 7, wantBlocks: []Block{modified}},
	}

	d := Empty()
	for _, tc := range tests {
		prev := d
		d = Extend(raw, tc.ref, d, false)
		requireStreamingDiff(t, d)
		requireNoRetraction(t, prev, d)
		assert.Equal(t, tc.wantRawStart, d.Prediction.RawStart, "ref=%q", tc.ref)
		assert.Equal(t, tc.wantBlocks, d.Blocks, "ref=%q", tc.ref)
		assert.False(t, d.RefFinished)
	}

	final := Extend(raw, "axcdefg", d, true)
	requireNoRetraction(t, d, final)
	assert.True(t, final.RefFinished)
	assert.Equal(t, []Block{modified}, final.Blocks)
}

func TestExtend_RawExhausted(t *testing.T) {
	// Once the prediction has consumed all of raw, nothing is predicted past the end of ref. A block that reaches the end of ref is hidden, even if an
	// earlier, shorter version of it was shown.
	raw := "short"

	d := Extend(raw, "a complet", Empty(), false)
	assert.Equal(t, 5, d.Prediction.RawStart)
	assert.Equal(t, "a complet", d.Prediction.RefExtended)
	assert.Equal(t, []Block{{RawFrom: 0, RawTo: 4, RefFrom: 0, RefTo: 8}}, d.Blocks)

	d = Extend(raw, "a complete", d, false)
	requireStreamingDiff(t, d)
	assert.Equal(t, 5, d.Prediction.RawStart)
	assert.Empty(t, d.Blocks)
	assert.Equal(t, Build(raw, "a complete", DefaultBuildOptions), d.Prediction.Blocks)

	text, chars := Format(d, ModeKeepRefForModified)
	assert.Equal(t, "a complete", text)
	for _, c := range chars {
		assert.Equal(t, KindEqual, c.Kind)
	}

	d = Extend(raw, "a complete", d, true)
	assert.NotEmpty(t, d.Blocks, "finishing shows the change again")
	assert.Equal(t, Build(raw, "a complete", DefaultBuildOptions), d.Blocks)
}

func TestExtend_StreamingInsertion(t *testing.T) {
	raw := "Ther is a typo."
	ref := "There is a typo."

	d := Empty()
	for _, p := range prefixes(ref) {
		prevStart := d.Prediction.RawStart
		d = Extend(raw, p, d, false)
		requireStreamingDiff(t, d)
		require.GreaterOrEqual(t, d.Prediction.RawStart, prevStart)
	}
	// Once the insertion is followed by a confirmed char, it shows.
	assert.Equal(t, []Block{{RawFrom: 4, RawTo: 4, RefFrom: 4, RefTo: 5}}, d.Blocks)

	d = Extend(raw, ref, d, true)
	assert.Equal(t, []Block{{RawFrom: 4, RawTo: 4, RefFrom: 4, RefTo: 5}}, d.Blocks)
}

func TestExtend_CharByCharStream(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	sentences := []struct{ raw, ref string }{
		{
			raw: "Teh meeting is scheduled for tomorow at 10am in the main confrence room.",
			ref: "The meeting is scheduled for tomorrow at 10 am in the main conference room.",
		},
		{
			raw: "It was a dark and stormy night; the rain fell in torrents.",
			ref: "It was a dark, stormy night, and rain fell in torrents.",
		},
		{
			raw: "Grüße aus München,\nund bis bald!",
			ref: "Viele Grüße aus München,\nbis bald!",
		},
		{
			raw: "short",
			ref: "a completely different and much longer sentence",
		},
	}

	for _, s := range sentences {
		d := Empty()
		rs := []rune(s.ref)
		for n := 1; n <= len(rs); {
			prevStart := d.Prediction.RawStart
			d = Extend(s.raw, string(rs[:n]), d, false)
			requireStreamingDiff(t, d)
			require.GreaterOrEqual(t, d.Prediction.RawStart, prevStart, "RawStart moved backward at %q", string(rs[:n]))
			require.LessOrEqual(t, d.Prediction.RawStart, utf8.RuneCountInString(s.raw))
			n += 1 + rng.Intn(3)
		}

		final := Extend(s.raw, s.ref, d, true)
		require.True(t, final.RefFinished)
		assert.Equal(t, Build(s.raw, s.ref, DefaultBuildOptions), final.Blocks)
	}
}

func TestExtend_ShrinkSettles(t *testing.T) {
	raw := "hello world"

	d := Extend(raw, "hello wor", Empty(), false)
	require.False(t, d.RefFinished)

	d = Extend(raw, "hello", d, false)
	assert.True(t, d.RefFinished, "a shorter ref settles the diff")
	assert.Equal(t, Build(raw, "hello", DefaultBuildOptions), d.Blocks)

	d = Extend(raw, "hello w", d, false)
	assert.True(t, d.RefFinished, "settled stays settled")
	assert.Equal(t, Build(raw, "hello w", DefaultBuildOptions), d.Blocks)

	d = Extend(raw, "", d, false)
	assert.False(t, d.RefFinished)

	d = Extend(raw, "h", d, false)
	assert.False(t, d.RefFinished, "a reset starts a new stream")
}

func TestExtend_Deterministic(t *testing.T) {
	raw := "one two three four"
	steps := prefixes("one 2 three fore")

	run := func() []Diff {
		var out []Diff
		d := Empty()
		for _, p := range steps {
			d = Extend(raw, p, d, false)
			out = append(out, d)
		}
		return append(out, Extend(raw, steps[len(steps)-1], d, true))
	}

	assert.Equal(t, run(), run())
}
