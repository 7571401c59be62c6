package diff

// Extend computes the next diff snapshot from prev and new input, where raw is the original text, ref is the rewritten text received so far, and finished reports
// whether ref is complete. Extend is a pure function: identical arguments always produce an identical Diff.
//
// Rules:
//   - ref == "" resets to Empty(); it marks the start of a new rewrite.
//   - If finished, prev.RefFinished, or ref is shorter than prev.Ref, the diff is settled: a full Build of raw against ref, with RefFinished set. The shrink case
//     is an explicit fallback; once settled, a diff stays settled until reset.
//   - Otherwise ref is still streaming. The rest of ref is predicted to match raw's tail from Prediction.RawStart, raw is diffed against that prediction, and only
//     blocks that end before the end of ref are kept. RawStart never moves backward, so blocks already shown are refined rather than retracted.
func Extend(raw, ref string, prev Diff, finished bool) Diff {
	if ref == "" {
		return Empty()
	}

	rawRunes, refRunes := []rune(raw), []rune(ref)
	prevRefLen := len([]rune(prev.Ref))
	if finished || prev.RefFinished || len(refRunes) < prevRefLen {
		return settle(raw, ref, rawRunes, refRunes)
	}

	// Anchor on the last previously predicted block that is entirely inside the part of ref that did not change.
	common := commonPrefixLen(refRunes, []rune(prev.Ref))
	rawTo, refTo := 0, 0
	for _, b := range prev.Prediction.Blocks {
		if b.RefTo >= common {
			break
		}
		rawTo, refTo = b.RawTo, b.RefTo
	}

	refStart := len(refRunes)
	rawStart := min(len(rawRunes), max(rawTo+(refStart-refTo), prev.Prediction.RawStart))

	extended := make([]rune, 0, refStart+len(rawRunes)-rawStart)
	extended = append(extended, refRunes...)
	extended = append(extended, rawRunes[rawStart:]...)

	predicted := buildRunes(rawRunes, extended, DefaultBuildOptions)
	var visible []Block
	for _, b := range predicted {
		if b.RefTo >= refStart {
			break
		}
		visible = append(visible, b)
	}

	return Diff{
		Raw:    raw,
		Ref:    ref,
		Blocks: visible,
		Prediction: Prediction{
			RefExtended: string(extended),
			RawStart:    rawStart,
			RefStart:    refStart,
			Blocks:      predicted,
		},
	}
}

func settle(raw, ref string, rawRunes, refRunes []rune) Diff {
	blocks := buildRunes(rawRunes, refRunes, DefaultBuildOptions)
	return Diff{
		Raw:    raw,
		Ref:    ref,
		Blocks: blocks,
		Prediction: Prediction{
			RefExtended: ref,
			RawStart:    len(rawRunes),
			RefStart:    len(refRunes),
			Blocks:      blocks,
		},
		RefFinished: true,
	}
}

func commonPrefixLen(a, b []rune) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
