package editdist

// LimitFunc is consulted before a cell of the edit graph is admitted to the search. row and col are the number of runes consumed from the row and column strings,
// and distance is the edit distance the cell would be reached with. Returning true rejects the cell.
type LimitFunc func(row, col, distance int) bool

// Result is the outcome of Compute.
type Result struct {
	// Distance is the Levenshtein distance, or -1 if the search was cut off by the limit before reaching the end of both strings.
	Distance int

	// Steps counts memoized cells. It is deterministic for identical inputs, but otherwise only meaningful for diagnostics and performance tests.
	Steps int

	// LimitReached is true if the limit rejected at least one cell.
	LimitReached bool
}

type cell struct {
	row, col int
}

// Compute returns the Levenshtein distance between rowString and colString, measured in runes.
//
// The search processes edit-distance layers 0, 1, 2, ... in order. Each layer first slides every frontier cell diagonally through runs of matching runes, and then
// derives the next layer from insertion (row+1), deletion (col+1), and substitution (row+1, col+1) moves. Cells already visited are never revisited. If limit is
// non-nil, each candidate cell of the next layer is passed to it first; rejected cells are dropped, which may leave the target unreachable (Distance == -1).
//
// If either string is empty, the length of the other is returned without searching (Steps == 0).
func Compute(rowString, colString string, limit LimitFunc) Result {
	rows := []rune(rowString)
	cols := []rune(colString)
	if len(rows) == 0 || len(cols) == 0 {
		return Result{Distance: max(len(rows), len(cols))}
	}

	s := search{rows: rows, cols: cols, limit: limit, memo: make(map[cell]int)}
	return s.run()
}

// search holds the per-call state of Compute. It is never shared between calls.
type search struct {
	rows  []rune
	cols  []rune
	limit LimitFunc

	memo         map[cell]int
	limitReached bool
}

func (s *search) run() Result {
	target := cell{len(s.rows), len(s.cols)}

	frontier := []cell{{0, 0}}
	s.memo[cell{0, 0}] = 0

	for d := 0; len(frontier) > 0; d++ {
		ends := make([]cell, 0, len(frontier))
		for _, c := range frontier {
			end := s.slide(c, d)
			if end == target {
				return Result{Distance: d, Steps: len(s.memo), LimitReached: s.limitReached}
			}
			ends = append(ends, end)
		}

		var next []cell
		for _, c := range ends {
			if c.row < len(s.rows) {
				next = s.admit(next, cell{c.row + 1, c.col}, d+1)
			}
			if c.col < len(s.cols) {
				next = s.admit(next, cell{c.row, c.col + 1}, d+1)
			}
			if c.row < len(s.rows) && c.col < len(s.cols) {
				next = s.admit(next, cell{c.row + 1, c.col + 1}, d+1)
			}
		}
		frontier = next
	}

	return Result{Distance: -1, Steps: len(s.memo), LimitReached: s.limitReached}
}

// slide follows matching runes diagonally from c, memoizing each cell at distance d. It stops early at a cell that is already memoized, since that cell's own slide
// was (or will be) done at a distance no greater than d.
func (s *search) slide(c cell, d int) cell {
	for c.row < len(s.rows) && c.col < len(s.cols) && s.rows[c.row] == s.cols[c.col] {
		n := cell{c.row + 1, c.col + 1}
		if _, seen := s.memo[n]; seen {
			return n
		}
		s.memo[n] = d
		c = n
	}
	return c
}

func (s *search) admit(next []cell, c cell, d int) []cell {
	if _, seen := s.memo[c]; seen {
		return next
	}
	if s.limit != nil && s.limit(c.row, c.col, d) {
		s.limitReached = true
		return next
	}
	s.memo[c] = d
	return append(next, c)
}
