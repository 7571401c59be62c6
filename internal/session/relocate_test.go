package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelocate(t *testing.T) {
	haystack := "intro\nfunc main() {\n\tfmt.Println(\"hi\")\n}\noutro"

	tests := []struct {
		name     string
		haystack string
		chunk    string
		start    int
		want     int
	}{
		{name: "exact", haystack: haystack, chunk: "func main() {", start: 0, want: 6},
		{name: "edited", haystack: haystack, chunk: "func mian() {", start: 0, want: 6},
		{name: "multi-line", haystack: haystack, chunk: "\tfmt.Println(\"hi\")\n}", start: 0, want: 20},
		{name: "crlf chunk", haystack: haystack, chunk: "\tfmt.Println(\"hi\")\r\n}", start: 0, want: 20},
		{name: "negative start clamps", haystack: haystack, chunk: "intro", start: -5, want: 0},
		{name: "start past end clamps", haystack: haystack, chunk: "a closing line", start: 1000, want: -1},
		{name: "too different", haystack: haystack, chunk: "something else entirely", start: 0, want: -1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Relocate(tc.haystack, tc.chunk, tc.start, DefaultMatchConfig).Start)
		})
	}
}
