package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/codalotl/livediff/internal/diff"
	"github.com/codalotl/livediff/internal/rewriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted sends a fixed list of updates, then returns err.
type scripted struct {
	updates []rewriter.Update
	err     error
}

func (s scripted) Stream(ctx context.Context, raw string, out chan<- rewriter.Update) error {
	for _, u := range s.updates {
		select {
		case out <- u:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

// blocking sends nothing and waits for cancellation.
type blocking struct{}

func (blocking) Stream(ctx context.Context, raw string, out chan<- rewriter.Update) error {
	<-ctx.Done()
	return ctx.Err()
}

func growing(text string) []rewriter.Update {
	rs := []rune(text)
	var out []rewriter.Update
	for i := 1; i <= len(rs); i++ {
		out = append(out, rewriter.Update{Text: string(rs[:i]), Finished: i == len(rs)})
	}
	return out
}

func run(t *testing.T, ctx context.Context, s *Session, src rewriter.Source) ([]Frame, error) {
	t.Helper()
	frames := make(chan Frame)
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx, src, frames) }()

	var got []Frame
	for f := range frames {
		got = append(got, f)
	}
	return got, <-errc
}

func TestRun_EveryUpdateWithoutDebounce(t *testing.T) {
	raw := "Ther is a typo."
	ref := "There is a typo."
	s := New(raw, Options{Mode: diff.ModeKeepRawForModified})

	frames, err := run(t, context.Background(), s, scripted{updates: growing(ref)})
	require.NoError(t, err)
	require.Len(t, frames, len(ref))

	for i, f := range frames {
		assert.Equal(t, i+1, f.Seq)
		assert.Equal(t, raw, f.Text, "raw view always shows raw")
		assert.Equal(t, i == len(frames)-1, f.Final())
	}

	last := frames[len(frames)-1]
	assert.Equal(t, []diff.Block{{RawFrom: 4, RawTo: 4, RefFrom: 4, RefTo: 5}}, last.Diff.Blocks)
	assert.Equal(t, diff.KindGapLeft, last.Chars[3].Kind)
	assert.Equal(t, diff.KindGapRight, last.Chars[4].Kind)
}

func TestRun_DebounceCoalesces(t *testing.T) {
	raw := "hello world"
	s := New(raw, Options{Mode: diff.ModeKeepRefForModified, Debounce: time.Hour})

	frames, err := run(t, context.Background(), s, scripted{updates: growing("hello there")})
	require.NoError(t, err)

	// Nothing becomes due within the debounce window, and the finished update is computed immediately.
	require.Len(t, frames, 1)
	assert.True(t, frames[0].Final())
	assert.Equal(t, "hello there", frames[0].Text)
	assert.Equal(t, diff.Extend(raw, "hello there", diff.Empty(), true), frames[0].Diff)
}

func TestRun_DebounceEmitsAfterQuiet(t *testing.T) {
	src := &pausing{first: "hel", second: "hello", pause: 50 * time.Millisecond}
	s := New("hello", Options{Mode: diff.ModeKeepRefForModified, Debounce: time.Millisecond})

	frames, err := run(t, context.Background(), s, src)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, "hel", frames[0].Text)
	assert.False(t, frames[0].Final())
	assert.Equal(t, "hello", frames[1].Text)
	assert.True(t, frames[1].Final())
}

// pausing sends first, waits, then sends second as the finished text.
type pausing struct {
	first, second string
	pause         time.Duration
}

func (p *pausing) Stream(ctx context.Context, raw string, out chan<- rewriter.Update) error {
	out <- rewriter.Update{Text: p.first}
	time.Sleep(p.pause)
	out <- rewriter.Update{Text: p.second, Finished: true}
	return nil
}

func TestRun_FlushesUnfinishedStream(t *testing.T) {
	var logs bytes.Buffer
	s := New("abc", Options{Debounce: time.Hour, Logger: slog.New(slog.NewTextHandler(&logs, nil))})

	frames, err := run(t, context.Background(), s, scripted{updates: []rewriter.Update{{Text: "a"}, {Text: "ab"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a finished update")
	assert.Contains(t, logs.String(), "without a finished update")

	// The pending update is still published before the error.
	require.Len(t, frames, 1)
	assert.Equal(t, "ab", frames[0].Diff.Ref)
	assert.False(t, frames[0].Final())
}

func TestRun_EmptySource(t *testing.T) {
	frames, err := run(t, context.Background(), New("abc", Options{}), scripted{})
	assert.Error(t, err)
	assert.Empty(t, frames)
}

func TestRun_LogsFinish(t *testing.T) {
	var logs bytes.Buffer
	s := New("Ther is a typo.", Options{Logger: slog.New(slog.NewTextHandler(&logs, nil))})

	_, err := run(t, context.Background(), s, scripted{updates: growing("There is a typo.")})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `msg="session: rewrite finished" frames=16 blocks=1 inserted=1 deleted=0`)
}

func TestRun_SourceError(t *testing.T) {
	boom := errors.New("boom")
	var logs bytes.Buffer
	s := New("abc", Options{Logger: slog.New(slog.NewTextHandler(&logs, nil))})

	_, err := run(t, context.Background(), s, scripted{updates: []rewriter.Update{{Text: "a"}}, err: boom})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, logs.String(), "rewrite stream failed")
	assert.NotContains(t, logs.String(), "without a finished update")
}

func TestRun_Cancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	frames, err := run(t, ctx, New("abc", Options{}), blocking{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, frames)
}

func TestRun_StripMarkdownAndCRLF(t *testing.T) {
	s := New("Some **bold** text.\r\n", Options{Mode: diff.ModeKeepRefForModified, StripMarkdown: true})
	assert.Equal(t, "Some bold text.", s.Raw())

	frames, err := run(t, context.Background(), s, scripted{updates: []rewriter.Update{{Text: "Some *bold* text!", Finished: true}}})
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, "Some bold text!", frames[0].Text)
	assert.Equal(t, diff.Stats{Blocks: 1, Inserted: 1, Deleted: 1}, frames[0].Diff.Stats())
}

func TestRun_Simulated(t *testing.T) {
	raw := "The meeting is scheduled for tomorow at 10am in the main confrence room."
	ref := "The meeting is scheduled for tomorrow at 10 am in the main conference room."
	s := New(raw, Options{Mode: diff.ModeKeepRawForModified})

	frames, err := run(t, context.Background(), s, rewriter.Simulated{Target: ref})
	require.NoError(t, err)
	require.NotEmpty(t, frames)

	for _, f := range frames {
		assert.Equal(t, raw, f.Text)
	}
	last := frames[len(frames)-1]
	assert.True(t, last.Final())
	assert.Equal(t, diff.Build(raw, ref, diff.DefaultBuildOptions), last.Diff.Blocks)
}
