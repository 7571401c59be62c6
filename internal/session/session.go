// Package session drives the diff engine from a streaming rewrite. A Session reads cumulative updates from a rewriter.Source, coalesces and debounces them,
// threads each one through diff.Extend, and publishes the rendered result as a Frame.
//
// Work is split between two goroutines run under an errgroup: one runs the Source, the other owns the diff state and computes frames. Consumers only ever see
// immutable Frames on a channel.
package session

import (
	"context"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/codalotl/livediff/internal/diff"
	"github.com/codalotl/livediff/internal/normalize"
	"github.com/codalotl/livediff/internal/q/health"
	"github.com/codalotl/livediff/internal/rewriter"
	"github.com/codalotl/livediff/internal/simplelogger"
	"golang.org/x/sync/errgroup"
)

// DefaultDebounce is the minimum interval between two streaming frames.
const DefaultDebounce = 50 * time.Millisecond

type Options struct {
	Mode          diff.Mode
	Debounce      time.Duration // minimum interval between streaming frames; 0 computes a frame for every update
	StripMarkdown bool          // reduce raw and every update to plain text before diffing
	Logger        *slog.Logger  // optional
}

// Frame is one rendered snapshot of the diff.
type Frame struct {
	Diff  diff.Diff
	Text  string      // diff.Format output for Options.Mode
	Chars []diff.Char // one per rune of Text
	Seq   int         // 1 for the first frame of a Run, incremented per frame
}

// Final reports whether f is the last frame of its stream.
func (f Frame) Final() bool {
	return f.Diff.RefFinished
}

type Session struct {
	raw  string
	opts Options
	log  health.Ctx
}

// New returns a session that diffs rewrites of raw. raw is normalized the same way as the updates: line endings always, markdown if opts.StripMarkdown.
func New(raw string, opts Options) *Session {
	return &Session{
		raw:  normalize.Text(raw, opts.StripMarkdown),
		opts: opts,
		log:  health.NewCtx(opts.Logger),
	}
}

// Raw returns the normalized raw text that frames are diffed against.
func (s *Session) Raw() string {
	return s.raw
}

// Run streams one rewrite from src and sends a Frame to frames for each computed snapshot, closing frames before it returns.
//
// Updates that arrive faster than Options.Debounce are coalesced and only the latest is computed. The Finished update is always computed, so on success the last
// Frame has Final() set. Run returns when the rewrite is complete, when ctx is done, or when src fails. A src that returns without sending a Finished update is
// an error, after any pending update has been published.
func (s *Session) Run(ctx context.Context, src rewriter.Source, frames chan<- Frame) error {
	defer close(frames)

	updates := make(chan rewriter.Update)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// updates stays open on failure, so the worker stops on cancellation instead of flushing.
		if err := src.Stream(ctx, s.raw, updates); err != nil {
			return s.log.LogWrappedErr("session: rewrite stream failed", err)
		}
		close(updates)
		return nil
	})
	g.Go(func() error {
		return s.work(ctx, updates, frames)
	})
	return g.Wait()
}

// worker owns the diff state of one Run.
type worker struct {
	s        *Session
	frames   chan<- Frame
	prev     diff.Diff
	seq      int
	finished bool // a Finished update has been computed
}

func (s *Session) work(ctx context.Context, updates <-chan rewriter.Update, frames chan<- Frame) error {
	w := &worker{s: s, frames: frames, prev: diff.Empty()}

	var (
		pending *rewriter.Update
		timer   *time.Timer
		ready   <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case u, ok := <-updates:
			if !ok {
				if pending != nil {
					if err := w.compute(ctx, *pending); err != nil {
						return err
					}
				}
				if !w.finished {
					return s.log.LogNewErr("session: rewrite ended without a finished update", "frames", w.seq)
				}
				return nil
			}
			if pending != nil {
				simplelogger.Log("session: update of %d bytes superseded by %d bytes", len(pending.Text), len(u.Text))
			}
			if u.Finished || s.opts.Debounce <= 0 {
				pending, ready = nil, nil
				if err := w.compute(ctx, u); err != nil {
					return err
				}
				continue
			}
			pending = &u
			if ready == nil {
				if timer == nil {
					timer = time.NewTimer(s.opts.Debounce)
				} else {
					timer.Reset(s.opts.Debounce)
				}
				ready = timer.C
			}

		case <-ready:
			ready = nil
			u := *pending
			pending = nil
			if err := w.compute(ctx, u); err != nil {
				return err
			}
		}
	}
}

// compute extends the diff with u and publishes the resulting frame.
func (w *worker) compute(ctx context.Context, u rewriter.Update) error {
	start := time.Now()
	ref := normalize.Text(u.Text, w.s.opts.StripMarkdown)

	if !u.Finished && !w.prev.RefFinished && utf8.RuneCountInString(ref) < utf8.RuneCountInString(w.prev.Ref) {
		simplelogger.Log("session: ref shrank from %d to %d runes; settling early", utf8.RuneCountInString(w.prev.Ref), utf8.RuneCountInString(ref))
		w.s.log.Debug("session: ref shrank; diff settled before the stream finished", "seq", w.seq+1)
	}

	d := diff.Extend(w.s.raw, ref, w.prev, u.Finished)
	text, chars := diff.Format(d, w.s.opts.Mode)
	w.prev = d
	w.seq++
	w.finished = w.finished || u.Finished
	simplelogger.Since(start, "session: frame "+strconv.Itoa(w.seq))

	if u.Finished {
		st := d.Stats()
		w.s.log.Log("session: rewrite finished", "frames", w.seq, "blocks", st.Blocks, "inserted", st.Inserted, "deleted", st.Deleted)
	}

	f := Frame{Diff: d, Text: text, Chars: chars, Seq: w.seq}
	select {
	case w.frames <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
