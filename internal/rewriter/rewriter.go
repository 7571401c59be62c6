// Package rewriter produces rewritten versions of a text as a stream of cumulative updates. OpenAI asks a chat model for the rewrite; Simulated replays a known
// rewrite token by token.
package rewriter

import "context"

// Update is the rewrite received so far.
type Update struct {
	Text     string // cumulative text, not a delta
	Finished bool   // the rewrite is complete; no further updates follow
}

// Source streams a rewrite of raw into out.
//
// Stream sends cumulative updates, the last of which has Finished set. It returns when the rewrite is complete, when ctx is done (returning ctx.Err()), or on
// failure. Stream never closes out.
type Source interface {
	Stream(ctx context.Context, raw string, out chan<- Update) error
}

func send(ctx context.Context, out chan<- Update, u Update) error {
	select {
	case out <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
