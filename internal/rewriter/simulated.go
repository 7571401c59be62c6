package rewriter

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/codalotl/livediff/internal/q/health"
	"github.com/tiktoken-go/tokenizer"
)

// Simulated replays Target as if a model were generating it: the text grows one o200k token at a time, with Delay between updates. The raw text passed to Stream
// is ignored.
//
// A token can end inside a multi-byte character; such prefixes are held back until the character is complete, so every Update.Text is valid UTF-8.
type Simulated struct {
	Target string
	Delay  time.Duration
}

// Stream implements Source.
func (s Simulated) Stream(ctx context.Context, raw string, out chan<- Update) error {
	pieces, err := Tokens(s.Target)
	if err != nil {
		return err
	}

	var text []byte
	for _, p := range pieces {
		text = append(text, p...)
		if !utf8.Valid(text) {
			continue
		}
		if err := s.wait(ctx); err != nil {
			return err
		}
		if err := send(ctx, out, Update{Text: string(text)}); err != nil {
			return err
		}
	}
	return send(ctx, out, Update{Text: s.Target, Finished: true})
}

func (s Simulated) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tokens splits text into its o200k_base tokens. Concatenating the result yields text.
func Tokens(text string) ([]string, error) {
	enc, err := tokenizer.Get(tokenizer.O200kBase)
	if err != nil {
		return nil, health.Wrap("rewriter: load tokenizer", err, "encoding", string(tokenizer.O200kBase))
	}
	_, tokens, err := enc.Encode(text)
	if err != nil {
		return nil, health.Wrap("rewriter: tokenize", err, "bytes", len(text))
	}
	return tokens, nil
}
