package rewriter

import (
	"context"
	"log/slog"
	"strings"

	"github.com/codalotl/livediff/internal/q/health"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultPrompt is the system prompt used when OpenAIOptions.Prompt is empty.
const DefaultPrompt = "Rewrite the user's text to fix spelling, grammar, and awkward phrasing. Keep its meaning, language, tone, and line structure. " +
	"Reply with the rewritten text only."

// DefaultModel is used when OpenAIOptions.Model is empty.
const DefaultModel = "gpt-4.1-mini"

type OpenAIOptions struct {
	APIKey  string // required
	BaseURL string // optional; defaults to the OpenAI API
	Model   string
	Prompt  string
	Logger  *slog.Logger // optional
}

// OpenAI streams rewrites from a chat completion model.
type OpenAI struct {
	Client openai.Client
	Model  string
	Prompt string
	Logger *slog.Logger
}

// NewOpenAI returns a Source backed by the chat completions API. It returns a *health.HumanErr if no API key is configured.
func NewOpenAI(opts OpenAIOptions) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, health.NewHumanErr("No OpenAI API key. Set OPENAI_API_KEY or openai.api_key in config.toml.", "rewriter: missing openai api key")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	o := &OpenAI{
		Client: openai.NewClient(reqOpts...),
		Model:  opts.Model,
		Prompt: opts.Prompt,
		Logger: opts.Logger,
	}
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.Prompt == "" {
		o.Prompt = DefaultPrompt
	}
	return o, nil
}

// Stream implements Source.
func (o *OpenAI) Stream(ctx context.Context, raw string, out chan<- Update) error {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(o.Prompt),
			openai.UserMessage(raw),
		},
	}

	stream := o.Client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var text strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		text.WriteString(chunk.Choices[0].Delta.Content)
		if err := send(ctx, out, Update{Text: text.String()}); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return health.LogWrappedErr(o.Logger, "rewriter: openai stream", err, "model", o.Model, "received", text.Len())
	}

	return send(ctx, out, Update{Text: text.String(), Finished: true})
}
