package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/codalotl/livediff/internal/diff"
	"github.com/codalotl/livediff/internal/editdist"
	"github.com/codalotl/livediff/internal/normalize"
	qcli "github.com/codalotl/livediff/internal/q/cli"
	"github.com/codalotl/livediff/internal/rewriter"
	"github.com/codalotl/livediff/internal/session"
	"github.com/codalotl/livediff/internal/termview"
	"github.com/codalotl/livediff/internal/tui"
	"github.com/spf13/pflag"
)

// runTUI is swapped out by tests.
var runTUI = tui.Run

func newRootCommand(env *cmdEnv) *qcli.Command {
	root := &qcli.Command{
		Name:  "livediff",
		Short: "live character diffs of streaming rewrites",
		Long:  "Configuration is read from ~/.livediff/config.toml and the nearest .livediff/config.toml, then LIVEDIFF_MODE, LIVEDIFF_MODEL,\nOPENAI_API_KEY, and LIVEDIFF_OPENAI_BASE_URL, then flags. Run 'livediff config' to see the result.",
	}
	defaults := defaultConfig()

	diffCmd := &qcli.Command{
		Name:    "diff",
		Short:   "Show the settled character diff between two files.",
		Example: "livediff diff draft.md edited.md\ncat draft.md | livediff diff --mode raw - edited.md",
		Args:    qcli.ExactArgs(2),
		Run:     env.action(runDiff),
	}
	displayFlags(diffCmd.Flags(), defaults)

	streamCmd := &qcli.Command{
		Name:    "stream",
		Short:   "Stream a rewrite of a file and show the diff as it arrives.",
		Long:    "Takes RAW_FILE, plus REF_FILE with --simulate. Without --simulate the rewrite comes from the configured OpenAI model.",
		Example: "livediff stream notes.md\nlivediff stream --simulate --tui notes.md fixed.md",
		Args:    qcli.RangeArgs(1, 2),
		Run:     env.action(runStream),
	}
	fs := streamCmd.Flags()
	displayFlags(fs, defaults)
	fs.Bool("simulate", false, "replay REF_FILE token by token instead of calling the model")
	fs.Bool("tui", false, "show the stream in a full-screen view")
	fs.Duration("debounce", time.Duration(defaults.Debounce), "minimum interval between frames")
	fs.Duration("delay", time.Duration(defaults.Simulate.Delay), "pause between simulated tokens")
	fs.String("model", defaults.Model, "chat model used for the rewrite")

	matchCmd := &qcli.Command{
		Name:  "match",
		Short: "Find where the lines of NEEDLE_FILE best match inside HAYSTACK_FILE.",
		Args:  qcli.ExactArgs(2),
		Run:   env.action(runMatch),
	}
	fs = matchCmd.Flags()
	fs.Int("start", 0, "rune offset to start searching from")
	fs.Int("threshold", defaults.Match.ErrorThreshold, "edits always accepted")
	fs.Float64("ratio", defaults.Match.ErrorRatio, "accept distance*ratio <= needle length")

	root.AddCommand(
		diffCmd,
		streamCmd,
		matchCmd,
		&qcli.Command{
			Name:  "distance",
			Short: "Print the edit distance between two strings.",
			Args:  qcli.ExactArgs(2),
			Run:   env.action(runDistance),
		},
		&qcli.Command{
			Name:  "config",
			Short: "Print the effective configuration.",
			Args:  qcli.NoArgs,
			Run: env.action(func(c *qcli.Context, cfg Config) error {
				return writeConfigTOML(c.Out, cfg)
			}),
		},
		&qcli.Command{
			Name:  "version",
			Short: "Print the livediff version.",
			Args:  qcli.NoArgs,
			Run: env.action(func(c *qcli.Context, cfg Config) error {
				_, err := fmt.Fprintln(c.Out, Version)
				return err
			}),
		},
	)
	return root
}

func displayFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("mode", defaults.Mode, "how changed text is shown: replace, raw, or ref")
	fs.Int("width", defaults.Width, "wrap width when not writing to a terminal")
	fs.Bool("strip-markdown", defaults.StripMarkdown, "diff the plain text of markdown input")
	fs.Bool("no-color", false, "disable colors")
}

// readInput reads a file argument; "-" reads the command's input.
func readInput(c *qcli.Context, name string) (string, error) {
	if name == "-" {
		b, err := io.ReadAll(c.In)
		return string(b), err
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func viewOptions(c *qcli.Context, cfg Config) termview.Options {
	noColor, _ := c.Flags.GetBool("no-color")
	color, width := terminalInfo(c.Out)
	if width == 0 {
		width = cfg.Width
	}
	return termview.Options{Width: width, Color: color && !noColor}
}

// writeView writes a rendered view, ending it with a newline if it has none.
func writeView(w io.Writer, view string) {
	fmt.Fprint(w, view)
	if !strings.HasSuffix(view, "\n") {
		fmt.Fprintln(w)
	}
}

func runDiff(c *qcli.Context, cfg Config) error {
	mode, err := diff.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	raw, err := readInput(c, c.Args[0])
	if err != nil {
		return err
	}
	ref, err := readInput(c, c.Args[1])
	if err != nil {
		return err
	}

	raw = normalize.Text(raw, cfg.StripMarkdown)
	ref = normalize.Text(ref, cfg.StripMarkdown)
	d := diff.Extend(raw, ref, diff.Empty(), true)
	text, chars := diff.Format(d, mode)

	writeView(c.Out, termview.Render(text, chars, viewOptions(c, cfg)))
	st := d.Stats()
	fmt.Fprintf(c.Err, "%d blocks, +%d -%d\n", st.Blocks, st.Inserted, st.Deleted)
	return nil
}

func runStream(c *qcli.Context, cfg Config) error {
	simulate, _ := c.Flags.GetBool("simulate")
	useTUI, _ := c.Flags.GetBool("tui")
	wantArgs := 1
	if simulate {
		wantArgs = 2
	}
	if len(c.Args) != wantArgs {
		return qcli.UsageError{Message: "stream needs RAW_FILE, plus REF_FILE with --simulate"}
	}
	mode, err := diff.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	raw, err := readInput(c, c.Args[0])
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(c.Err, &slog.HandlerOptions{Level: slog.LevelWarn}))

	var src rewriter.Source
	if simulate {
		target, err := readInput(c, c.Args[1])
		if err != nil {
			return err
		}
		src = rewriter.Simulated{Target: target, Delay: time.Duration(cfg.Simulate.Delay)}
	} else {
		src, err = rewriter.NewOpenAI(rewriter.OpenAIOptions{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.Model,
			Prompt:  cfg.Prompt,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(c, os.Interrupt)
	defer stop()

	sess := session.New(raw, session.Options{
		Mode:          mode,
		Debounce:      time.Duration(cfg.Debounce),
		StripMarkdown: cfg.StripMarkdown,
		Logger:        logger,
	})

	if useTUI {
		return runTUI(ctx, sess, src, tui.Options{Title: filepath.Base(c.Args[0]), Mode: mode, Color: true})
	}
	return printFrames(ctx, c, sess, src, viewOptions(c, cfg))
}

// printFrames prints every frame of a session. On a terminal each frame replaces the previous one; otherwise frames are printed one after another under a header.
func printFrames(ctx context.Context, c *qcli.Context, sess *session.Session, src rewriter.Source, opts termview.Options) error {
	isTTY, _ := terminalInfo(c.Out)

	frames := make(chan session.Frame)
	errc := make(chan error, 1)
	go func() { errc <- sess.Run(ctx, src, frames) }()

	var last session.Frame
	for f := range frames {
		last = f
		view := termview.Render(f.Text, f.Chars, opts)
		if isTTY {
			fmt.Fprint(c.Out, "\x1b[H\x1b[2J")
		} else {
			fmt.Fprintf(c.Out, "# frame %d\n", f.Seq)
		}
		writeView(c.Out, view)
	}
	if err := <-errc; err != nil {
		return err
	}

	st := last.Diff.Stats()
	fmt.Fprintf(c.Err, "%d frames, %d blocks, +%d -%d\n", last.Seq, st.Blocks, st.Inserted, st.Deleted)
	return nil
}

func runMatch(c *qcli.Context, cfg Config) error {
	start, _ := c.Flags.GetInt("start")
	if start < 0 {
		return qcli.UsageError{Message: "--start must be >= 0"}
	}
	haystack, err := readInput(c, c.Args[0])
	if err != nil {
		return err
	}
	needle, err := readInput(c, c.Args[1])
	if err != nil {
		return err
	}

	m := session.Relocate(haystack, needle, start, session.MatchConfig{ErrorThreshold: cfg.Match.ErrorThreshold, ErrorRatio: cfg.Match.ErrorRatio})
	_, err = fmt.Fprintf(c.Out, "start=%d steps=%d\n", m.Start, m.Steps)
	return err
}

func runDistance(c *qcli.Context, cfg Config) error {
	r := editdist.Compute(c.Args[0], c.Args[1], nil)
	_, err := fmt.Fprintf(c.Out, "distance=%d steps=%d\n", r.Distance, r.Steps)
	return err
}
