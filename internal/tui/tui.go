// Package tui shows a streaming diff live in the terminal. Frames computed by a session.Session are delivered to the bubbletea program with Program.Send, so all
// rendering happens on the program's own goroutine.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/codalotl/livediff/internal/diff"
	"github.com/codalotl/livediff/internal/rewriter"
	"github.com/codalotl/livediff/internal/session"
	"github.com/codalotl/livediff/internal/termview"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	modeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	deletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
)

// FrameMsg carries a new frame from the session.
type FrameMsg session.Frame

// DoneMsg reports that the session finished, with its error if any.
type DoneMsg struct {
	Err error
}

type Options struct {
	Title string
	Mode  diff.Mode
	Color bool
}

type Model struct {
	opts     Options
	mode     diff.Mode
	viewport viewport.Model
	spinner  spinner.Model
	ready    bool // a window size has been received

	frame    session.Frame
	hasFrame bool
	chars    []diff.Char // chars of the content in the viewport
	lines    []int       // index into chars where each viewport line starts
	done     bool
	err      error
}

func New(opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		opts:     opts,
		mode:     opts.Mode,
		viewport: viewport.New(80, 20),
		spinner:  s,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "m":
			m.switchMode((m.mode + 1) % 3)
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-2, 1) // title and status lines
		m.ready = true
		m.refresh()
		return m, nil

	case FrameMsg:
		m.frame = session.Frame(msg)
		m.hasFrame = true
		m.refresh()
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// refresh re-renders the current frame in the current mode into the viewport.
func (m *Model) refresh() {
	if !m.hasFrame {
		return
	}
	text, chars := m.frame.Text, m.frame.Chars
	if m.mode != m.opts.Mode {
		text, chars = diff.Format(m.frame.Diff, m.mode)
	}
	content, lines := termview.RenderLines(text, chars, termview.Options{Width: m.viewport.Width, Color: m.opts.Color})
	m.viewport.SetContent(content)
	m.chars, m.lines = chars, lines
}

// switchMode re-renders in mode, scrolling so the text at the top of the viewport stays at the top.
func (m *Model) switchMode(mode diff.Mode) {
	top := m.viewport.YOffset
	oldMode, oldChars := m.mode, m.chars
	anchor := -1
	if top < len(m.lines) && m.lines[top] < len(oldChars) {
		anchor = m.lines[top]
	}

	m.mode = mode
	m.refresh()
	if anchor < 0 {
		return
	}

	c := oldChars[anchor]
	pos := sidePos(c, oldMode)
	switch {
	case showsRef(oldMode) && !showsRef(mode):
		pos, _ = diff.RawPosForRef(oldChars, pos)
	case !showsRef(oldMode) && showsRef(mode):
		pos, _ = diff.RefPosForRaw(oldChars, pos)
	}

	idx := sort.Search(len(m.chars), func(i int) bool { return sidePos(m.chars[i], mode) >= pos })
	line := sort.Search(len(m.lines), func(i int) bool { return m.lines[i] > idx }) - 1
	m.viewport.SetYOffset(max(line, 0))
}

// showsRef reports whether mode renders ref's text for changed and equal spans.
func showsRef(mode diff.Mode) bool {
	return mode == diff.ModeKeepRefForModified
}

// sidePos is c's position in the text that mode scrolls through.
func sidePos(c diff.Char, mode diff.Mode) int {
	if showsRef(mode) {
		return c.RefPos
	}
	return c.RawPos
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.opts.Title))
	b.WriteString(" ")
	b.WriteString(modeStyle.Render("[" + m.mode.String() + "]"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	return b.String()
}

func (m Model) statusLine() string {
	var state string
	switch {
	case m.err != nil:
		state = errorStyle.Render("Error: " + m.err.Error())
	case m.done:
		state = "done"
	case m.hasFrame:
		state = m.spinner.View() + " streaming"
	default:
		state = m.spinner.View() + " waiting for rewrite"
	}

	st := m.frame.Diff.Stats()
	counts := fmt.Sprintf("%d blocks %s %s", st.Blocks, addedStyle.Render(fmt.Sprintf("+%d", st.Inserted)), deletedStyle.Render(fmt.Sprintf("-%d", st.Deleted)))
	return state + "  " + counts + "  " + faintStyle.Render("m: mode  q: quit")
}

// Err returns the session error reported by DoneMsg, if any.
func (m Model) Err() error {
	return m.err
}

// Run shows the diff of s against the rewrite streamed by src until the user quits. The session is canceled when the program exits. Run returns the session's
// error, ignoring cancellation caused by quitting.
func Run(ctx context.Context, s *session.Session, src rewriter.Source, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		frames := make(chan session.Frame)
		errc := make(chan error, 1)
		go func() { errc <- s.Run(ctx, src, frames) }()
		for f := range frames {
			p.Send(FrameMsg(f))
		}
		p.Send(DoneMsg{Err: <-errc})
	}()

	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if m, ok := final.(Model); ok && m.err != nil && !errors.Is(m.err, context.Canceled) {
		return m.err
	}
	return nil
}
