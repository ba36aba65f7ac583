// Package chat provides the question-and-answer view for the TUI.
package chat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docsai/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docsai/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docsai/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docsai/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docsai/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docsai/internal/core/ports/driving"
)

// IngestCommand prefixes a line that ingests a PDF instead of asking.
const IngestCommand = "/ingest "

// Exchange is one turn of the transcript.
type Exchange struct {
	Question string
	Answer   string
	Err      error
	Pending  bool
}

// View renders the transcript above a question input and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	statusbar *status.Bar
	viewport  viewport.Model

	question driving.QuestionService
	ingest   driving.IngestService
	ctx      context.Context

	exchanges []Exchange
	answered  int
	width     int
	height    int
}

// NewView creates a chat view. ingest may be nil, which disables /ingest.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	question driving.QuestionService,
	ingest driving.IngestService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:    s,
		keymap:    km,
		input:     input.NewQuestionInput(s),
		statusbar: status.NewBar(s, km),
		viewport:  viewport.New(80, 18),
		question:  question,
		ingest:    ingest,
		ctx:       context.Background(),
	}
	v.SetDimensions(80, 24)
	return v
}

// WithContext sets the context passed to the services.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the input cursor.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// SetDimensions sizes the view to the terminal.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height

	// title, blank line, input box (3 rows) and status bar
	v.viewport.Width = width
	v.viewport.Height = max(3, height-6)
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// Update handles key presses and service results.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		k := msg.String()
		switch {
		case keymap.Matches(k, v.keymap.Submit):
			return v, v.submit()
		case keymap.Matches(k, v.keymap.Clear):
			v.exchanges = nil
			v.statusbar.SetMessage("")
			v.refresh()
			return v, nil
		case keymap.Matches(k, v.keymap.ScrollUp), keymap.Matches(k, v.keymap.ScrollDown):
			var cmd tea.Cmd
			v.viewport, cmd = v.viewport.Update(msg)
			return v, cmd
		}

	case tea.MouseMsg:
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd

	case messages.AnswerReceived:
		v.resolve(msg.Answer, msg.Err)
		if msg.Err == nil {
			v.answered++
			v.statusbar.SetAnswered(v.answered)
		}
		return v, nil

	case messages.IngestCompleted:
		answer := ""
		if msg.Err == nil {
			answer = fmt.Sprintf("Ingested %s: %d chunks.", filepath.Base(msg.Path), msg.Chunks)
			if msg.Chunks == 0 {
				answer = fmt.Sprintf("No text found in %s.", filepath.Base(msg.Path))
			}
		}
		v.resolve(answer, msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit starts a question or ingest in a command so the UI stays responsive.
// Blank input and input sent while a request is pending are ignored.
func (v *View) submit() tea.Cmd {
	line := strings.TrimSpace(v.input.Value())
	if line == "" || v.Pending() {
		return nil
	}
	v.input.Reset()
	v.statusbar.SetMessage("")
	v.exchanges = append(v.exchanges, Exchange{Question: line, Pending: true})

	var cmd tea.Cmd
	if path, ok := strings.CutPrefix(line, IngestCommand); ok && v.ingest != nil {
		v.statusbar.SetState(status.StateIngesting)
		cmd = v.ingestCmd(strings.TrimSpace(path))
	} else {
		v.statusbar.SetState(status.StateThinking)
		cmd = v.askCmd(line)
	}
	v.refresh()
	return cmd
}

func (v *View) askCmd(question string) tea.Cmd {
	ctx, svc := v.ctx, v.question
	return func() tea.Msg {
		answer, err := svc.Ask(ctx, question)
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

func (v *View) ingestCmd(path string) tea.Cmd {
	ctx, svc := v.ctx, v.ingest
	return func() tea.Msg {
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return messages.IngestCompleted{Path: path, Err: fmt.Errorf("only PDF supported: %s", path)}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return messages.IngestCompleted{Path: path, Err: err}
		}
		n, err := svc.Ingest(ctx, data, filepath.Base(path))
		return messages.IngestCompleted{Path: path, Chunks: n, Err: err}
	}
}

// resolve fills in the pending exchange.
func (v *View) resolve(answer string, err error) {
	if n := len(v.exchanges); n > 0 && v.exchanges[n-1].Pending {
		v.exchanges[n-1] = Exchange{
			Question: v.exchanges[n-1].Question,
			Answer:   answer,
			Err:      err,
		}
	}
	if err != nil {
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(err.Error())
	} else {
		v.statusbar.SetState(status.StateReady)
	}
	v.refresh()
}

func (v *View) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.exchanges) == 0 {
		return v.styles.Muted.Render("Ask a question about your ingested documents.")
	}

	wrap := lipgloss.NewStyle().Width(max(20, v.width-2))
	var b strings.Builder
	for i, ex := range v.exchanges {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(wrap.Render(v.styles.QuestionLabel.Render("You: ") + ex.Question))
		b.WriteString("\n")
		switch {
		case ex.Pending:
			b.WriteString(v.styles.Muted.Render("..."))
		case ex.Err != nil:
			b.WriteString(wrap.Render(v.styles.Error.Render("Error: " + ex.Err.Error())))
		default:
			b.WriteString(wrap.Render(v.styles.AnswerLabel.Render("docsai: ") + ex.Answer))
		}
	}
	return b.String()
}

// View renders the chat.
func (v *View) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render("docsai"),
		v.viewport.View(),
		v.input.View(),
		v.statusbar.View(),
	)
}

// Exchanges returns a copy of the transcript.
func (v *View) Exchanges() []Exchange {
	return append([]Exchange(nil), v.exchanges...)
}

// Pending reports whether a request is in flight.
func (v *View) Pending() bool {
	n := len(v.exchanges)
	return n > 0 && v.exchanges[n-1].Pending
}

// Input returns the current input text.
func (v *View) Input() string {
	return v.input.Value()
}

// Status returns the status bar state.
func (v *View) Status() status.State {
	return v.statusbar.State()
}
