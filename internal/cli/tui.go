package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/restitch/restitch/pkg/observability"
)

// Messages emitted into the restore progress program.
type (
	fileStartMsg struct {
		relPath string
	}
	fileDoneMsg struct {
		relPath string
		cached  bool
		err     error
	}
	runDoneMsg struct{}
)

// RestoreProgressModel is the bubbletea model showing live restoration
// progress. The total file count is unknown until discovery finishes, so the
// view counts up instead of showing a bar.
type RestoreProgressModel struct {
	current   string
	completed int
	cached    int
	failed    []string
	done      bool
}

// NewRestoreProgressModel creates an empty progress model.
func NewRestoreProgressModel() RestoreProgressModel {
	return RestoreProgressModel{}
}

func (m RestoreProgressModel) Init() tea.Cmd {
	return nil
}

func (m RestoreProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case fileStartMsg:
		m.current = msg.relPath
	case fileDoneMsg:
		m.completed++
		if msg.cached {
			m.cached++
		}
		if msg.err != nil {
			m.failed = append(m.failed, msg.relPath)
		}
		m.current = ""
	case runDoneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m RestoreProgressModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(StyleTitle.Render("Restoring"))
	b.WriteString(" ")
	b.WriteString(StyleValue.Render(fmt.Sprintf("%d files", m.completed)))
	if m.cached > 0 {
		b.WriteString(StyleDim.Render(fmt.Sprintf(" (%d cached)", m.cached)))
	}
	b.WriteString("\n")
	if m.current != "" {
		b.WriteString("  " + StyleDim.Render(iconArrow) + " " + StyleDim.Render(m.current) + "\n")
	}
	for _, f := range m.failed {
		b.WriteString("  " + styleIconError.Render(iconError) + " " + StyleDim.Render(f) + "\n")
	}
	return b.String()
}

// teaRestoreHooks bridges restoration events into a running bubbletea
// program.
type teaRestoreHooks struct {
	observability.NoopRestoreHooks
	program *tea.Program
}

func (h teaRestoreHooks) OnRestoreStart(ctx context.Context, relPath string) {
	h.program.Send(fileStartMsg{relPath: relPath})
}

func (h teaRestoreHooks) OnRestoreComplete(ctx context.Context, relPath string, cached bool, d time.Duration, err error) {
	h.program.Send(fileDoneMsg{relPath: relPath, cached: cached, err: err})
}
