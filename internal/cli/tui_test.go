package cli

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestRestoreProgressModel(t *testing.T) {
	var m tea.Model = NewRestoreProgressModel()

	m, _ = m.Update(fileStartMsg{relPath: "a.lua"})
	view := m.View()
	if !strings.Contains(view, "a.lua") {
		t.Errorf("view should show current file:\n%s", view)
	}

	m, _ = m.Update(fileDoneMsg{relPath: "a.lua", cached: true})
	m, _ = m.Update(fileDoneMsg{relPath: "b.lua"})
	view = m.View()
	if !strings.Contains(view, "2 files") {
		t.Errorf("view should show completed count:\n%s", view)
	}
	if !strings.Contains(view, "1 cached") {
		t.Errorf("view should show cached count:\n%s", view)
	}
}

func TestRestoreProgressModelFailures(t *testing.T) {
	var m tea.Model = NewRestoreProgressModel()

	m, _ = m.Update(fileDoneMsg{relPath: "broken.lua", err: errors.New("boom")})
	if !strings.Contains(m.View(), "broken.lua") {
		t.Error("view should list failed files")
	}
}

func TestRestoreProgressModelQuitsOnDone(t *testing.T) {
	var m tea.Model = NewRestoreProgressModel()

	m, cmd := m.Update(runDoneMsg{})
	if cmd == nil {
		t.Fatal("runDoneMsg should produce a quit command")
	}
	if m.View() != "" {
		t.Error("finished model should render nothing")
	}
}
