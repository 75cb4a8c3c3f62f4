package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tabsync/tabsync/internal/document"
)

// ConflictChoice is the side picked to resolve a true conflict.
type ConflictChoice int

const (
	// ChoiceNone means the user quit without deciding.
	ChoiceNone ConflictChoice = iota
	// ChoiceLocal keeps the local configuration.
	ChoiceLocal
	// ChoiceRemote adopts the remote configuration.
	ChoiceRemote
)

type conflictKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Quit   key.Binding
}

// ConflictPickerModel presents both sides of a conflict and records the
// user's choice.
type ConflictPickerModel struct {
	local  *document.Snapshot
	remote *document.Snapshot
	cursor int
	keys   conflictKeyMap
	choice ConflictChoice
}

// NewConflictPicker builds the picker for a local/remote pair.
func NewConflictPicker(local, remote *document.Snapshot) ConflictPickerModel {
	return ConflictPickerModel{
		local:  local,
		remote: remote,
		keys: conflictKeyMap{
			Up:     key.NewBinding(key.WithKeys("up", "k")),
			Down:   key.NewBinding(key.WithKeys("down", "j")),
			Select: key.NewBinding(key.WithKeys("enter")),
			Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c")),
		},
	}
}

// Choice returns the user's decision.
func (m ConflictPickerModel) Choice() ConflictChoice {
	return m.choice
}

// Init implements tea.Model.
func (m ConflictPickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ConflictPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		m.choice = ChoiceNone
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < 1 {
			m.cursor++
		}
	case key.Matches(keyMsg, m.keys.Select):
		if m.cursor == 0 {
			m.choice = ChoiceLocal
		} else {
			m.choice = ChoiceRemote
		}
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m ConflictPickerModel) View() string {
	var sb strings.Builder

	sb.WriteString(Styles.Title.Render("Sync conflict"))
	sb.WriteString("\n\nBoth sides changed since the last sync.\n\n")

	options := []string{
		fmt.Sprintf("keep local  (%s, %d keys, captured %s)",
			shortHash(m.local.Hash), len(m.local.Doc), m.local.CapturedAt.Format("2006-01-02 15:04")),
		fmt.Sprintf("use remote  (%s, %d keys, captured %s)",
			shortHash(m.remote.Hash), len(m.remote.Doc), m.remote.CapturedAt.Format("2006-01-02 15:04")),
	}

	for i, opt := range options {
		if i == m.cursor {
			sb.WriteString(Styles.Selected.Render("> " + opt))
		} else {
			sb.WriteString("  " + opt)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(Styles.Help.Render("↑/↓ move · enter select · q abort"))
	sb.WriteString("\n")

	return sb.String()
}
