package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tabsync/tabsync/internal/backup"
)

// BackupAction represents the action to perform on a selected backup.
type BackupAction int

const (
	// ActionNone means no action was taken (user quit).
	ActionNone BackupAction = iota
	// ActionRestore means the user wants to restore the selected backup.
	ActionRestore
	// ActionVerify means the user wants to verify the selected backup.
	ActionVerify
	// ActionDelete means the user wants to delete the selected backup.
	ActionDelete
)

// BackupListResult contains the result of the backup browser interaction.
type BackupListResult struct {
	Action BackupAction
	Record backup.Record
}

type backupKeyMap struct {
	Restore key.Binding
	Verify  key.Binding
	Delete  key.Binding
	Quit    key.Binding
}

func defaultBackupKeyMap() backupKeyMap {
	return backupKeyMap{
		Restore: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restore")),
		Verify:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "verify")),
		Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// BackupListModel is the BubbleTea model for browsing backup records.
type BackupListModel struct {
	table   table.Model
	records []backup.Record
	keys    backupKeyMap
	result  BackupListResult
}

// NewBackupList creates a backup browser for the given records
// (expected newest first).
func NewBackupList(records []backup.Record) BackupListModel {
	columns := []table.Column{
		{Title: "ID", Width: 26},
		{Title: "Created", Width: 20},
		{Title: "Hash", Width: 14},
		{Title: "Size", Width: 8},
	}

	rows := make([]table.Row, len(records))
	for i, r := range records {
		rows[i] = table.Row{
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			shortHash(r.SourceHash),
			fmt.Sprintf("%dB", r.Size),
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows)+1, 15)),
	)

	return BackupListModel{
		table:   t,
		records: records,
		keys:    defaultBackupKeyMap(),
	}
}

// Result returns the action chosen by the user.
func (m BackupListModel) Result() BackupListResult {
	return m.result
}

// Init implements tea.Model.
func (m BackupListModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m BackupListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(keyMsg, m.keys.Restore):
			return m.choose(ActionRestore)
		case key.Matches(keyMsg, m.keys.Verify):
			return m.choose(ActionVerify)
		case key.Matches(keyMsg, m.keys.Delete):
			return m.choose(ActionDelete)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m BackupListModel) choose(action BackupAction) (tea.Model, tea.Cmd) {
	idx := m.table.Cursor()
	if idx >= 0 && idx < len(m.records) {
		m.result = BackupListResult{Action: action, Record: m.records[idx]}
	}
	return m, tea.Quit
}

// View implements tea.Model.
func (m BackupListModel) View() string {
	if len(m.records) == 0 {
		return Styles.Title.Render("Backups") + "\n\nno backups yet\n"
	}
	return Styles.Title.Render("Backups") + "\n\n" +
		m.table.View() + "\n" +
		Styles.Help.Render("r restore · v verify · d delete · q quit") + "\n"
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
