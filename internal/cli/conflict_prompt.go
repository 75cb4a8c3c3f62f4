package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/tabsync/tabsync/internal/document"
	"github.com/tabsync/tabsync/internal/engine"
	"github.com/tabsync/tabsync/internal/ui"
	"github.com/tabsync/tabsync/internal/ui/tui"
)

// ConflictResolver handles interactive conflict resolution with users.
// When stdin is not a terminal it refuses, leaving the cycle pending so
// a non-interactive run never silently picks a side.
type ConflictResolver struct {
	reader *bufio.Reader
}

// NewConflictResolver creates a new interactive conflict resolver.
func NewConflictResolver() *ConflictResolver {
	return &ConflictResolver{
		reader: bufio.NewReader(os.Stdin),
	}
}

// Resolve prompts the user to pick a side of a true conflict.
func (cr *ConflictResolver) Resolve(_ context.Context, local, remote *document.Snapshot) (*document.Snapshot, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, engine.ErrManualDecisionRequired
	}

	if term.IsTerminal(int(os.Stdout.Fd())) && ui.IsColorEnabled() {
		if snap, err := cr.resolveWithPicker(local, remote); err == nil {
			return snap, nil
		}
		// Fall through to the plain prompt if the TUI could not start.
	}

	return cr.promptResolution(local, remote)
}

// resolveWithPicker runs the full-screen picker.
func (cr *ConflictResolver) resolveWithPicker(local, remote *document.Snapshot) (*document.Snapshot, error) {
	final, err := tui.Run(tui.NewConflictPicker(local, remote))
	if err != nil {
		return nil, err
	}

	model, ok := final.(tui.ConflictPickerModel)
	if !ok {
		return nil, fmt.Errorf("unexpected picker model %T", final)
	}

	switch model.Choice() {
	case tui.ChoiceLocal:
		return local, nil
	case tui.ChoiceRemote:
		return remote, nil
	default:
		return nil, engine.ErrManualDecisionRequired
	}
}

// promptResolution asks the user on a plain prompt.
func (cr *ConflictResolver) promptResolution(local, remote *document.Snapshot) (*document.Snapshot, error) {
	fmt.Printf("\n=== Sync Conflict ===\n")
	fmt.Printf("Both sides changed since the last sync.\n\n")
	fmt.Printf("  local:  %s  (captured %s)\n", shortHash(local.Hash), local.CapturedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  remote: %s  (captured %s)\n", shortHash(remote.Hash), remote.CapturedAt.Format("2006-01-02 15:04:05"))

	fmt.Println("\nHow would you like to resolve this conflict?")
	fmt.Println("  1. Keep local version (push it to the remote)")
	fmt.Println("  2. Use remote version (overwrite the local file)")
	fmt.Println("  3. Show local content")
	fmt.Println("  4. Show remote content")
	fmt.Println("  5. Abort")
	fmt.Print("\nEnter choice [1-5]: ")

	for {
		response, err := cr.reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}

		response = strings.TrimSpace(response)
		choice, err := strconv.Atoi(response)
		if err != nil || choice < 1 || choice > 5 {
			fmt.Print("Invalid choice. Enter 1-5: ")
			continue
		}

		switch choice {
		case 1:
			return local, nil
		case 2:
			return remote, nil
		case 3:
			cr.showFullContent("LOCAL", local.Canonical)
			fmt.Print("\nEnter choice [1-5]: ")
		case 4:
			cr.showFullContent("REMOTE", remote.Canonical)
			fmt.Print("\nEnter choice [1-5]: ")
		case 5:
			return nil, engine.ErrManualDecisionRequired
		}
	}
}

// showFullContent displays the full content of one side.
func (cr *ConflictResolver) showFullContent(label string, content []byte) {
	fmt.Printf("\n=== %s CONTENT ===\n", label)
	fmt.Println(strings.Repeat("-", 50))

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		fmt.Printf("%4d | %s\n", i+1, line)
	}

	fmt.Println(strings.Repeat("-", 50))
}

// shortHash abbreviates a content hash for display.
func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
