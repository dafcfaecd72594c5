// Copyright (c) 2026 The Concord Consortium.
// SPDX-License-Identifier: Apache-2.0

package picker

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// visibleRows is the number of matches rendered below the prompt.
const visibleRows = 10

var (
	// ErrCancelled is returned when the user quits the picker without choosing.
	ErrCancelled = errors.New("selection cancelled")

	// ErrNoItems is returned when there is nothing to choose from.
	ErrNoItems = errors.New("nothing to select")

	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff9900"))
	selectedStyle = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Faint(true)
)

// Interactive reports whether stdin is a terminal a picker can run on.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Select shows an autocomplete list of items and returns the chosen one.
// Typing narrows the list to items containing the input (case-insensitive),
// up/down moves the cursor, enter chooses and esc or ctrl+c cancels.
func Select(title string, items []string) (string, error) {
	if len(items) == 0 {
		return "", ErrNoItems
	}

	p := tea.NewProgram(newModel(title, items), tea.WithOutput(os.Stderr))
	m, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("picker failed: %w", err)
	}

	result := m.(model)
	if result.cancelled || result.choice == "" {
		return "", ErrCancelled
	}
	return result.choice, nil
}

type model struct {
	title     string
	input     textinput.Model
	items     []string
	matches   []string
	cursor    int
	choice    string
	cancelled bool
}

func newModel(title string, items []string) model {
	ti := textinput.New()
	ti.Placeholder = "type to filter"
	ti.Focus()
	ti.CharLimit = 256
	ti.Prompt = promptStyle.Render("> ")
	ti.Cursor.SetMode(cursor.CursorBlink)

	return model{
		title:   title,
		input:   ti,
		items:   items,
		matches: items,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.matches)-1 {
				m.cursor++
			}
			return m, nil
		case "enter":
			if len(m.matches) == 0 {
				return m, nil
			}
			m.choice = m.matches[m.cursor]
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.matches = match(m.items, m.input.Value())
	if m.cursor >= len(m.matches) {
		m.cursor = max(len(m.matches)-1, 0)
	}
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.title + "\n")
	b.WriteString(m.input.View() + "\n")

	// Scroll so the cursor is always visible.
	start := 0
	if m.cursor >= visibleRows {
		start = m.cursor - visibleRows + 1
	}
	end := min(start+visibleRows, len(m.matches))

	for i := start; i < end; i++ {
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> "+m.matches[i]) + "\n")
		} else {
			b.WriteString("  " + m.matches[i] + "\n")
		}
	}

	b.WriteString(dimStyle.Render(fmt.Sprintf("%d of %d  ENTER: select, ESC: quit", len(m.matches), len(m.items))))
	return b.String() + "\n"
}

// match returns the items containing filter, ignoring case.
func match(items []string, filter string) []string {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return items
	}

	var matches []string
	for _, item := range items {
		if strings.Contains(strings.ToLower(item), filter) {
			matches = append(matches, item)
		}
	}
	return matches
}
