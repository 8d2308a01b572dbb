package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// menuItem represents a single configurable option in the TUI.
type menuItem struct {
	label    string
	value    string
	options  []menuOption
	required bool
	editing  bool
	cursor   int // cursor within options when editing
}

type menuOption struct {
	label string
	value string
}

// menuState tracks which phase the TUI is in.
type menuState int

const (
	stateMenu menuState = iota
	stateEditing
)

// tuiModel is the Bubble Tea model for the interactive menu.
type tuiModel struct {
	items     []menuItem
	cursor    int
	state     menuState
	width     int
	err       error
	confirmed bool
	cancelled bool
}

// style constants
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	menuLabelStyle = lipgloss.NewStyle().
			Width(18).
			Align(lipgloss.Right).
			MarginRight(2)

	menuValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	menuValueDimStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#555555")).
				Italic(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	requiredStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	optionStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	selectedOptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#04B575")).
				Bold(true).
				PaddingLeft(2)

	buttonStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 3)

	buttonDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Padding(0, 3)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	headerBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#7D56F4")).
			MarginBottom(1).
			PaddingBottom(0)
)

// menu item indices
const (
	idxService  = 0
	idxTitle    = 1
	idxGender   = 2
	idxAgeStart = 3
	idxAgeEnd   = 4
	idxCount    = 5
	idxBackend  = 6
	idxPolicy   = 7
	idxOutput   = 8
	// idxRun = last item
)

// parseInt reads a decimal value, returning 0 for anything unparseable.
func parseInt(s string) int {
	var n int
	fmt.Sscanf(s, "%d", &n)
	return n
}

func decadeOptions() []menuOption {
	opts := make([]menuOption, 0, 10)
	for d := 10; d <= 100; d += 10 {
		opts = append(opts, menuOption{
			label: fmt.Sprintf("%ds", d),
			value: fmt.Sprintf("%d", d),
		})
	}
	return opts
}

func countOptions() []menuOption {
	opts := make([]menuOption, 0, 10)
	for c := 1; c <= 10; c++ {
		label := fmt.Sprintf("%d personas", c)
		if c == 1 {
			label = "1 persona"
		}
		opts = append(opts, menuOption{label: label, value: fmt.Sprintf("%d", c)})
	}
	return opts
}

func buildMenuItems() []menuItem {
	backendVal := flagBackend
	if backendVal == "" {
		backendVal = "gemini"
	}
	if flagLocal {
		backendVal = "ollama"
	}

	items := []menuItem{
		{
			label:    "Service File",
			value:    flagService,
			required: true,
		},
		{
			label: "Title",
			value: flagTitle,
		},
		{
			label: "Gender",
			value: flagGender,
			options: []menuOption{
				{label: "Either (no constraint) (default)", value: "either"},
				{label: "Male", value: "male"},
				{label: "Female", value: "female"},
				{label: "Other", value: "other"},
			},
		},
		{
			label:   "Age From",
			value:   fmt.Sprintf("%d", flagAgeStart),
			options: decadeOptions(),
		},
		{
			label:   "Age To",
			value:   fmt.Sprintf("%d", flagAgeEnd),
			options: decadeOptions(),
		},
		{
			label:   "Personas",
			value:   fmt.Sprintf("%d", flagCount),
			options: countOptions(),
		},
		{
			label: "Backend",
			value: backendVal,
			options: []menuOption{
				{label: "Gemini (hosted, fast) (default)", value: "gemini"},
				{label: "Claude (hosted)", value: "claude"},
				{label: "Nova (hosted, Bedrock)", value: "nova"},
				{label: "Ollama (local, no API key)", value: "ollama"},
			},
		},
		{
			label: "On Failure",
			value: flagPolicy,
			options: []menuOption{
				{label: "Abort the run (default)", value: "abort"},
				{label: "Skip the persona, continue", value: "skip"},
			},
		},
		{
			label: "Output CSV",
			value: flagOutput,
		},
	}

	// Run button at the end
	items = append(items, menuItem{
		label: ">>> Run <<<",
	})

	// Pre-select cursor position for options
	for i := range items {
		if len(items[i].options) > 0 {
			for j, opt := range items[i].options {
				if opt.value == items[i].value {
					items[i].cursor = j
					break
				}
			}
		}
	}

	return items
}

func initialTUIModel() tuiModel {
	return tuiModel{
		items:  buildMenuItems(),
		cursor: idxService,
		state:  stateMenu,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) runIdx() int {
	return len(m.items) - 1
}

func (m tuiModel) isTextInput(idx int) bool {
	return idx == idxService || idx == idxTitle || idx == idxOutput
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateMenu:
			return m.updateMenu(msg)
		case stateEditing:
			return m.updateEditing(msg)
		}
	}
	return m, nil
}

func (m tuiModel) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.cancelled = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case "enter", " ":
		if m.cursor == m.runIdx() {
			// Validate required fields
			if m.items[idxService].value == "" {
				m.err = fmt.Errorf("Service File is required")
				return m, nil
			}
			if parseInt(m.items[idxAgeStart].value) > parseInt(m.items[idxAgeEnd].value) {
				m.err = fmt.Errorf("Age From must not exceed Age To")
				return m, nil
			}
			m.confirmed = true
			return m, tea.Quit
		}

		// Text fields open an inline editor, the rest an option selector
		if m.isTextInput(m.cursor) || len(m.items[m.cursor].options) > 0 {
			m.state = stateEditing
			m.items[m.cursor].editing = true
			m.err = nil
			return m, nil
		}
	}
	return m, nil
}

func (m tuiModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	idx := m.cursor
	item := &m.items[idx]

	// Text input
	if m.isTextInput(idx) {
		switch msg.String() {
		case "enter":
			item.editing = false
			m.state = stateMenu
			// Auto-advance to next item
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
			return m, nil
		case "esc":
			item.editing = false
			m.state = stateMenu
			return m, nil
		case "backspace":
			if len(item.value) > 0 {
				item.value = item.value[:len(item.value)-1]
			}
			return m, nil
		case "ctrl+u":
			item.value = ""
			return m, nil
		default:
			// Accept typed characters and pasted text
			if msg.Type == tea.KeyRunes {
				item.value += string(msg.Runes)
			}
			return m, nil
		}
	}

	// Option selector
	switch msg.String() {
	case "enter", " ":
		if item.cursor >= 0 && item.cursor < len(item.options) {
			item.value = item.options[item.cursor].value
		}
		item.editing = false
		m.state = stateMenu

		// Auto-advance
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
		return m, nil

	case "esc":
		item.editing = false
		m.state = stateMenu
		return m, nil

	case "up", "k":
		if item.cursor > 0 {
			item.cursor--
		}

	case "down", "j":
		if item.cursor < len(item.options)-1 {
			item.cursor++
		}
	}
	return m, nil
}

func (m tuiModel) View() string {
	var b strings.Builder

	// Title
	title := titleStyle.Render("Personasim")
	header := headerBorder.Render(title)
	b.WriteString(header)
	b.WriteString("\n")

	runIdx := m.runIdx()

	for i, item := range m.items {
		isActive := m.cursor == i

		// Run button
		if i == runIdx {
			b.WriteString("\n")
			if isActive {
				b.WriteString("  " + buttonStyle.Render(" Run "))
			} else {
				b.WriteString("  " + buttonDimStyle.Render(" Run "))
			}
			b.WriteString("\n")
			continue
		}

		// Cursor indicator
		cursor := "  "
		if isActive {
			cursor = cursorStyle.Render("> ")
		}

		// Label
		label := item.label
		if item.required {
			label = label + requiredStyle.Render("*")
		}
		renderedLabel := menuLabelStyle.Render(label)

		// Value display
		var renderedValue string
		if item.editing && m.isTextInput(i) {
			renderedValue = menuValueStyle.Render(item.value + "_")
		} else if item.value == "" {
			placeholder := "(not set)"
			switch i {
			case idxTitle:
				placeholder = "(optional — taken from the service file)"
			case idxOutput:
				placeholder = "(optional — print to terminal only)"
			}
			renderedValue = menuValueDimStyle.Render(placeholder)
		} else {
			displayVal := item.value
			// Show friendly label for option-based items
			for _, opt := range item.options {
				if opt.value == item.value {
					displayVal = opt.label
					break
				}
			}
			renderedValue = menuValueStyle.Render(displayVal)
		}

		b.WriteString(cursor + renderedLabel + " " + renderedValue + "\n")

		// Show expanded options when editing
		if item.editing && len(item.options) > 0 && !m.isTextInput(i) {
			for j, opt := range item.options {
				if j == item.cursor {
					b.WriteString(selectedOptionStyle.Render("> "+opt.label) + "\n")
				} else {
					b.WriteString(optionStyle.Render("  "+opt.label) + "\n")
				}
			}
		}
	}

	// Error message
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("  Error: "+m.err.Error()) + "\n")
	}

	// Help text
	switch m.state {
	case stateMenu:
		b.WriteString(helpStyle.Render("  j/k or arrows to navigate | enter to edit | q to quit"))
	case stateEditing:
		if m.isTextInput(m.cursor) {
			b.WriteString(helpStyle.Render("  type value | enter to confirm | esc to cancel | ctrl+u to clear"))
		} else {
			b.WriteString(helpStyle.Render("  j/k or arrows to pick | enter to select | esc to cancel"))
		}
	}
	b.WriteString("\n")

	return b.String()
}

func runInteractiveSetup() error {
	m := initialTUIModel()

	p := tea.NewProgram(m, tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tuiModel)
	if final.cancelled {
		return fmt.Errorf("cancelled")
	}
	if !final.confirmed {
		return fmt.Errorf("run cancelled")
	}

	// Apply selections to flags
	flagService = final.items[idxService].value
	flagTitle = final.items[idxTitle].value
	flagGender = final.items[idxGender].value
	flagAgeStart = parseInt(final.items[idxAgeStart].value)
	flagAgeEnd = parseInt(final.items[idxAgeEnd].value)
	flagCount = parseInt(final.items[idxCount].value)
	flagBackend = final.items[idxBackend].value
	flagLocal = false
	flagPolicy = final.items[idxPolicy].value
	flagOutput = final.items[idxOutput].value

	return nil
}
