package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wasm-sudoku/board"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	givenStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB"))

	solvedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateLoading modelState = iota
	stateEditing
	stateSolving
	stateShowResult
)

type interactiveModel struct {
	err      error
	st       *stack
	spinner  spinner.Model
	artifact string
	grid     board.Board
	given    board.Board
	result   string
	cursor   int
	state    modelState
}

func newInteractiveModel(st *stack, artifact string) *interactiveModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &interactiveModel{
		st:       st,
		spinner:  sp,
		artifact: artifact,
		grid:     board.New(),
		state:    stateLoading,
	}
}

type loadedMsg struct {
	err error
}

type solvedMsg struct {
	err   error
	board board.Board
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadModule)
}

func (m *interactiveModel) loadModule() tea.Msg {
	_, err := m.st.loader.Load(context.Background())
	return loadedMsg{err: err}
}

func (m *interactiveModel) solve() tea.Cmd {
	b := m.grid.Clone()
	return func() tea.Msg {
		out, err := m.st.solver.Solve(context.Background(), b)
		return solvedMsg{board: out, err: err}
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.state = stateEditing

	case solvedMsg:
		m.state = stateShowResult
		m.err = msg.err
		if msg.err == nil {
			m.given = m.grid
			m.grid = msg.board
			m.result = "solved"
			if !msg.board.Complete() {
				m.result = "no solution"
			}
		}

	case spinner.TickMsg:
		if m.state == stateLoading || m.state == stateSolving {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *interactiveModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "q" {
		return m, tea.Quit
	}

	switch m.state {
	case stateEditing:
	case stateShowResult:
		if key == "r" || key == "enter" || key == "esc" {
			m.reset(key == "r")
		}
		return m, nil
	default:
		return m, nil
	}

	switch key {
	case "up", "k":
		if m.cursor >= board.Side {
			m.cursor -= board.Side
		}
	case "down", "j":
		if m.cursor < board.Size-board.Side {
			m.cursor += board.Side
		}
	case "left", "h":
		if m.cursor%board.Side > 0 {
			m.cursor--
		}
	case "right", "l":
		if m.cursor%board.Side < board.Side-1 {
			m.cursor++
		}
	case ".", "0", "backspace", "delete", " ":
		m.grid[m.cursor] = board.Empty
	case "r":
		m.reset(true)
	case "enter":
		m.state = stateSolving
		return m, tea.Batch(m.spinner.Tick, m.solve())
	default:
		if len(key) == 1 && board.Cell(key[0]).IsDigit() {
			m.grid[m.cursor] = board.Cell(key[0])
			if m.cursor < board.Size-1 {
				m.cursor++
			}
		}
	}
	return m, nil
}

// reset returns to editing. With clear the grid is emptied, otherwise the
// givens from the last solve are restored.
func (m *interactiveModel) reset(clear bool) {
	switch {
	case clear:
		m.grid = board.New()
		m.cursor = 0
	case m.given != nil:
		m.grid = m.given
	}
	m.given = nil
	m.result = ""
	m.err = nil
	m.state = stateEditing
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state == stateLoading {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Sudoku"))
	b.WriteString(" ")
	b.WriteString(m.artifact)
	b.WriteString("\n\n")

	if m.state == stateLoading {
		b.WriteString(m.spinner.View())
		b.WriteString(" Loading solver module...")
		return b.String()
	}

	b.WriteString(m.renderGrid())
	b.WriteString("\n")

	switch m.state {
	case stateEditing:
		b.WriteString(helpStyle.Render("←/↑/↓/→ move • 1-9 set • ./backspace clear • enter solve • r reset • q quit"))
	case stateSolving:
		b.WriteString(m.spinner.View())
		b.WriteString(" Solving...")
	case stateShowResult:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter edit • r reset • q quit"))
	}
	return b.String()
}

func (m *interactiveModel) renderGrid() string {
	var b strings.Builder
	for row := 0; row < board.Side; row++ {
		if row > 0 && row%3 == 0 {
			b.WriteString("------+-------+------\n")
		}
		for col := 0; col < board.Side; col++ {
			if col > 0 && col%3 == 0 {
				b.WriteString("| ")
			}
			i := row*board.Side + col
			b.WriteString(m.renderCell(i))
			if col < board.Side-1 {
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (m *interactiveModel) renderCell(i int) string {
	cell := string(rune(m.grid[i]))
	switch {
	case m.state == stateEditing && i == m.cursor:
		return selectedStyle.Render(cell)
	case m.given != nil && m.given[i].IsDigit():
		return givenStyle.Render(cell)
	case m.given != nil:
		return solvedStyle.Render(cell)
	case m.grid[i].IsDigit():
		return givenStyle.Render(cell)
	}
	return cell
}

func runInteractive(st *stack, artifact string) error {
	p := tea.NewProgram(newInteractiveModel(st, artifact), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
