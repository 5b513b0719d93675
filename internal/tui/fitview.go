package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/phonsim/internal/fit"
)

const historyCapacity = 400

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// ProgressMsg carries one objective evaluation from the fitter.
type ProgressMsg fit.Progress

// DoneMsg signals that the fit finished.
type DoneMsg struct {
	Err    error
	Report *fit.Report
}

// FitView is a live view of a running fit. Progress arrives on a
// channel fed by the fitter's OnProgress hook.
type FitView struct {
	updates    <-chan fit.Progress
	done       <-chan DoneMsg
	paramNames []string

	eval      int
	objective float64
	params    []float64
	history   []float64
	report    *fit.Report
	err       error
	finished  bool
}

func NewFitView(paramNames []string, updates <-chan fit.Progress, done <-chan DoneMsg) *FitView {
	return &FitView{
		updates:    updates,
		done:       done,
		paramNames: paramNames,
	}
}

// Report returns the final fit report once the view has finished.
func (v *FitView) Report() (*fit.Report, error) {
	return v.report, v.err
}

func (v *FitView) Init() tea.Cmd {
	return v.wait()
}

func (v *FitView) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case p, ok := <-v.updates:
			if ok {
				return ProgressMsg(p)
			}
		case d := <-v.done:
			return d
		}
		d := <-v.done
		return d
	}
}

func (v *FitView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return v, tea.Quit
		}
	case ProgressMsg:
		v.eval = msg.Eval
		v.objective = msg.Objective
		v.params = msg.Params
		v.history = append(v.history, msg.Objective)
		if len(v.history) > historyCapacity {
			v.history = v.history[len(v.history)-historyCapacity:]
		}
		return v, v.wait()
	case DoneMsg:
		v.finished = true
		v.report = msg.Report
		v.err = msg.Err
		return v, tea.Quit
	}
	return v, nil
}

func (v *FitView) View() string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("phonon fit"))
	sb.WriteString("\n")

	sb.WriteString(labelStyle.Render("evaluation"))
	sb.WriteString(valueStyle.Render(fmt.Sprintf("%d", v.eval)))
	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render("objective"))
	sb.WriteString(valueStyle.Render(fmt.Sprintf("%.8g", v.objective)))
	sb.WriteString("\n")
	for i, p := range v.params {
		name := fmt.Sprintf("p%d", i)
		if i < len(v.paramNames) {
			name = v.paramNames[i]
		}
		sb.WriteString(labelStyle.Render(name))
		sb.WriteString(valueStyle.Render(fmt.Sprintf("%.6f", p)))
		sb.WriteString("\n")
	}

	if len(v.history) > 1 {
		chart := asciigraph.Plot(v.history,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption("objective"),
		)
		sb.WriteString(graphStyle.Render(chart))
		sb.WriteString("\n")
	}

	if v.finished {
		sb.WriteString(helpStyle.Render("finished, press q to exit"))
	} else {
		sb.WriteString(helpStyle.Render("q: quit"))
	}
	return sb.String()
}
