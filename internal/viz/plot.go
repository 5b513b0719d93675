package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/phonsim/internal/dos"
)

const (
	plotWidth  = 80
	plotHeight = 20
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	plotStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	legendStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
)

// Dispersion renders all phonon branches along the k-path index as one
// multi-series chart.
func Dispersion(title string, freq [][]float64) string {
	if len(freq) == 0 {
		return warnStyle.Render("no dispersion data")
	}
	nb := len(freq[0])
	series := make([][]float64, nb)
	for b := 0; b < nb; b++ {
		series[b] = make([]float64, len(freq))
		for i := range freq {
			series[b][i] = freq[i][b]
		}
	}

	chart := asciigraph.PlotMany(series,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption("frequency (THz) vs k-path index"),
	)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")
	sb.WriteString(plotStyle.Render(chart))
	sb.WriteString("\n")
	sb.WriteString(legendStyle.Render(fmt.Sprintf("%d branches, %d k-points", nb, len(freq))))
	return sb.String()
}

// DOS renders a density-of-states curve against frequency.
func DOS(title string, curve *dos.Curve) string {
	if curve == nil || len(curve.DOS) == 0 {
		return warnStyle.Render("no DOS data")
	}
	chart := asciigraph.Plot(curve.DOS,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(fmt.Sprintf("DOS, %.2f to %.2f THz", curve.Freq[0], curve.Freq[len(curve.Freq)-1])),
	)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")
	sb.WriteString(plotStyle.Render(chart))
	return sb.String()
}

// FitSummary renders a compact end-of-fit line.
func FitSummary(converged bool, evals int, names []string, params []float64) string {
	var sb strings.Builder
	if converged {
		sb.WriteString(titleStyle.Render("fit converged"))
	} else {
		sb.WriteString(warnStyle.Render("fit did not converge"))
	}
	sb.WriteString(legendStyle.Render(fmt.Sprintf("  (%d evaluations)\n", evals)))
	for i, name := range names {
		sb.WriteString(fmt.Sprintf("  %-8s %12.6f\n", name, params[i]))
	}
	return sb.String()
}
