// Package render formats finished runs for the terminal.
package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"parcelroute/internal/model"
)

const barWidth = 20

// Run renders a run summary with one section per strategy result.
func Run(run model.Run) string {
	s := newStyles()
	lines := []string{
		s.title.Render("Run " + run.ID),
		s.header.Render(fmt.Sprintf("algorithm: %s  seed: %d  status: %s  polish: %t", run.Algorithm, run.Seed, run.Status, run.Polish)),
		s.header.Render(fmt.Sprintf("packages: %d  vehicles: %d", len(run.Problem.Packages), len(run.Problem.Vehicles))),
	}
	if run.Error != "" {
		lines = append(lines, s.warning.Render("error: "+run.Error))
	}
	if len(run.Results) == 0 {
		lines = append(lines, s.empty.Render("No results."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}
	for _, res := range run.Results {
		lines = append(lines, s.section.Render(result(res, s)))
	}
	if len(run.Results) > 1 {
		lines = append(lines, s.section.Render(comparison(run.Results, s)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func result(res model.AlgoResult, s styles) string {
	parts := []string{
		s.algo.Render(res.Algorithm),
		s.detail.Render(fmt.Sprintf("distance: %.2f  priority (%s): %.2f  fitness: %.2f", res.Distance, res.PriorityMode, res.Priority, res.Fitness)),
		s.header.Render(fmt.Sprintf("iterations: %d  improvements: %d  evaluations: %d  time: %dms", res.Iterations, res.Improvements, res.Evaluations, res.DurationMs)),
	}
	for _, r := range res.Routes {
		parts = append(parts, routeLine(r, s))
	}
	if len(res.Unassigned) > 0 {
		parts = append(parts, s.warning.Render("unassigned: "+strings.Join(res.Unassigned, ", ")))
	} else {
		parts = append(parts, s.empty.Render("unassigned: none"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func routeLine(r model.RouteOut, s styles) string {
	stops := "(idle)"
	if len(r.Packages) > 0 {
		stops = "depot -> " + strings.Join(r.Packages, " -> ") + " -> depot"
	}
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.vehicle.Render(fmt.Sprintf("%-6s", r.VehicleID)),
		" ",
		loadBar(r.Load, r.Capacity, s),
		" ",
		s.detail.Render(fmt.Sprintf("%g/%g  %.2f  %s", r.Load, r.Capacity, r.Distance, stops)),
	)
}

func loadBar(load, capacity float64, s styles) string {
	frac := 0.0
	if capacity > 0 {
		frac = math.Max(0, math.Min(1, load/capacity))
	}
	filled := int(math.Round(barWidth * frac))
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", barWidth-filled)),
		s.barBracket.Render("]"),
	)
}

// comparison names the shorter plan; ties on distance fall back to
// unassigned count.
func comparison(results []model.AlgoResult, s styles) string {
	best := results[0]
	for _, r := range results[1:] {
		if r.Distance < best.Distance || (r.Distance == best.Distance && len(r.Unassigned) < len(best.Unassigned)) {
			best = r
		}
	}
	rows := []string{s.title.Render("Comparison")}
	for _, r := range results {
		mark := " "
		if r.Algorithm == best.Algorithm {
			mark = "*"
		}
		rows = append(rows, s.detail.Render(fmt.Sprintf("%s %-8s distance %.2f  unassigned %d", mark, r.Algorithm, r.Distance, len(r.Unassigned))))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
