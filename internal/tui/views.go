package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cohortscope/server/internal/cohort"
	"github.com/cohortscope/server/internal/navigation"
	"github.com/cohortscope/server/internal/service"
)

var (
	accent    = lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: "#BD93F9"}
	muted     = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
	durable   = lipgloss.AdaptiveColor{Light: "#1B7F3B", Dark: "#50FA7B"}
	relapse   = lipgloss.AdaptiveColor{Light: "#B00020", Dark: "#FF5555"}
	highlight = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}

	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(accent)
	activeTabStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("#FFFFFF")).Background(accent)
	tabStyle         = lipgloss.NewStyle().Padding(0, 1)
	disabledTabStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(muted).Strikethrough(true)
	crumbStyle       = lipgloss.NewStyle().Foreground(muted)
	sectionStyle     = lipgloss.NewStyle().Bold(true).Underline(true).MarginTop(1)
	cursorStyle      = lipgloss.NewStyle().Bold(true).Foreground(highlight)
	statusStyle      = lipgloss.NewStyle().Italic(true).Foreground(relapse)
	panelStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1)
)

func outcomeStyle(o cohort.Outcome) lipgloss.Style {
	if o == cohort.EarlyRelapse {
		return lipgloss.NewStyle().Foreground(relapse)
	}
	return lipgloss.NewStyle().Foreground(durable)
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Cohort Dashboard"))
	b.WriteString(crumbStyle.Render(fmt.Sprintf("  seed %d", m.payload.Seed)))
	b.WriteString("\n")
	b.WriteString(renderTabs(m.payload.Tabs, m.payload.View))
	b.WriteString("\n")
	b.WriteString(crumbStyle.Render(strings.Join(m.payload.State.Breadcrumb, " › ")))
	b.WriteString("\n")

	var body string
	switch {
	case m.payload.Patient != nil:
		body = m.renderPatient(m.payload.Patient)
	case m.payload.Atlas != nil:
		body = m.renderAtlas(m.payload.Atlas)
	case m.payload.Cohort != nil:
		body = m.renderCohort(m.payload.Cohort)
	}
	if m.width > 4 {
		body = panelStyle.Width(m.width - 4).Render(body)
	} else {
		body = panelStyle.Render(body)
	}
	b.WriteString(body)
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func renderTabs(tabs []navigation.Tab, active navigation.View) string {
	parts := make([]string, 0, len(tabs))
	for i, t := range tabs {
		label := fmt.Sprintf("%d %s", i+1, t.Label)
		switch {
		case t.View == active:
			parts = append(parts, activeTabStyle.Render(label))
		case !t.Enabled:
			parts = append(parts, disabledTabStyle.Render(label))
		default:
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderCohort(p *service.CohortPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Gene %s (%s)  window %.0f–%.0f  outcome %s\n",
		p.Gene, p.GeneDescription, p.ExpressionRange.Low, p.ExpressionRange.High, p.OutcomeFilter)
	fmt.Fprintf(&b, "%d cells in window\n", p.CellCount)

	b.WriteString(sectionStyle.Render("Outcome groups"))
	b.WriteString("\n")
	for _, g := range p.Groups {
		fmt.Fprintf(&b, "%-18s n=%-3d response %5.1f  survival %4.1f mo\n",
			outcomeStyle(g.Outcome).Render(g.Label), g.Count, g.AvgResponseScore, g.AvgSurvival)
	}

	b.WriteString(sectionStyle.Render("Patients"))
	b.WriteString("\n")
	perPatient := make(map[string]int)
	for _, c := range p.Cells {
		perPatient[c.PatientID]++
	}
	for i, pt := range cohort.Roster {
		line := fmt.Sprintf("%s  %-4s %-13s %-13s %3d cells", pt.ID, pt.Stage, pt.TreatmentArm, pt.Outcome.Label(), perPatient[pt.ID])
		if i == m.rosterCursor {
			b.WriteString(cursorStyle.Render("› " + line))
		} else {
			b.WriteString("  " + outcomeStyle(pt.Outcome).Render(line))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderPatient(p *service.PatientPayload) string {
	if p.Placeholder != nil {
		return fmt.Sprintf("%s\n\n[1] %s", p.Placeholder.Message, p.Placeholder.ActionLabel)
	}

	var b strings.Builder
	pt := p.Patient
	fmt.Fprintf(&b, "Patient %s  %s  age %d %s  stage %s  %s\n",
		pt.ID, outcomeStyle(pt.Outcome).Render(pt.Outcome.Label()), pt.Age, pt.Gender, pt.Stage, pt.TreatmentArm)
	if !pt.Known {
		b.WriteString(crumbStyle.Render("not in the cohort roster; showing placeholder metadata"))
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render("Timeline"))
	b.WriteString("\n")
	header := fmt.Sprintf("  %-9s", "")
	for _, g := range cohort.TimelineGenes {
		header += fmt.Sprintf("%8s", g)
	}
	b.WriteString(crumbStyle.Render(header))
	b.WriteString("\n")
	for _, s := range p.Timeline {
		row := fmt.Sprintf("%-9s", s.Name)
		for _, g := range cohort.TimelineGenes {
			row += fmt.Sprintf("%8.1f", s.Expression[g])
		}
		if s.Key == p.ActiveTimepoint.Key {
			b.WriteString(cursorStyle.Render("› " + row))
		} else {
			b.WriteString("  " + row)
		}
		b.WriteString("\n")
	}

	if r := p.ActiveRisk; r != nil {
		b.WriteString(sectionStyle.Render("Relapse risk at " + r.Name))
		b.WriteString("\n")
		fmt.Fprintf(&b, "low %.0f%%  medium %.0f%%  high %.0f%%  score %.1f\n", r.LowRisk, r.MediumRisk, r.HighRisk, r.RiskScore)
		b.WriteString(p.Interpretation)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderAtlas(p *service.AtlasPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Gene %s (%s)  tissue %s  dataset %s\n", p.Gene, p.GeneDescription, p.Tissue, p.Dataset)
	if p.ContextPatient != nil {
		fmt.Fprintf(&b, "Context: patient %s (%s)\n", p.ContextPatient.ID, p.ContextPatient.Outcome.Label())
	}

	b.WriteString(sectionStyle.Render("Genes"))
	b.WriteString("\n")
	for i, g := range cohort.AllGenes {
		line := string(g)
		if g == p.Gene {
			line += " *"
		}
		if i == m.geneCursor {
			b.WriteString(cursorStyle.Render("› " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Heatmap (mean %.1f)", p.Heatmap.MeanExpression)))
	b.WriteString("\n")
	values := make(map[cohort.Tissue]map[cohort.Dataset]float64)
	for _, c := range p.Heatmap.Cells {
		if values[c.Tissue] == nil {
			values[c.Tissue] = make(map[cohort.Dataset]float64)
		}
		values[c.Tissue][c.Dataset] = c.Expression
	}
	for _, t := range p.Heatmap.Tissues {
		row := fmt.Sprintf("%-14s", t)
		for _, d := range p.Heatmap.Datasets {
			row += fmt.Sprintf("%8.1f", values[t][d])
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render("Distribution by tissue"))
	b.WriteString("\n")
	for _, g := range p.ViolinStats {
		line := fmt.Sprintf("%-14s mean %5.1f  median %5.1f  IQR %5.1f–%5.1f", g.Tissue, g.Stats.Mean, g.Stats.Median, g.Stats.Q1, g.Stats.Q3)
		if p.HighestTissue != nil && g.Tissue == p.HighestTissue.Tissue {
			line = cursorStyle.Render(line + "  highest")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
