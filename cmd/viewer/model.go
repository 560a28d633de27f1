package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/kass/go-openroute/pkg/api"
	"github.com/kass/go-openroute/pkg/geo"
	"github.com/kass/go-openroute/pkg/models"
	"github.com/kass/go-openroute/pkg/routing"
	"github.com/kass/go-openroute/pkg/rtree"
)

const nearbyRadiusKm = 0.5

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6")).
			Background(lipgloss.Color("#282A36")).
			Padding(0, 1).
			MarginTop(1).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#50FA7B"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#BD93F9")).
			Padding(0, 2).
			MarginTop(1)

	statStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))
)

// routeMsg carries a finished request back into the update loop
type routeMsg struct {
	token   uuid.UUID
	route   *models.Route
	err     error
	elapsed time.Duration
}

type model struct {
	ctx       context.Context
	routes    api.RouteComputer
	waypoints []geo.Coordinate
	profile   routing.Profile
	locale    language.Tag

	pending *pendingRequests
	spinner spinner.Model

	route    *models.Route
	index    *rtree.StepIndex
	err      error
	elapsed  time.Duration
	selected int
	dropped  int

	width  int
	height int
}

func newModel(ctx context.Context, routes api.RouteComputer, waypoints []geo.Coordinate, profile routing.Profile, locale language.Tag) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		ctx:       ctx,
		routes:    routes,
		waypoints: waypoints,
		profile:   profile,
		locale:    locale,
		pending:   newPendingRequests(),
		spinner:   s,
		width:     80,
		height:    24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.request())
}

// request starts computing the route for the current profile off the UI loop
func (m model) request() tea.Cmd {
	token, ctx := m.pending.start(m.ctx, m.profile)
	routes, waypoints, profile := m.routes, m.waypoints, m.profile

	return func() tea.Msg {
		start := time.Now()
		route, err := routes.ComputeRoute(ctx, waypoints, profile)
		return routeMsg{token: token, route: route, err: err, elapsed: time.Since(start)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.pending.cancelAll()
			return m, tea.Quit
		case "c":
			return m.switchProfile(routing.Car)
		case "b":
			return m.switchProfile(routing.Bicycle)
		case "w":
			return m.switchProfile(routing.Walking)
		case "r":
			return m.switchProfile(m.profile)
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.route != nil && m.selected < len(m.route.Steps)-1 {
				m.selected++
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case routeMsg:
		if _, ok := m.pending.resolve(msg.token); !ok {
			// superseded by a newer request
			m.dropped++
			return m, nil
		}
		m.elapsed = msg.elapsed
		m.selected = 0
		if msg.err != nil {
			m.route, m.index, m.err = nil, nil, msg.err
			return m, nil
		}

		index, err := rtree.NewStepIndex(msg.route)
		if err != nil {
			m.route, m.index, m.err = nil, nil, err
			return m, nil
		}
		m.route, m.index, m.err = msg.route, index, nil
		return m, nil
	}

	return m, nil
}

func (m model) switchProfile(p routing.Profile) (tea.Model, tea.Cmd) {
	m.profile = p
	m.route, m.index, m.err = nil, nil, nil
	return m, m.request()
}

func (m model) loading() bool {
	return m.pending.count() > 0
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🗺  openroute"))
	b.WriteString("\n")
	b.WriteString(m.renderProfiles())
	b.WriteString("\n")
	b.WriteString(m.renderMarkers())
	b.WriteString("\n")

	switch {
	case m.loading():
		b.WriteString(m.spinner.View() + " Computing " + routing.LabelFor(m.profile, m.locale) + " route...\n")
	case m.err != nil:
		b.WriteString(boxStyle.Render(errorStyle.Render(describeError(m.err))))
		b.WriteString("\n")
	case m.route != nil:
		b.WriteString(m.renderRoute())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("c/b/w profile • r retry • ↑/↓ select step • q quit"))
	return b.String()
}

func (m model) renderProfiles() string {
	labels := make([]string, 0, len(routing.Profiles()))
	for _, p := range routing.Profiles() {
		label := routing.LabelFor(p, m.locale)
		if p == m.profile {
			labels = append(labels, selectedStyle.Render("["+label+"]"))
		} else {
			labels = append(labels, dimStyle.Render(" "+label+" "))
		}
	}
	return strings.Join(labels, " ")
}

func (m model) renderMarkers() string {
	var b strings.Builder
	for i, w := range m.waypoints {
		marker := "via"
		switch i {
		case 0:
			marker = "start"
		case len(m.waypoints) - 1:
			marker = "end"
		}
		b.WriteString(fmt.Sprintf("%s %s\n", infoStyle.Render(fmt.Sprintf("%-5s", marker)), w.DMS()))
	}
	return b.String()
}

func (m model) renderRoute() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render(fmt.Sprintf("%s route", routing.LabelFor(m.profile, m.locale))))
	b.WriteString("  ")
	b.WriteString(statStyle.Render(fmt.Sprintf("%.2f km", m.route.Length)))
	b.WriteString(dimStyle.Render(" • "))
	b.WriteString(statStyle.Render((time.Duration(m.route.Duration) * time.Second).String()))
	b.WriteString(dimStyle.Render(fmt.Sprintf(" • computed in %v", m.elapsed.Round(time.Millisecond))))
	b.WriteString("\n\n")

	if len(m.route.Steps) == 0 {
		b.WriteString(dimStyle.Render("No turn instructions, you are already there."))
		return b.String()
	}

	// keep the selected step visible
	rows := m.height - 16
	if rows < 5 {
		rows = 5
	}
	first := 0
	if m.selected >= rows {
		first = m.selected - rows + 1
	}
	last := first + rows
	if last > len(m.route.Steps) {
		last = len(m.route.Steps)
	}

	for i := first; i < last; i++ {
		s := m.route.Steps[i]
		line := fmt.Sprintf("%3d. %-50s %6.2f km", i+1, s.Instruction, s.Length)
		if i == m.selected {
			b.WriteString(selectedStyle.Render("▶ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString(m.renderSelected())
	return b.String()
}

// renderSelected shows where the selected step is and what else is close by
func (m model) renderSelected() string {
	step := m.route.Steps[m.selected]

	content := fmt.Sprintf("%s %s\n%s %s",
		dimStyle.Render("at"), step.Location.DMS(),
		dimStyle.Render("maneuver"), step.Maneuver,
	)

	if m.index != nil {
		nearby, err := m.index.QueryRadius(step.Location, nearbyRadiusKm)
		if err == nil && len(nearby) > 1 {
			content += "\n" + dimStyle.Render(fmt.Sprintf("%d other steps within %.1f km", len(nearby)-1, nearbyRadiusKm))
		}
	}
	return boxStyle.Render(content) + "\n"
}

func describeError(err error) string {
	switch routing.KindOf(err) {
	case routing.KindInvalidInput:
		return "Invalid request: " + err.Error()
	case routing.KindServiceError:
		return "The routing service refused the request: " + err.Error()
	case routing.KindTransportError:
		return "Could not reach the routing service: " + err.Error()
	case routing.KindParseError:
		return "The routing service sent an unreadable answer: " + err.Error()
	default:
		return err.Error()
	}
}
