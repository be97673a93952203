package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/nodewire/pkg/api"
	"github.com/dd0wney/nodewire/pkg/catalog"
	"github.com/dd0wney/nodewire/pkg/connection"
	"github.com/dd0wney/nodewire/pkg/execution"
	"github.com/dd0wney/nodewire/pkg/graph"
	"github.com/dd0wney/nodewire/pkg/logging"
	"github.com/dd0wney/nodewire/pkg/metrics"
	"github.com/dd0wney/nodewire/pkg/protocol"
	"github.com/dd0wney/nodewire/pkg/pubsub"
	"github.com/dd0wney/nodewire/pkg/workspace"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginRight(2)

	runBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#FFFF00")).
			Padding(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	dashboardView view = iota
	workspacesView
	runView
)

const viewCount = 3

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Enter    key.Binding
	Run      key.Binding
	Save     key.Binding
	Delete   key.Binding
	Reset    key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "load/confirm"),
	),
	Run: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "run graph"),
	),
	Save: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "save as"),
	),
	Delete: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "delete"),
	),
	Reset: key.NewBinding(
		key.WithKeys("0"),
		key.WithHelp("0", "reset session"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("up/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("down/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Run, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Enter},
		{k.Run, k.Save, k.Delete, k.Reset},
		{k.Up, k.Down, k.Quit},
	}
}

type model struct {
	manager    *connection.Manager
	session    *execution.Session
	store      workspace.Store
	catalog    *catalog.Catalog
	reconciler *graph.Reconciler
	registry   *metrics.Registry
	bus        *pubsub.PubSub

	currentView view
	nameInput   textinput.Model
	naming      bool
	eventTable  table.Model
	help        help.Model
	keys        keyMap
	width       int
	height      int
	message     string
	messageErr  bool
	startTime   time.Time

	workspaces  []string
	selected    int
	loadedName  string
	loadedGraph graph.Graph
	events      []string
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func initialModel(manager *connection.Manager, session *execution.Session,
	store workspace.Store, cat *catalog.Catalog, registry *metrics.Registry,
	bus *pubsub.PubSub) model {

	ti := textinput.New()
	ti.Placeholder = "workspace name"
	ti.CharLimit = 80
	ti.Width = 40

	columns := []table.Column{
		{Title: "Time", Width: 10},
		{Title: "Event", Width: 60},
	}
	et := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	et.SetStyles(s)

	m := model{
		manager:    manager,
		session:    session,
		store:      store,
		catalog:    cat,
		reconciler: graph.NewReconciler(),
		registry:   registry,
		bus:        bus,
		nameInput:  ti,
		eventTable: et,
		help:       help.New(),
		keys:       keys,
		startTime:  time.Now(),
	}
	m.refreshWorkspaces()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		return m, tickCmd()

	case tea.KeyMsg:
		if m.naming {
			return m.updateNaming(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.currentView = (m.currentView + 1) % viewCount

		case key.Matches(msg, m.keys.ShiftTab):
			if m.currentView == 0 {
				m.currentView = viewCount - 1
			} else {
				m.currentView--
			}

		case key.Matches(msg, m.keys.Up):
			if m.currentView == workspacesView && m.selected > 0 {
				m.selected--
			}

		case key.Matches(msg, m.keys.Down):
			if m.currentView == workspacesView && m.selected < len(m.workspaces)-1 {
				m.selected++
			}

		case key.Matches(msg, m.keys.Enter):
			if m.currentView == workspacesView {
				m.loadSelected()
			}

		case key.Matches(msg, m.keys.Delete):
			if m.currentView == workspacesView {
				m.deleteSelected()
			}

		case key.Matches(msg, m.keys.Save):
			if m.currentView == workspacesView && len(m.loadedGraph.Nodes) > 0 {
				m.naming = true
				m.nameInput.SetValue(m.loadedName)
				m.nameInput.Focus()
			}

		case key.Matches(msg, m.keys.Run):
			m.triggerRun()

		case key.Matches(msg, m.keys.Reset):
			m.session.Reset()
			m.note("session reset", false)
		}
	}

	m.eventTable, cmd = m.eventTable.Update(msg)
	return m, cmd
}

// updateNaming handles keys while the save-as prompt is open.
func (m model) updateNaming(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		name := strings.TrimSpace(m.nameInput.Value())
		m.naming = false
		m.nameInput.Blur()
		if name == "" {
			m.note("save cancelled: empty name", true)
			return m, nil
		}
		data := workspace.Data{Graph: m.loadedGraph}
		data.Stamp(time.Now())
		if err := m.store.Save(name, data); err != nil {
			m.note(fmt.Sprintf("save failed: %v", err), true)
			return m, nil
		}
		m.loadedName = name
		m.refreshWorkspaces()
		m.note(fmt.Sprintf("saved %q", name), false)
		return m, nil

	case tea.KeyEsc:
		m.naming = false
		m.nameInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m *model) refreshWorkspaces() {
	names, err := m.store.List()
	if err != nil {
		m.note(fmt.Sprintf("list failed: %v", err), true)
		return
	}
	m.workspaces = names
	if m.selected >= len(names) {
		m.selected = len(names) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *model) loadSelected() {
	if m.selected >= len(m.workspaces) {
		return
	}
	name := m.workspaces[m.selected]

	data, err := m.store.Load(name)
	if err != nil {
		m.note(fmt.Sprintf("load failed: %v", err), true)
		return
	}

	g, changes := m.reconciler.Apply(data.Graph)
	m.registry.RecordReconcilePass(len(g.Nodes), len(changes))
	if len(changes) > 0 {
		m.bus.Publish(pubsub.TopicPortLayout, changes)
	}
	m.loadedGraph = g
	m.loadedName = name
	m.addEvent(fmt.Sprintf("loaded %q: %d nodes, %d edges, %d ports adjusted",
		name, len(g.Nodes), len(g.Edges), len(changes)))
	m.note(fmt.Sprintf("loaded %q", name), false)
}

func (m *model) deleteSelected() {
	if m.selected >= len(m.workspaces) {
		return
	}
	name := m.workspaces[m.selected]
	if err := m.store.Delete(name); err != nil {
		m.note(fmt.Sprintf("delete failed: %v", err), true)
		return
	}
	m.refreshWorkspaces()
	m.note(fmt.Sprintf("deleted %q", name), false)
}

func (m *model) triggerRun() {
	if len(m.loadedGraph.Nodes) == 0 {
		m.note("nothing loaded to run", true)
		return
	}
	if err := m.session.Trigger(m.loadedGraph, "", m.loadedName); err != nil {
		m.addEvent(fmt.Sprintf("run rejected: %v", err))
		m.note(fmt.Sprintf("run rejected: %v", err), true)
		return
	}
	m.addEvent(fmt.Sprintf("run triggered for %q", m.loadedName))
	m.note("run triggered", false)
	m.currentView = runView
}

func (m *model) addEvent(text string) {
	m.events = append(m.events, text)
	if len(m.events) > 50 {
		m.events = m.events[len(m.events)-50:]
	}

	rows := make([]table.Row, 0, len(m.events))
	for _, e := range m.events {
		rows = append(rows, table.Row{time.Now().Format("15:04:05"), e})
	}
	m.eventTable.SetRows(rows)
}

func (m *model) note(text string, isErr bool) {
	m.message = text
	m.messageErr = isErr
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("NodeWire - Client Dashboard"))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case dashboardView:
		s.WriteString(m.renderDashboard())
	case workspacesView:
		s.WriteString(m.renderWorkspaces())
	case runView:
		s.WriteString(m.renderRun())
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(errorStyle.Render("✗ " + m.message))
		} else {
			s.WriteString(successStyle.Render("✓ " + m.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return s.String()
}

func (m model) renderTabs() string {
	tabs := []string{"Dashboard", "Workspaces", "Run"}
	rendered := make([]string, len(tabs))
	for i, tab := range tabs {
		if view(i) == m.currentView {
			rendered[i] = activeTabStyle.Render(tab)
		} else {
			rendered[i] = inactiveTabStyle.Render(tab)
		}
	}
	return contentStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
}

func (m model) renderDashboard() string {
	state := m.manager.State()
	stateLine := state.String()
	if state == connection.StateOpen {
		stateLine = successStyle.Render(stateLine)
	} else {
		stateLine = errorStyle.Render(stateLine)
	}

	connBox := statsBoxStyle.Render(fmt.Sprintf(
		"Connection\n\nState:     %s\nEndpoint:  %s\nRetries:   %d\nClient ID: %s",
		stateLine, m.manager.Endpoint(), m.manager.Retries(), orDash(m.manager.ClientID())))

	snap := m.session.Snapshot()
	runBox := runBoxStyle.Render(fmt.Sprintf(
		"Run\n\nStatus:  %s\nRun ID:  %s\nCurrent: %s",
		snap.Status, orDash(snap.RunID), orDash(snap.CurrentNode)))

	info := fmt.Sprintf("\nCatalog: %d node types   Workspaces: %d   Uptime: %s",
		m.catalog.Len(), len(m.workspaces), time.Since(m.startTime).Round(time.Second))

	return contentStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Top, connBox, runBox) + info)
}

func (m model) renderWorkspaces() string {
	var s strings.Builder

	if m.naming {
		s.WriteString("Save workspace as:\n\n")
		s.WriteString(m.nameInput.View())
		s.WriteString("\n\n(enter to save, esc to cancel)")
		return contentStyle.Render(s.String())
	}

	if len(m.workspaces) == 0 {
		s.WriteString("No workspaces in the nexus yet.\n")
	}
	for i, name := range m.workspaces {
		line := "  " + name
		if name == m.loadedName {
			line += "  (loaded)"
		}
		if i == m.selected {
			line = selectedStyle.Render("> " + strings.TrimPrefix(line, "  "))
		}
		s.WriteString(line)
		s.WriteString("\n")
	}

	if m.loadedName != "" {
		s.WriteString(fmt.Sprintf("\nLoaded: %q (%d nodes, %d edges)",
			m.loadedName, len(m.loadedGraph.Nodes), len(m.loadedGraph.Edges)))
	}
	s.WriteString("\n\nenter: load   s: save as   x: delete   r: run")

	return contentStyle.Render(s.String())
}

func (m model) renderRun() string {
	snap := m.session.Snapshot()

	var status string
	switch snap.Status {
	case execution.StatusCompleted:
		status = successStyle.Render("completed")
	case execution.StatusError:
		status = errorStyle.Render("error: " + snap.Error)
	default:
		status = snap.Status.String()
	}

	head := fmt.Sprintf(
		"Status:   %s\nRun ID:   %s\nTrigger:  %s\nCurrent:  %s\nFailed:   %s\n"+
			"Totals:   %d nodes, %d executed, %d cached\nDuration: %dms\n\n",
		status, orDash(snap.RunID), orDash(snap.TriggerNode), orDash(snap.CurrentNode),
		orDash(snap.FailedNode), snap.TotalNodes, snap.ExecutedNodes, snap.CachedNodes,
		snap.DurationMS)

	return contentStyle.Render(head + m.eventTable.View())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func main() {
	endpoint := flag.String("endpoint", "ws://localhost:3001/ws", "Backend websocket URL")
	apiURL := flag.String("api", "http://localhost:3001", "Backend HTTP base URL")
	nexusDir := flag.String("nexus", "./nexus", "Local workspace directory")
	flag.Parse()

	// The terminal owns stdout; logs go nowhere unless a file is given.
	logger := logging.NewNopLogger()
	registry := metrics.NewRegistry()
	bus := pubsub.NewPubSub()
	defer bus.Shutdown()

	cat := catalog.New()
	if client, err := api.NewClient(*apiURL, 0, logger); err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if body, err := client.NodeRegistry(ctx); err == nil {
			cat.RefreshFromRegistry(body)
		}
		cancel()
	}

	cfg := connection.DefaultConfig()
	cfg.Endpoint = *endpoint
	manager, err := connection.NewManager(cfg, nil, logger, registry, bus)
	if err != nil {
		log.Fatalf("Invalid connection config: %v", err)
	}

	session := execution.NewSession(execution.DefaultSessionConfig(), manager, cat, logger, registry, bus)
	manager.OnMessage(session.HandleMessage)
	manager.OnMessage(func(msg protocol.Message) {
		if push, ok := msg.(protocol.NodeRegistry); ok {
			cat.RefreshFromRegistry(push.Raw)
		}
	})

	store, err := workspace.NewFileStore(
		workspace.FileStoreConfig{Dir: *nexusDir}, logger, registry)
	if err != nil {
		log.Fatalf("Failed to open nexus directory: %v", err)
	}

	if err := manager.Start(); err != nil {
		log.Fatalf("Failed to start connection: %v", err)
	}
	defer manager.Close()

	p := tea.NewProgram(
		initialModel(manager, session, store, cat, registry, bus),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		log.Fatalf("TUI failed: %v", err)
	}
}
