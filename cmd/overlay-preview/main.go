// Command overlay-preview runs the reconciliation engine against a scripted
// host in a terminal, so roster churn, protected-mode windows, and the
// safety-net ladder can be watched without an embedding application.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"partyframes/overlay"
	"partyframes/overlay/internal/hostsim"
	"partyframes/overlay/logging"
)

const tickInterval = 100 * time.Millisecond

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	slotStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bindingsStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type tickMsg time.Time

type model struct {
	engine *overlay.Engine
	host   *hostsim.Host
	clock  *hostsim.Clock

	members  []memberScript
	churnIdx int
	err      error
}

type memberScript struct {
	slot    overlay.Slot
	element *overlay.Element
	present bool
}

func newModel(members int) model {
	host := hostsim.New()
	clock := hostsim.NewClock(time.Now())

	cfg := overlay.DefaultConfig()
	cfg.Members = members
	cfg.Logging.Sinks = nil

	scripts := make([]memberScript, 0, members)
	host.AddElement("HostFrameSelf", overlay.SlotSelf, "gid-self")
	for i := 1; i <= members; i++ {
		slot := overlay.MemberSlot(i)
		el := host.AddElement(fmt.Sprintf("HostFrame%d", i), slot, overlay.GlobalID(fmt.Sprintf("gid-%d", i)))
		scripts = append(scripts, memberScript{slot: slot, element: el, present: true})
	}

	engine, err := overlay.NewEngine(cfg, overlay.Deps{
		Host:      host,
		Updater:   overlay.NopUpdater{},
		Publisher: logging.NopPublisher(),
		Metrics:   &logging.Metrics{},
		Clock:     clock,
	})
	m := model{engine: engine, host: host, clock: clock, members: scripts, err: err}
	if err == nil {
		engine.NotifyRosterChanged()
	}
	return m
}

func (m model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.err != nil {
		return m, tea.Quit
	}
	switch msg := msg.(type) {
	case tickMsg:
		now := m.clock.Advance(tickInterval)
		m.engine.Tick(now)
		return m, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "p":
			protected := !m.engine.Snapshot().Protected
			m.host.SetProtected(protected)
			if !protected {
				m.engine.NotifyProtectedModeExited()
			}
		case "r":
			m.churnRoster()
		case "v":
			m.engine.SetVisibilityDriver(m.engine.DriverState(overlay.MemberSlot(1)) == overlay.DriverUnmanaged)
		case "o":
			m.engine.SetPreview(!m.engine.Preview())
		case "f":
			for _, slot := range m.engine.Slots() {
				m.engine.RequestRefresh(slot, overlay.IntentAll)
			}
		}
	}
	return m, nil
}

// churnRoster toggles the next member in and out of the group.
func (m *model) churnRoster() {
	if len(m.members) == 0 {
		return
	}
	script := &m.members[m.churnIdx]
	m.churnIdx = (m.churnIdx + 1) % len(m.members)

	script.present = !script.present
	m.host.SetKnown(string(script.slot), script.present)
	m.host.HideFromEnumeration(script.element, !script.present)
	m.engine.NotifyRosterChanged()
}

func (m model) View() string {
	if m.err != nil {
		return warnStyle.Render(fmt.Sprintf("engine init failed: %v\n", m.err))
	}

	snapshot := m.engine.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render("overlay preview"))
	b.WriteString("  ")
	if snapshot.Protected {
		b.WriteString(warnStyle.Render("[protected]"))
	} else {
		b.WriteString(dimStyle.Render("[safe]"))
	}
	if snapshot.Preview {
		b.WriteString(" " + pendingStyle.Render("[preview pool]"))
	}
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-12s %-16s %-12s %s", "SLOT", "ELEMENT", "GLOBAL ID", "DRIVER")))
	b.WriteString("\n")
	mapped := make(map[overlay.Slot]overlay.SlotAssignment, len(snapshot.Assignments))
	for _, row := range snapshot.Assignments {
		mapped[row.Slot] = row
	}
	for _, slot := range m.engine.Slots() {
		if row, ok := mapped[slot]; ok {
			b.WriteString(slotStyle.Render(fmt.Sprintf("%-12s %-16s %-12s %s", row.Slot, row.Element, row.GlobalID, row.DriverState)))
		} else {
			b.WriteString(dimStyle.Render(fmt.Sprintf("%-12s %-16s %-12s %s", slot, "-", "-", "-")))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(pendingStyle.Render(fmt.Sprintf("pending=%d", snapshot.Pending)))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  gen=%d rebuilds=%d deferred=%d replayed=%d unresolved=%d",
		snapshot.Generation, snapshot.Stats.Rebuilds, snapshot.Stats.Deferred, snapshot.Stats.Replayed, snapshot.Stats.Unresolved)))
	b.WriteString(bindingsStyle.Render("\n[p] protected  [r] roster churn  [v] driver  [o] preview pool  [f] refresh all  [q] quit"))
	b.WriteString("\n")
	return b.String()
}

func main() {
	var members int
	flag.IntVar(&members, "members", 4, "number of member slots besides self")
	flag.Parse()

	program := tea.NewProgram(newModel(members))
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "preview failed: %v\n", err)
		os.Exit(1)
	}
}
