package sim

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"drivepilot-sim/internal/config"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// trackMsg carries a track log line and row data.
type trackMsg struct {
	line string
	row  TrackRow
}

// decisionMsg carries a decision log line and row data.
type decisionMsg struct {
	line string
	row  DecisionRow
}

// alertMsg carries an alert log line.
type alertMsg struct{ line string }

// adminMsg reports admin UI status.
type adminMsg struct{ active bool }

type setSpawnMsg struct {
	fn func(typ string, rangeM, bearingDeg, speedMPS, headingDeg float64, size string)
}

type setToggleMsg struct{ fn func() bool }

type detectionStateMsg struct{ enabled bool }

const (
	fallbackSpawnInput  = "pedestrian,40,10,1.5,180"
	maxSectionHeightPct = 0.2
	logBacklog          = 1000
)

// TUIWriter renders the pipeline using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.SimulationConfig) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	m := newTUIModel(cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	go func() {
		_ = p.Start()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WriteTrack implements TrackWriter.
func (w *TUIWriter) WriteTrack(row TrackRow) error {
	cColor := classColor(row.Class)
	line := fmt.Sprintf("%s[%s]%s %strack=%s%s %sclass=%s(%.2f)%s %sx=%.1f%s %sy=%.1f%s %svx=%.1f vy=%.1f%s %srange=%.1f%s %sage=%d%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorWhite(), shortID(row.TrackID), colorReset,
		cColor, row.Class, row.ClassProb, colorReset,
		colorGreen, row.X, colorReset,
		colorYellow, row.Y, colorReset,
		colorCyan, row.VX, row.VY, colorReset,
		colorMagenta, row.RangeM, colorReset,
		colorGray, row.Age, colorReset)
	if row.Degraded {
		line += fmt.Sprintf(" %sdegraded%s", colorRed, colorReset)
	}
	w.program.Send(trackMsg{line: line, row: row})
	return nil
}

// WriteTracks outputs multiple track rows.
func (w *TUIWriter) WriteTracks(rows []TrackRow) error {
	for _, r := range rows {
		_ = w.WriteTrack(r)
	}
	return nil
}

// WriteDecision implements DecisionWriter.
func (w *TUIWriter) WriteDecision(d DecisionRow) error {
	label := "DECISION"
	if d.Aggregate {
		label = "CONTROL"
	}
	line := fmt.Sprintf("%s[%s]%s %s%s%s track=%s %s%s%s %s",
		colorGray, d.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, label, colorReset, shortID(d.TrackID),
		actionColor(d.Action), d.Action, colorReset, d.Justification)
	w.program.Send(decisionMsg{line: line, row: d})
	return nil
}

// WriteDecisions outputs multiple decision rows.
func (w *TUIWriter) WriteDecisions(rows []DecisionRow) error {
	for _, d := range rows {
		_ = w.WriteDecision(d)
	}
	return nil
}

// WriteAlert implements AlertWriter.
func (w *TUIWriter) WriteAlert(a AlertRow) error {
	line := fmt.Sprintf("%s[%s]%s %sALERT%s track=%s %s%s -> %s%s %s",
		colorGray, a.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, colorReset, shortID(a.TrackID),
		actionColor(a.To), a.From, a.To, colorReset, a.Message)
	w.program.Send(alertMsg{line: line})
	return nil
}

// SetAdminStatus updates the admin UI indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// SetSpawner registers a callback to inject obstacles.
func (w *TUIWriter) SetSpawner(fn func(typ string, rangeM, bearingDeg, speedMPS, headingDeg float64, size string)) {
	w.program.Send(setSpawnMsg{fn: fn})
}

// SetDetectionToggler registers a callback to flip obstacle detection.
func (w *TUIWriter) SetDetectionToggler(fn func() bool) {
	w.program.Send(setToggleMsg{fn: fn})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type tuiModel struct {
	cfg          *config.SimulationConfig
	table        table.Model
	vp           viewport.Model
	decVP        viewport.Model
	alertVP      viewport.Model
	logs         []string
	decLogs      []string
	alertLogs    []string
	aggregate    string
	trackCounts  map[string]string // track id -> class
	totalAlerts  int
	admin        bool
	detection    bool
	wrap         bool
	autoscroll   bool
	header       string
	headerHeight int
	height       int

	spawn       func(typ string, rangeM, bearingDeg, speedMPS, headingDeg float64, size string)
	toggle      func() bool
	spawnInput  textinput.Model
	spawnDialog bool
	help        bool
}

func newTUIModel(cfg *config.SimulationConfig) tuiModel {
	cols := []table.Column{
		{Title: "Config", Width: 24},
		{Title: "Value", Width: 10},
		{Title: "Config", Width: 24},
		{Title: "Value", Width: 10},
	}
	rows := []table.Row{
		{"Vehicle Speed (m/s)", fmt.Sprintf("%.1f", cfg.Vehicle.SpeedMPS), "Low Light", fmt.Sprintf("%t", cfg.Environment.LowLight)},
		{"Pedestrian Threshold", fmt.Sprintf("%.2f", cfg.Policy.PedestrianThreshold), "Animal Threshold", fmt.Sprintf("%.2f", cfg.Policy.AnimalThreshold)},
		{"Static Confidence", fmt.Sprintf("%.2f", cfg.Policy.StaticConfidence), "Hysteresis Margin", fmt.Sprintf("%.2f", cfg.Policy.HysteresisMargin)},
		{"Gating Distance (m)", fmt.Sprintf("%.1f", cfg.Fusion.GatingDistanceM), "Staleness (ticks)", fmt.Sprintf("%d", cfg.Fusion.StalenessTicks)},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	return tuiModel{
		cfg:         cfg,
		table:       t,
		vp:          viewport.New(0, 0),
		decVP:       viewport.New(0, 0),
		alertVP:     viewport.New(0, 0),
		trackCounts: make(map[string]string),
		aggregate:   "no_action",
		detection:   true,
		autoscroll:  true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.decVP.Width = msg.Width
		m.alertVP.Width = msg.Width
		m.height = msg.Height
		m.header = m.table.View()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
		m.refreshDecisions()
		m.refreshAlerts()
	case tea.KeyMsg:
		if m.spawnDialog {
			switch msg.Type {
			case tea.KeyEnter:
				typ, rangeM, bearing, speed, heading, err := parseSpawnInput(m.spawnInput.Value())
				if err == nil && m.spawn != nil {
					go m.spawn(typ, rangeM, bearing, speed, heading, "medium")
				}
				m.spawnDialog = false
				m.updateViewportHeight()
			case tea.KeyEsc:
				m.spawnDialog = false
				m.updateViewportHeight()
			default:
				var cmd tea.Cmd
				m.spawnInput, cmd = m.spawnInput.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
				m.decVP.GotoBottom()
				m.alertVP.GotoBottom()
			}
			return m, nil
		case "o":
			m.spawnInput = textinput.New()
			m.spawnInput.Placeholder = "type,range_m,bearing_deg,speed_mps,heading_deg"
			m.spawnInput.SetValue(fallbackSpawnInput)
			m.spawnInput.CursorEnd()
			m.spawnInput.Focus()
			m.spawnDialog = true
			m.updateViewportHeight()
			return m, nil
		case "d":
			if m.toggle != nil {
				m.detection = m.toggle()
			}
			return m, nil
		case "h", "?":
			m.help = !m.help
			m.updateViewportHeight()
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		return m, nil
	case trackMsg:
		m.logs = appendCapped(m.logs, msg.line)
		m.trackCounts[msg.row.TrackID] = msg.row.Class
		m.refreshViewport()
	case decisionMsg:
		m.decLogs = appendCapped(m.decLogs, msg.line)
		if msg.row.Aggregate {
			m.aggregate = msg.row.Action
		}
		m.updateViewportHeight()
		m.refreshDecisions()
		m.refreshViewport()
	case alertMsg:
		m.alertLogs = appendCapped(m.alertLogs, msg.line)
		m.totalAlerts++
		m.updateViewportHeight()
		m.refreshAlerts()
		m.refreshViewport()
	case adminMsg:
		m.admin = msg.active
	case detectionStateMsg:
		m.detection = msg.enabled
	case setSpawnMsg:
		m.spawn = msg.fn
	case setToggleMsg:
		m.toggle = msg.fn
	}
	return m, nil
}

func appendCapped(logs []string, line string) []string {
	logs = append(logs, line)
	if len(logs) > logBacklog {
		logs = logs[len(logs)-logBacklog:]
	}
	return logs
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())
	maxLines := m.maxSectionLines()

	decLines := len(m.decLogs)
	if decLines == 0 {
		decLines = 1
	}
	if decLines > maxLines {
		decLines = maxLines
	}
	m.decVP.Height = decLines

	alertLines := len(m.alertLogs)
	if alertLines == 0 {
		alertLines = 1
	}
	if alertLines > maxLines {
		alertLines = maxLines
	}
	m.alertVP.Height = alertLines

	h := m.height - m.headerHeight - bottomHeight - (1 + m.decVP.Height) - (1 + m.alertVP.Height) - 5
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
		m.decVP.GotoBottom()
		m.alertVP.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshDecisions() {
	content := "none"
	if len(m.decLogs) > 0 {
		content = strings.Join(m.decLogs, "\n")
	}
	m.decVP.SetContent(content)
	if m.autoscroll {
		m.decVP.GotoBottom()
	}
}

func (m *tuiModel) refreshAlerts() {
	content := "none"
	if len(m.alertLogs) > 0 {
		content = strings.Join(m.alertLogs, "\n")
	}
	m.alertVP.SetContent(content)
	if m.autoscroll {
		m.alertVP.GotoBottom()
	}
}

func (m tuiModel) maxSectionLines() int {
	h := int(float64(m.height) * maxSectionHeightPct)
	if h < 1 {
		h = 1
	}
	return h
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.header,
		divider,
		m.vp.View(),
		divider,
		"Decisions:",
		m.decVP.View(),
		divider,
		"Alerts:",
		m.alertVP.View(),
	}
	if m.spawnDialog {
		sections = append(sections, divider,
			fmt.Sprintf("Spawn Obstacle (type,range_m,bearing_deg,speed_mps,heading_deg) - Enter to spawn, Esc to cancel: %s", m.spawnInput.View()))
	}
	sections = append(sections, divider, m.renderBottom())
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderBottom() string {
	adminColor := lipgloss.Color("9")
	if m.admin {
		adminColor = lipgloss.Color("10")
	}
	detColor := lipgloss.Color("9")
	if m.detection {
		detColor = lipgloss.Color("10")
	}
	wrapColor := lipgloss.Color("9")
	if m.wrap {
		wrapColor = lipgloss.Color("10")
	}
	scrollColor := lipgloss.Color("10")
	if !m.autoscroll {
		scrollColor = lipgloss.Color("9")
	}
	adminInd := lipgloss.NewStyle().Foreground(adminColor).Render("●")
	detInd := lipgloss.NewStyle().Foreground(detColor).Render("●")
	wrapInd := lipgloss.NewStyle().Foreground(wrapColor).Render("●")
	scrollInd := lipgloss.NewStyle().Foreground(scrollColor).Render("●")
	state := fmt.Sprintf("%sCONTROL%s %s%s%s %stracks=%d%s %salerts=%d%s",
		colorBlue, colorReset,
		actionColor(m.aggregate), m.aggregate, colorReset,
		colorGreen, len(m.trackCounts), colorReset,
		colorRed, m.totalAlerts, colorReset)
	return fmt.Sprintf("%s | Admin UI %s | Detection %s | Wrap %s | Scroll %s", state, adminInd, detInd, wrapInd, scrollInd)
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap for track log",
		" s  toggle auto-scroll",
		" o  spawn obstacle (type,range_m,bearing_deg,speed_mps,heading_deg)",
		" d  toggle obstacle detection",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}

func parseSpawnInput(val string) (typ string, rangeM, bearingDeg, speedMPS, headingDeg float64, err error) {
	parts := strings.Split(val, ",")
	if len(parts) < 3 {
		return "", 0, 0, 0, 0, fmt.Errorf("expected type,range_m,bearing_deg[,speed_mps,heading_deg]")
	}
	typ = strings.TrimSpace(parts[0])
	if rangeM, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return "", 0, 0, 0, 0, err
	}
	if bearingDeg, err = strconv.ParseFloat(strings.TrimSpace(parts[2]), 64); err != nil {
		return "", 0, 0, 0, 0, err
	}
	if len(parts) > 3 {
		if speedMPS, err = strconv.ParseFloat(strings.TrimSpace(parts[3]), 64); err != nil {
			return "", 0, 0, 0, 0, err
		}
	}
	if len(parts) > 4 {
		if headingDeg, err = strconv.ParseFloat(strings.TrimSpace(parts[4]), 64); err != nil {
			return "", 0, 0, 0, 0, err
		}
	}
	return typ, rangeM, bearingDeg, speedMPS, headingDeg, nil
}
