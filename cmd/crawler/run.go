package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/crawler/pkg/control"
	"github.com/gwillem/crawler/pkg/gridmap"
	"github.com/gwillem/crawler/pkg/robot"
	"github.com/gwillem/crawler/pkg/telemetry"
)

type RunCommand struct {
	Sim      bool   `long:"sim" description:"Run against simulated devices"`
	IdleTick int    `long:"idle-tick" default:"-1" description:"Milliseconds to wait for a key before the next autonomous step (overrides config, 0 waits forever)"`
	LogFile  string `long:"log" default:"crawler.log" description:"Log file"`
	Debug    bool   `long:"debug" description:"Log every step"`
}

const (
	headerHeight = 3 // title + status + blank line
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
	maxDistance  = 150
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	visitedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
)

type runModel struct {
	coord    *control.Coordinator
	input    *control.ChanInput
	cancel   context.CancelFunc
	chart    *streamlinechart.Model
	last     *control.Snapshot
	width    int // terminal width
	height   int // terminal height
	logs     []string
	quitting bool
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the coordinator
type stateMsg control.Snapshot
type logMsg string

func waitForState(coord *control.Coordinator) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-coord.States())
	}
}

func waitForLog(coord *control.Coordinator) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-coord.Logs())
	}
}

// chartSize leaves room for the mini-map to the right of the chart.
func (m *runModel) chartSize(mapWidth int) (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 60, 16 // default size before we know terminal size
	}
	width = m.width - mapWidth - 2*borderSize - 4
	if width < 30 {
		width = 30
	}
	height = m.height - headerHeight - footerHeight - borderSize - 2
	if height < 8 {
		height = 8
	}
	return width, height
}

func (m *runModel) resizeChart() {
	w, h := m.chartSize(m.mapWidth())
	m.chart.Resize(w, h)
}

func (m *runModel) mapWidth() int {
	if m.last == nil || m.last.Grid == nil {
		return gridmap.DefaultWidth * 2
	}
	return m.last.Grid.Width() * 2
}

func initialRunModel(coord *control.Coordinator, input *control.ChanInput, cancel context.CancelFunc) runModel {
	chart := streamlinechart.New(60, 16,
		streamlinechart.WithYRange(0, maxDistance),
	)
	chart.SetDataSetStyles("distance", runes.ThinLineStyle, activeStyle)

	return runModel{
		coord:  coord,
		input:  input,
		cancel: cancel,
		chart:  &chart,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.coord),
		waitForLog(m.coord),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}
		if !m.input.Send(msg.String()) {
			m.addLog("Busy, key dropped: " + msg.String())
		}
		return m, nil

	case stateMsg:
		s := control.Snapshot(msg)
		if s.Decision != "" && s.DistanceOK {
			m.chart.PushDataSet("distance", min(s.Distance, maxDistance))
			m.chart.DrawAll()
		}
		m.last = &s
		return m, waitForState(m.coord)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.coord)
	}

	return m, nil
}

func (m runModel) View() string {
	if m.quitting {
		return "Crawler stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Crawler"))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(renderStatus(m.last))
	sb.WriteString("\n\n")

	var grid *gridmap.Grid
	var cursor gridmap.Point
	if m.last != nil {
		grid, cursor = m.last.Grid, m.last.Cursor
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		chartStyle.Render(m.chart.View()),
		" ",
		chartStyle.Render(renderMap(grid, cursor)),
	))
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("w/s/a/d move  1-0 speed  m auto  t behavior  c camera  p picture  q quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderStatus(s *control.Snapshot) string {
	if s == nil {
		return statusStyle.Render("Waiting for the first tick (press a key)...")
	}
	driver := "manual"
	if s.Supervision == control.Autonomous.String() {
		driver = activeStyle.Render("autonomous: " + s.Behavior)
	} else {
		driver += statusStyle.Render(" (" + s.Behavior + " selected)")
	}
	camera := "off"
	if s.CameraOn {
		camera = activeStyle.Render("on")
	}
	distance := "-"
	if s.Decision != "" {
		distance = "invalid"
		if s.DistanceOK {
			distance = fmt.Sprintf("%.1f cm", s.Distance)
		}
	}
	parts := []string{
		driver,
		fmt.Sprintf("speed %d%%", s.Speed),
		fmt.Sprintf("heading %.0f°", s.Heading),
		"at " + s.Cursor.String(),
		fmt.Sprintf("visited %d", s.Visited),
		"distance " + distance,
		"camera " + camera,
	}
	if s.Behavior == "phone finding" && s.Decision != "" {
		if s.PhoneFound {
			parts = append(parts, activeStyle.Render("phone seen"))
		} else {
			parts = append(parts, "phone not seen")
		}
	}
	return strings.Join(parts, statusStyle.Render(" │ "))
}

// renderMap draws the grid with forward (+y) pointing up.
func renderMap(g *gridmap.Grid, cursor gridmap.Point) string {
	if g == nil {
		g = gridmap.New(gridmap.DefaultWidth, gridmap.DefaultHeight)
	}
	var sb strings.Builder
	for y := g.Height() - 1; y >= 0; y-- {
		for x := 0; x < g.Width(); x++ {
			p := gridmap.Point{X: x, Y: y}
			switch c, _ := g.At(p); {
			case p == cursor:
				sb.WriteString(cursorStyle.Render("◆ "))
			case c == gridmap.Visited:
				sb.WriteString(visitedStyle.Render("█ "))
			default:
				sb.WriteString(statusStyle.Render("· "))
			}
		}
		if y > 0 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (c *RunCommand) loadConfig() (*robot.Config, error) {
	if !robot.ConfigExistsAt(opts.Config) {
		if c.Sim {
			return robot.DefaultConfig(), nil
		}
		return nil, fmt.Errorf("no configuration at %s, run 'crawler setup' first (or use --sim)", opts.Config)
	}
	return robot.LoadConfigFrom(opts.Config)
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if c.IdleTick >= 0 {
		cfg.Control.IdleTickMs = c.IdleTick
	}

	logFile, err := setupLogging(c.LogFile, c.Debug)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	grid, err := gridmap.Load(cfg.Map.File, cfg.Map.Width, cfg.Map.Height)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\nMove the file aside to start a new map.\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded configuration from %s, map %s (%d visited)\n", opts.Config, cfg.Map.File, grid.Count(gridmap.Visited))

	var hw *hardware
	if c.Sim {
		hw = openSimulation()
	} else if hw, err = openHardware(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer hw.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The saver outlives the loop so the final map is written
	saver := gridmap.NewSaver(cfg.Map.File)
	saverCtx, stopSaver := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		saver.Run(saverCtx)
	}()

	input := control.NewChanInput(16)
	coord := control.NewCoordinator(control.ConfigFrom(cfg), hw.devices, grid, input, saver)

	if cfg.Telemetry.MQTTBroker != "" {
		pub, err := telemetry.NewMQTTPublisher(cfg.Telemetry.MQTTBroker, cfg.Telemetry.MQTTClientID, cfg.Telemetry.MQTTTopic)
		if err != nil {
			slog.Warn("mqtt telemetry disabled", "err", err)
		} else {
			defer pub.Close()
			coord.AddSink(pub)
		}
	}
	if cfg.Telemetry.HTTPAddr != "" {
		hub := telemetry.NewHub()
		if hw.camera != nil {
			hub.SetFrameSource(hw.camera.Frame)
		}
		coord.AddSink(hub)
		go func() {
			if err := telemetry.Serve(ctx, cfg.Telemetry.HTTPAddr, hub.Handler()); err != nil {
				slog.Warn("live view stopped", "addr", cfg.Telemetry.HTTPAddr, "err", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := coord.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("control loop stopped", "err", err)
		}
	}()

	p := tea.NewProgram(initialRunModel(coord, input, cancel), tea.WithAltScreen())
	go func() {
		// SIGTERM ends the loop; take the TUI down with it
		<-ctx.Done()
		p.Quit()
	}()
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}

	cancel()
	<-done
	stopSaver()
	wg.Wait()

	if err := saver.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Last map save failed: %v\n", err)
	} else {
		fmt.Printf("Map saved to %s (%d visited)\n", cfg.Map.File, grid.Count(gridmap.Visited))
	}
	return nil
}
