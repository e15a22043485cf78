package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/crawler/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// servoCount is the number of servos on the crawler bus, IDs 1-12.
const servoCount = 12

type SetupCommand struct {
	SkipCalibration bool `long:"skip-calibration" description:"Keep the current servo calibration and only edit peripherals"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Crawler Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg := robot.DefaultConfig()
	if robot.ConfigExistsAt(opts.Config) {
		existing, err := robot.LoadConfigFrom(opts.Config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", opts.Config, err)
			os.Exit(1)
		}
		cfg = existing
		fmt.Printf("Editing %s\n\n", opts.Config)
	}

	if !c.SkipCalibration {
		// Step 1: Find the servo bus
		if port := scanForCrawler(); port != "" {
			cfg.Servo.Port = port

			// Step 2: Calibrate the legs
			fmt.Println()
			fmt.Println(subHeaderStyle.Render("━━━ Calibrating Legs ━━━"))
			fmt.Println()
			cfg.Servo.Calibration = calibrateLegs(port)

			// Save after calibration
			if err := cfg.SaveTo(opts.Config); err != nil {
				fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
				os.Exit(1)
			}
		}
	}

	// Step 3: Peripherals
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Peripherals ━━━"))
	fmt.Println()
	if err := configurePeripherals(cfg); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Save final config
	if err := cfg.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	if !cfg.HasServos() {
		fmt.Println("Servos are not calibrated yet; try the simulator with: " + headerStyle.Render("crawler run --sim"))
	} else {
		fmt.Println("Start driving with: " + headerStyle.Render("crawler run"))
	}

	return nil
}

// scanForCrawler returns the port of the servo bus, or "" when the user
// continues without one.
func scanForCrawler() string {
	fmt.Println("Scanning for the crawler servo bus...")
	fmt.Println()

	ports := findCrawlers()

	switch len(ports) {
	case 0:
		fmt.Println("No crawler found.")
		fmt.Println("Make sure the servo board is connected and powered on.")
		var proceed bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Continue without servos?").
					Description("Peripherals can still be configured").
					Affirmative("Continue").
					Negative("Quit").
					Value(&proceed),
			),
		)
		if err := form.Run(); err != nil || !proceed {
			fmt.Println()
			os.Exit(1)
		}
		return ""
	case 1:
		fmt.Println(successStyle.Render("Crawler found on " + ports[0]))
		return ports[0]
	}

	var options []huh.Option[string]
	for _, p := range ports {
		options = append(options, huh.NewOption(p, p))
	}
	var port string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which bus drives the crawler?").
				Description(fmt.Sprintf("Found %d boards with %d servos", len(ports), servoCount)).
				Options(options...).
				Value(&port),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return port
}

func openBus(port string) (*feetech.Bus, error) {
	return feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
}

func findCrawlers() []string {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var found []string
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		bus, err := openBus(port)
		if err != nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		servos, err := bus.Scan(ctx, 1, servoCount)
		cancel()
		bus.Close()

		if err == nil && isCrawler(servos) {
			fmt.Printf("  Found crawler on %s\n", port)
			found = append(found, port)
		}
	}
	return found
}

// isCrawler reports whether servos are exactly IDs 1-12.
func isCrawler(servos []feetech.FoundServo) bool {
	if len(servos) != servoCount {
		return false
	}

	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}
	for i := 1; i <= servoCount; i++ {
		if !ids[i] {
			return false
		}
	}
	return true
}

func calibrateLegs(port string) robot.Calibration {
	bus, err := openBus(port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to crawler: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	found, err := bus.Scan(ctx, 1, servoCount)
	cancel()
	if err != nil || !isCrawler(found) {
		fmt.Fprintf(os.Stderr, "Error connecting to crawler: expected %d servos with IDs 1-%d\n", servoCount, servoCount)
		os.Exit(1)
	}

	servoMap := make(map[int]*feetech.Servo)
	for _, s := range found {
		servoMap[s.ID] = feetech.NewServo(bus, s.ID, s.Model)
	}

	// Relax all servos so the legs move freely by hand
	for _, servo := range servoMap {
		servo.Disable(context.Background())
	}

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move every hip, femur and tibia to its minimum AND maximum position.")
	fmt.Println("Support the body so the legs hang free.")
	fmt.Println()

	joints := robot.AllJoints()
	model := newCalibrationModel(joints, servoMap)
	p := tea.NewProgram(model)
	finalModel, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running calibration: %v\n", err)
		os.Exit(1)
	}
	cm := finalModel.(calibrationModel)

	cal := make(robot.Calibration, len(joints))
	for i, name := range joints {
		cal[name] = robot.JointCalibration{
			ID:       i + 1,
			RangeMin: cm.minPositions[name],
			RangeMax: cm.maxPositions[name],
		}
	}
	fmt.Println()
	fmt.Println("Legs calibrated.")
	return cal
}

func configurePeripherals(cfg *robot.Config) error {
	address := fmt.Sprintf("0x%02X", cfg.Display.Address)
	behavior := cfg.Control.InitialBehavior

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Phone Bluetooth address").
				Description("Run 'crawler scan' to find it").
				Placeholder("DC:C4:9C:77:4E:43").
				Value(&cfg.Phone.Address),
			huh.NewInput().
				Title("Sonar trigger pin").
				Value(&cfg.Sonar.TriggerPin).
				Validate(notEmpty),
			huh.NewInput().
				Title("Sonar echo pin").
				Value(&cfg.Sonar.EchoPin).
				Validate(notEmpty),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Needle display I2C address").
				Value(&address).
				Validate(func(s string) error {
					_, err := parseI2CAddress(s)
					return err
				}),
			huh.NewInput().
				Title("Camera device").
				Value(&cfg.Camera.Device),
			huh.NewSelect[string]().
				Title("Autonomous behavior at startup").
				Options(
					huh.NewOption("Mapping (explore and record the room)", "mapping"),
					huh.NewOption("Phone finding (approach the phone)", "phone"),
				).
				Value(&behavior),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Display.Address, _ = parseI2CAddress(address)
	cfg.Control.InitialBehavior = behavior
	return nil
}

func notEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}
	return nil
}

// parseI2CAddress accepts "0x3C", "3c" or "60".
func parseI2CAddress(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		s, base = s[2:], 16
	} else if strings.ContainsAny(strings.ToLower(s), "abcdef") {
		base = 16
	}
	v, err := strconv.ParseUint(s, base, 16)
	if err != nil {
		return 0, fmt.Errorf("not an address: %q", s)
	}
	if v < 0x03 || v > 0x77 {
		return 0, fmt.Errorf("address 0x%02X outside 0x03-0x77", v)
	}
	return uint16(v), nil
}

// Calibration TUI model
type calibrationModel struct {
	joints       []robot.JointName
	servoMap     map[int]*feetech.Servo
	curPositions map[robot.JointName]int
	minPositions map[robot.JointName]int
	maxPositions map[robot.JointName]int
	quitting     bool
}

type tickMsg time.Time

func newCalibrationModel(joints []robot.JointName, servoMap map[int]*feetech.Servo) calibrationModel {
	m := calibrationModel{
		joints:       joints,
		servoMap:     servoMap,
		curPositions: make(map[robot.JointName]int),
		minPositions: make(map[robot.JointName]int),
		maxPositions: make(map[robot.JointName]int),
	}
	ctx := context.Background()
	for i, name := range joints {
		pos, _ := servoMap[i+1].Position(ctx)
		m.curPositions[name] = pos
		m.minPositions[name] = pos
		m.maxPositions[name] = pos
	}
	return m
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for i, name := range m.joints {
			pos, err := m.servoMap[i+1].Position(ctx)
			if err != nil {
				continue
			}
			m.curPositions[name] = pos
			m.minPositions[name] = min(m.minPositions[name], pos)
			m.maxPositions[name] = max(m.maxPositions[name], pos)
		}
		return m, tick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	headerCell := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	jointCell := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	plainCell := lipgloss.NewStyle().Padding(0, 1)
	currentCell := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	goodCell := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	lowCell := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.joints))
	ranges := make([]int, 0, len(m.joints))
	for i, name := range m.joints {
		r := m.maxPositions[name] - m.minPositions[name]
		ranges = append(ranges, r)
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(name),
			strconv.Itoa(m.curPositions[name]),
			strconv.Itoa(m.minPositions[name]),
			strconv.Itoa(m.maxPositions[name]),
			strconv.Itoa(r),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "Joint", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			switch col {
			case 1:
				return jointCell
			case 2:
				return currentCell
			case 5:
				// leg joints travel less than an arm, 300 steps is plenty
				if row >= 0 && row < len(ranges) && ranges[row] > 300 {
					return goodCell
				}
				return lowCell
			default:
				return plainCell
			}
		})

	return t.Render() + "\n\n" + dimStyle.Render("Press Enter when done")
}
