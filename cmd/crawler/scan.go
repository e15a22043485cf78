package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/crawler/pkg/device"
	"github.com/gwillem/crawler/pkg/robot"
)

type ScanCommand struct {
	Seconds int  `long:"seconds" short:"s" default:"5" description:"How long to listen"`
	Save    bool `long:"save" description:"Pick a device and store it as the phone to find"`
}

func (c *ScanCommand) Execute(args []string) error {
	window := time.Duration(c.Seconds) * time.Second
	scanner, err := device.NewBLEScanner(window)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Listening for Bluetooth devices for %s...\n\n", window)
	ctx, cancel := context.WithTimeout(context.Background(), window+5*time.Second)
	defer cancel()
	seen, err := scanner.Discover(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning: %v\n", err)
		os.Exit(1)
	}
	if len(seen) == 0 {
		fmt.Println("No devices found. Is Bluetooth on at the phone?")
		return nil
	}

	var current string
	if robot.ConfigExistsAt(opts.Config) {
		if cfg, err := robot.LoadConfigFrom(opts.Config); err == nil {
			current = cfg.Phone.Address
		}
	}

	fmt.Println(deviceTable(seen, current))

	if !c.Save {
		return nil
	}
	return savePhone(seen, current)
}

func deviceTable(seen []device.Seen, current string) string {
	rows := make([][]string, 0, len(seen))
	for _, d := range seen {
		name := d.Name
		if name == "" {
			name = "-"
		}
		rows = append(rows, []string{d.Address, name, strconv.Itoa(int(d.RSSI))})
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Address", "Name", "RSSI").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if row >= 0 && row < len(seen) && device.SameAddress(seen[row].Address, current) {
				return successStyle.Padding(0, 1)
			}
			return cell
		}).
		Render()
}

func savePhone(seen []device.Seen, current string) error {
	var options []huh.Option[string]
	for _, d := range seen {
		label := fmt.Sprintf("%s  %s (%d dBm)", d.Address, d.Name, d.RSSI)
		options = append(options, huh.NewOption(label, d.Address).Selected(device.SameAddress(d.Address, current)))
	}

	var address string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which device is the phone?").
				Options(options...).
				Value(&address),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	cfg := robot.DefaultConfig()
	if robot.ConfigExistsAt(opts.Config) {
		existing, err := robot.LoadConfigFrom(opts.Config)
		if err != nil {
			return err
		}
		cfg = existing
	}
	cfg.Phone.Address = address
	if err := cfg.SaveTo(opts.Config); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("Phone set to " + address))
	return nil
}
