package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `long:"config" short:"c" default:"crawler.json" description:"Configuration file"`

	Setup SetupCommand `command:"setup" description:"Find the servo bus, calibrate the legs and configure peripherals"`
	Run   RunCommand   `command:"run" alias:"drive" description:"Drive the crawler (manual, mapping and phone finding)"`
	Scan  ScanCommand  `command:"scan" description:"List nearby Bluetooth devices to find the phone address"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Crawler - four-legged room mapper and phone finder"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
