// Package crawler drives a four-legged crawler robot that maps a room and
// finds a phone by its Bluetooth address.
//
// The robot walks on twelve Feetech servos, ranges obstacles with an
// ultrasonic sensor, shows the direction it is heading on a small OLED
// needle gauge and records every grid cell it has walked over.
//
// # Installation
//
//	go install github.com/gwillem/crawler/cmd/crawler@latest
//
// # Usage
//
// First, run setup to find the servo bus, calibrate the legs and configure
// the peripherals:
//
//	crawler setup
//
// Find the phone's Bluetooth address:
//
//	crawler scan --save
//
// Then drive. The crawler starts under manual control; press m to hand
// over to the autonomous loop and t to switch between mapping and phone
// finding:
//
//	crawler run
//
// Without hardware, the whole loop runs against simulated devices:
//
//	crawler run --sim --idle-tick 300
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/crawler: CLI with setup, run and scan commands
//   - pkg/heading: Orientation tracking in degrees
//   - pkg/gridmap: Room grid, cursor and map persistence
//   - pkg/robot: Device contracts, leg gaits, calibration and configuration
//   - pkg/autonomy: Mapping and phone finding steps, recalibration timer
//   - pkg/control: Mode switching, key handling and the control loop
//   - pkg/device: Sonar, needle display, Bluetooth, audio, camera and simulation
//   - pkg/telemetry: MQTT and websocket state publishing
package crawler
