package vehicle

import (
	"fmt"
	"os"
	"sync"

	"go.bug.st/serial"

	"github.com/teslashibe/go-rover/internal/log"
)

// Serial ports probed when no VESC port is configured, in order.
var defaultVESCPorts = []string{
	"/dev/ttyACM0",
	"/dev/ttyUSB0",
	"/dev/ttyACM1",
	"/dev/ttyUSB1",
}

// VESC drives the motors through the VESC bridge firmware over a serial
// line. The firmware takes newline-terminated duty commands for the left
// and right motor.
type VESC struct {
	portName string
	port     serial.Port
	limits   Limits

	mu   sync.Mutex
	last DriveState
}

// DetectVESCPort returns the first present candidate serial port.
func DetectVESCPort() (string, error) {
	for _, name := range defaultVESCPorts {
		if _, err := os.Stat(name); err == nil {
			log.Info("found VESC port", "port", name)
			return name, nil
		}
	}
	return "", fmt.Errorf("no VESC serial port found (tried %v)", defaultVESCPorts)
}

// OpenVESC opens the VESC serial link at 115200 8N1. An empty port name
// auto-detects.
func OpenVESC(portName string, limits Limits) (*VESC, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}

	if portName == "" {
		detected, err := DetectVESCPort()
		if err != nil {
			return nil, err
		}
		portName = detected
	}

	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open VESC port %s: %w", portName, err)
	}

	log.Info("VESC drivetrain ready", "port", portName)
	return &VESC{portName: portName, port: port, limits: limits}, nil
}

// PortName returns the serial port in use.
func (v *VESC) PortName() string {
	return v.portName
}

// Apply clamps the command, mixes it to wheel duty cycles, and writes one
// command line to the firmware.
func (v *VESC) Apply(linearMS, angularRadS float64) error {
	linearMS, angularRadS = v.limits.Clamp(linearMS, angularRadS)
	left, right := v.limits.WheelSpeeds(linearMS, angularRadS)
	line := formatDutyLine(v.limits.Duty(left), v.limits.Duty(right))

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, err := v.port.Write([]byte(line)); err != nil {
		return fmt.Errorf("VESC write failed: %w", err)
	}
	v.last = DriveState{LinearMS: linearMS, AngularRadS: angularRadS}
	return nil
}

// Stop zeroes both motors.
func (v *VESC) Stop() error {
	return v.Apply(0, 0)
}

// State returns the last applied command.
func (v *VESC) State() DriveState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last
}

// Close stops the motors and releases the port.
func (v *VESC) Close() error {
	if err := v.Stop(); err != nil {
		log.Warn("VESC stop on close failed", "error", err)
	}
	return v.port.Close()
}

// formatDutyLine renders one firmware command line.
func formatDutyLine(leftDuty, rightDuty float64) string {
	return fmt.Sprintf("duty %.3f %.3f\n", leftDuty, rightDuty)
}
