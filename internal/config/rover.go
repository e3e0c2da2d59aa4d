// Package config provides configuration helpers for go-rover commands.
package config

import (
	"os"
)

// Default rover configuration.
const (
	DefaultDashboardPort = "8090"
	DefaultDBPath        = "rover.db"
	DefaultTickHz        = 10
)

// EnvOr returns the value of the environment variable key, or the
// provided default when the variable is unset or empty.
func EnvOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// RoverID returns this rover's fleet identity from ROVER_ID.
func RoverID() string {
	return EnvOr("ROVER_ID", "rover-01")
}

// DashboardPort returns the dashboard listen port from DASHBOARD_PORT.
func DashboardPort() string {
	return EnvOr("DASHBOARD_PORT", DefaultDashboardPort)
}

// DBPath returns the telemetry database path from ROVER_DB.
func DBPath() string {
	return EnvOr("ROVER_DB", DefaultDBPath)
}

// DrivetrainURL returns the HTTP drivetrain daemon URL from DRIVETRAIN_URL.
// Empty when no drivetrain daemon is configured.
func DrivetrainURL() string {
	return os.Getenv("DRIVETRAIN_URL")
}

// VESCPort returns an explicit VESC serial port from VESC_PORT.
// Empty means auto-detect.
func VESCPort() string {
	return os.Getenv("VESC_PORT")
}

// StationURL returns the fleet station websocket URL from STATION_URL.
// Empty when no station uplink is configured.
func StationURL() string {
	return os.Getenv("STATION_URL")
}

// BridgeURL returns the detection bridge websocket URL from BRIDGE_URL.
// Empty when no external detector is configured.
func BridgeURL() string {
	return os.Getenv("BRIDGE_URL")
}

// LogLevel returns the log level from LOG_LEVEL.
func LogLevel() string {
	return EnvOr("LOG_LEVEL", "info")
}
