// Package debug provides global debug logging flags
package debug

import "fmt"

// Enabled controls whether debug logging is active
var Enabled bool

// Nav controls whether verbose navigation logs are shown (per-tick state,
// obstacle readings, avoidance phases). Use --debug-nav to enable.
var Nav bool

// Log prints a message only if debug mode is enabled
func Log(format string, args ...interface{}) {
	if Enabled {
		fmt.Printf(format, args...)
	}
}

// Logln prints a message with newline only if debug mode is enabled
func Logln(msg string) {
	if Enabled {
		fmt.Println(msg)
	}
}

// NavLog prints a message only if navigation debug mode is enabled
func NavLog(format string, args ...interface{}) {
	if Nav {
		fmt.Printf(format, args...)
	}
}

// NavLogln prints a message with newline only if navigation debug mode is enabled
func NavLogln(msg string) {
	if Nav {
		fmt.Println(msg)
	}
}
