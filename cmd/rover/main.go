// Rover - person-following navigation for a small differential-drive car.
// Reads depth frames and person detections, runs the navigation state
// machine, and drives the wheels.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/pkg/debug"
	"github.com/teslashibe/go-rover/pkg/rover"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found")
	}

	cfg := parseFlags()

	app, err := rover.New(cfg)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	if err := app.Init(); err != nil {
		log.Fatalf("❌ Initialization failed: %v", err)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("❌ Runtime error: %v", err)
	}
}

// parseFlags parses command line flags and returns configuration.
// Defaults come from the environment where a variable exists, so .env
// files and flags compose.
func parseFlags() rover.Config {
	cfg := rover.DefaultConfig()

	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")
	debugNav := flag.Bool("debug-nav", false, "Log per-tick navigation detail")
	flag.StringVar(&cfg.LogLevel, "log-level", config.LogLevel(), "Log level: debug, info, warn, error")
	flag.StringVar(&cfg.RoverID, "id", config.RoverID(), "Rover identifier reported to the station")
	flag.IntVar(&cfg.TickHz, "hz", cfg.TickHz, "Control loop rate in Hz")
	flag.IntVar(&cfg.CameraIndex, "depth-camera", 0, "Depth camera device index (/dev/videoN)")
	flag.StringVar(&cfg.DepthFixtures, "depth-fixtures", "", "Play back recorded depth frames instead of opening the camera")
	flag.IntVar(&cfg.VisionIndex, "camera", 0, "Color camera device index for person detection")
	flag.StringVar(&cfg.BridgeURL, "bridge", config.BridgeURL(), "Vision bridge WebSocket URL (overrides onboard detection)")
	flag.BoolVar(&cfg.Simulate, "simulate", false, "Use the simulated drivetrain")
	flag.StringVar(&cfg.DrivetrainURL, "drivetrain", config.DrivetrainURL(), "Drivetrain daemon base URL (overrides VESC serial)")
	flag.StringVar(&cfg.VESCPort, "vesc-port", config.VESCPort(), "VESC serial port (auto-detect when empty)")
	flag.StringVar(&cfg.DashboardPort, "port", config.DashboardPort(), "Dashboard HTTP port")
	flag.StringVar(&cfg.StationURL, "station", config.StationURL(), "Fleet station WebSocket URL (empty disables the uplink)")
	flag.StringVar(&cfg.DBPath, "db", config.DBPath(), "Telemetry SQLite path (empty disables recording)")
	flag.StringVar(&cfg.FollowPreset, "follow", cfg.FollowPreset, "Follow tuning preset: default, slow, aggressive")

	flag.Parse()

	debug.Nav = *debugNav
	return cfg
}
