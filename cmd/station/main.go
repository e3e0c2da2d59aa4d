// Station: fleet monitoring service for person-following rovers.
// Accepts WebSocket uplinks from rovers and exposes a management API
// for telemetry, emergency stop, reset, and configuration pushes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/teslashibe/go-rover/internal/config"
	ilog "github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/protocol"
	"github.com/teslashibe/go-rover/pkg/station"
)

var version = "1.0.0"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found")
	}

	port := flag.String("port", config.EnvOr("STATION_PORT", "8092"), "HTTP server port")
	debug := flag.Bool("debug", false, "Enable debug logging")
	logLevel := flag.String("log-level", config.LogLevel(), "Log level: debug, info, warn, error")
	flag.Parse()

	if *debug {
		ilog.Init("debug")
	} else {
		ilog.Init(*logLevel)
	}

	fmt.Println()
	fmt.Println("🛰️  Rover Station v" + version)
	fmt.Println("   Fleet monitoring for person-following rovers")
	fmt.Println()

	app := fiber.New(fiber.Config{
		AppName:               "rover-station",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if *debug {
		app.Use(logger.New())
	}

	hub := station.NewHub()
	hub.RegisterRoutes(app)

	api := app.Group("/api")
	hub.RegisterAPIRoutes(api)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": version,
			"rovers":  hub.RoverCount(),
		})
	})

	app.Get("/metrics", func(c *fiber.Ctx) error {
		stats := hub.GetStats()
		return c.SendString(fmt.Sprintf(`# HELP rover_station_rovers Connected rover count
# TYPE rover_station_rovers gauge
rover_station_rovers %d

# HELP rover_station_messages_received Total messages received
# TYPE rover_station_messages_received counter
rover_station_messages_received %d

# HELP rover_station_messages_sent Total messages sent
# TYPE rover_station_messages_sent counter
rover_station_messages_sent %d

# HELP rover_station_frames_received Total preview frames received
# TYPE rover_station_frames_received counter
rover_station_frames_received %d
`, stats.RoverCount, stats.MessagesReceived, stats.MessagesSent, stats.FramesReceived))
	})

	hub.OnFrame(func(roverID string, frame *protocol.FrameData) {
		ilog.Debug("preview frame", "rover", roverID, "width", frame.Width, "height", frame.Height)
	})

	go func() {
		addr := ":" + *port
		log.Printf("🚀 Starting station on %s", addr)
		log.Printf("   Uplink:  ws://localhost:%s/ws/rover", *port)
		log.Printf("   Health:  http://localhost:%s/health", *port)
		log.Printf("   Fleet:   http://localhost:%s/api/rovers", *port)
		log.Println()

		if err := app.Listen(addr); err != nil {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n👋 Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}

	log.Println("✅ Goodbye!")
}
