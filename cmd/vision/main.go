// Vision service: runs MobileNet-SSD person detection on a color camera
// and pushes detections to connected rovers over WebSocket. Run it on a
// box with more compute than the rover, and point the rover's -bridge
// flag at ws://host:port/ws.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-rover/internal/config"
	ilog "github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/hub"
	"github.com/teslashibe/go-rover/pkg/locate"
	"github.com/teslashibe/go-rover/pkg/protocol"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found")
	}

	port := flag.String("port", config.EnvOr("VISION_PORT", "8091"), "HTTP port")
	cameraIndex := flag.Int("camera", 0, "Color camera device index (/dev/videoN)")
	interval := flag.Duration("interval", 100*time.Millisecond, "Time between detection passes")
	prototxt := flag.String("prototxt", "", "MobileNet-SSD prototxt path")
	model := flag.String("model", "", "MobileNet-SSD caffemodel path")
	confidence := flag.Float64("confidence", 0.5, "Minimum detection confidence")
	logLevel := flag.String("log-level", config.LogLevel(), "Log level: debug, info, warn, error")
	flag.Parse()

	ilog.Init(*logLevel)

	ssdCfg := locate.DefaultSSDConfig()
	if *prototxt != "" {
		ssdCfg.PrototxtPath = *prototxt
	}
	if *model != "" {
		ssdCfg.ModelPath = *model
	}
	ssdCfg.ConfidenceThresh = float32(*confidence)

	detector, err := locate.NewSSD(ssdCfg)
	if err != nil {
		log.Fatalf("❌ Load detector: %v", err)
	}
	defer detector.Close()

	capture, err := gocv.OpenVideoCapture(*cameraIndex)
	if err != nil {
		log.Fatalf("❌ Open camera %d: %v", *cameraIndex, err)
	}
	defer capture.Close()

	detections := hub.New("detections")
	go detections.Run()

	app := fiber.New(fiber.Config{
		AppName:               "Rover Vision",
		DisableStartupMessage: true,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"clients": detections.ClientCount(),
		})
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		hub.NewClient(detections, conn).Run()
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go detectLoop(ctx, detector, capture, detections, *interval)

	go func() {
		<-ctx.Done()
		app.Shutdown()
	}()

	log.Printf("👀 Vision service on ws://localhost:%s/ws (camera %d)", *port, *cameraIndex)
	if err := app.Listen(":" + *port); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
}

// detectLoop reads camera frames, finds the best person, and broadcasts
// the detection to every connected rover. Ticks with nobody in frame
// send nothing; the rover's bridge ages sightings out on its own.
func detectLoop(ctx context.Context, detector *locate.SSDDetector, capture *gocv.VideoCapture, detections *hub.Hub, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	img := gocv.NewMat()
	defer img.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if ok := capture.Read(&img); !ok || img.Empty() {
			continue
		}

		people, err := detector.Detect(img)
		if err != nil {
			ilog.Warn("detection failed", "error", err)
			continue
		}

		best := locate.SelectBest(people)
		if best == nil {
			continue
		}

		msg, err := protocol.NewDetectionMessage(protocol.DetectionData{
			XMin:        best.Box.XMin,
			YMin:        best.Box.YMin,
			XMax:        best.Box.XMax,
			YMax:        best.Box.YMax,
			Confidence:  best.Confidence,
			FrameWidth:  best.FrameWidth,
			FrameHeight: best.FrameHeight,
		})
		if err != nil {
			continue
		}
		if err := detections.BroadcastJSON(msg); err != nil {
			ilog.Warn("broadcast failed", "error", err)
		}
	}
}
