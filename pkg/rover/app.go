package rover

import (
	"context"
	"fmt"
	"time"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/camera"
	"github.com/teslashibe/go-rover/pkg/debug"
	"github.com/teslashibe/go-rover/pkg/follow"
	"github.com/teslashibe/go-rover/pkg/locate"
	"github.com/teslashibe/go-rover/pkg/nav"
	"github.com/teslashibe/go-rover/pkg/perception"
	"github.com/teslashibe/go-rover/pkg/station"
	"github.com/teslashibe/go-rover/pkg/telemetry"
	"github.com/teslashibe/go-rover/pkg/vehicle"
	"github.com/teslashibe/go-rover/pkg/web"
)

const (
	// bridgeStaleAfter is how long a bridge sighting stays valid. Five
	// ticks at the default rate, same window the camera locator uses.
	bridgeStaleAfter = 500 * time.Millisecond

	// connectRetryEvery paces background reconnect attempts for the
	// vision bridge and station uplink.
	connectRetryEvery = 5 * time.Second

	// statusEvery paces the periodic status line.
	statusEvery = 2 * time.Second
)

// App is the rover application orchestrator. It owns every component and
// runs the control loop that ties them together.
type App struct {
	config Config

	// Perception
	detector *perception.Detector
	depth    camera.DepthSource
	cameras  *camera.Manager

	// Person detection. locator is whichever source is active; bridge
	// and camLoc hold the concrete source when extra wiring is needed.
	locator locate.Locator
	bridge  *locate.Bridge
	camLoc  *locate.CameraLocator

	// Control
	machine *nav.Machine
	drive   vehicle.Actuator

	// Telemetry
	store    *telemetry.Store
	recorder *telemetry.Recorder

	// Integrations
	web    *web.Server
	uplink *station.Uplink

	depthFailing bool
	lastFrameID  uint64
}

// New creates a rover application with the given configuration.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	debug.Enabled = cfg.Debug
	if cfg.Debug {
		log.Init("debug")
	} else {
		log.Init(cfg.LogLevel)
	}

	return &App{config: cfg}, nil
}

// Init initializes all components. Call after New() and before Run().
// The drivetrain and navigation stack must come up; the depth camera,
// person detector, and telemetry degrade with a warning when they can't.
func (a *App) Init() error {
	fmt.Println("🚙 Rover - Person Following")
	fmt.Println("===========================")
	if debug.Enabled {
		fmt.Println("🐛 Debug mode enabled")
	}

	fmt.Print("⚙️  Drivetrain... ")
	if err := a.initDrive(); err != nil {
		fmt.Println("❌")
		return fmt.Errorf("drivetrain: %w", err)
	}
	fmt.Printf("✅ (%s)\n", a.driveLabel())

	if err := a.initDepth(); err != nil {
		return fmt.Errorf("perception: %w", err)
	}

	if err := a.initLocator(); err != nil {
		return fmt.Errorf("person detection: %w", err)
	}

	if err := a.initMachine(); err != nil {
		return fmt.Errorf("navigation: %w", err)
	}

	a.initTelemetry()
	a.initWeb()

	if err := a.initUplink(); err != nil {
		return fmt.Errorf("station uplink: %w", err)
	}

	a.machine.OnTransition(func(tr nav.Transition) {
		if a.recorder != nil {
			a.recorder.RecordTransition(tr)
		}
		a.web.PublishTransition(tr)
		a.web.AddEvent("transition", fmt.Sprintf("%s -> %s (%s)", tr.From, tr.To, tr.Cause))
		if a.uplink != nil && a.uplink.IsConnected() {
			a.uplink.SendTransition(tr)
		}
	})

	return nil
}

// initDrive picks the drivetrain backend: the simulator when asked, the
// HTTP daemon when a URL is configured, VESC serial otherwise.
func (a *App) initDrive() error {
	limits := vehicle.DefaultLimits()

	switch {
	case a.config.Simulate:
		drive, err := vehicle.NewSimulated(limits)
		if err != nil {
			return err
		}
		a.drive = drive

	case a.config.DrivetrainURL != "":
		drive, err := vehicle.NewHTTPDrivetrain(a.config.DrivetrainURL, limits)
		if err != nil {
			return err
		}
		if _, err := drive.DaemonStatus(); err != nil {
			log.Warn("drivetrain daemon not answering yet", "url", a.config.DrivetrainURL, "error", err)
		}
		a.drive = drive

	default:
		port := a.config.VESCPort
		if port == "" {
			detected, err := vehicle.DetectVESCPort()
			if err != nil {
				return fmt.Errorf("no VESC detected, use -simulate for bench work: %w", err)
			}
			port = detected
		}
		drive, err := vehicle.OpenVESC(port, limits)
		if err != nil {
			return fmt.Errorf("open VESC on %s: %w", port, err)
		}
		debug.Log("🔌 VESC on %s\n", drive.PortName())
		a.drive = drive
	}

	return nil
}

// initDepth builds the obstacle detector and opens the depth source. A
// missing depth camera is not fatal: the rover drives on with obstacle
// checks disabled.
func (a *App) initDepth() error {
	fmt.Print("📡 Depth camera... ")

	detector, err := perception.NewDetector(perception.DefaultConfig())
	if err != nil {
		fmt.Println("❌")
		return err
	}
	a.detector = detector
	a.cameras = camera.NewManager()

	if a.config.DepthFixtures != "" {
		playback, err := camera.OpenFixtures(a.config.DepthFixtures)
		if err != nil {
			fmt.Println("❌")
			return fmt.Errorf("open depth fixtures: %w", err)
		}
		a.depth = playback
		fmt.Printf("✅ (fixtures: %s)\n", a.config.DepthFixtures)
		return nil
	}

	cfg := a.cameras.GetConfig()
	cfg.DeviceIndex = a.config.CameraIndex
	device, err := camera.OpenDevice(cfg)
	if err != nil {
		fmt.Printf("⚠️  %v - obstacle checks disabled\n", err)
		return nil
	}
	a.depth = device
	a.cameras.SetConfig(cfg)
	a.cameras.OnConfigChange = device.Reconfigure
	fmt.Println("✅")
	return nil
}

// initLocator chooses the person source: the vision bridge when
// configured, the onboard camera detector otherwise. Onboard failures
// degrade to a null locator so the rover still runs, searching.
func (a *App) initLocator() error {
	fmt.Print("👀 Person detection... ")

	if a.config.BridgeURL != "" {
		bridge, err := locate.NewBridge(a.config.BridgeURL, bridgeStaleAfter)
		if err != nil {
			fmt.Println("❌")
			return err
		}
		a.bridge = bridge
		a.locator = bridge
		fmt.Printf("✅ (bridge: %s)\n", a.config.BridgeURL)
		return nil
	}

	ssd, err := locate.NewSSD(locate.DefaultSSDConfig())
	if err != nil {
		fmt.Printf("⚠️  %v - rover will only search\n", err)
		a.locator = locate.NewScripted()
		return nil
	}

	cfg := locate.DefaultConfig()
	cfg.DeviceIndex = a.config.VisionIndex
	camLoc, err := locate.NewCameraLocator(cfg, ssd)
	if err != nil {
		fmt.Printf("⚠️  %v - rover will only search\n", err)
		a.locator = locate.NewScripted()
		return nil
	}
	a.camLoc = camLoc
	a.locator = camLoc
	fmt.Println("✅ (onboard)")
	return nil
}

func (a *App) initMachine() error {
	follower, err := follow.NewFollower(a.config.FollowConfig())
	if err != nil {
		return err
	}
	machine, err := nav.NewMachine(nav.DefaultConfig(), a.detector, follower)
	if err != nil {
		return err
	}
	a.machine = machine
	return nil
}

// initTelemetry opens the run store. Telemetry is best effort: a broken
// database never keeps the rover off the road.
func (a *App) initTelemetry() {
	if a.config.DBPath == "" {
		return
	}

	fmt.Print("🗄️  Telemetry... ")
	store, err := telemetry.New(a.config.DBPath)
	if err != nil {
		fmt.Printf("⚠️  %v - recording disabled\n", err)
		return
	}
	recorder, err := telemetry.NewRecorder(store, a.driveLabel())
	if err != nil {
		store.Close()
		fmt.Printf("⚠️  %v - recording disabled\n", err)
		return
	}
	a.store = store
	a.recorder = recorder
	fmt.Printf("✅ (run %s)\n", recorder.RunID())
}

func (a *App) initWeb() {
	a.web = web.NewServer(a.config.DashboardPort, a.machine, a.config.FollowConfig())
	a.web.Cameras = a.cameras
	a.web.Store = a.store
	a.web.OnFollowConfig = func(cfg follow.Config) error {
		follower, err := follow.NewFollower(cfg)
		if err != nil {
			return err
		}
		a.machine.SetFollower(follower)
		return nil
	}
	fmt.Printf("🌐 Dashboard on http://localhost:%s\n", a.config.DashboardPort)
}

func (a *App) initUplink() error {
	if a.config.StationURL == "" {
		return nil
	}

	uplink, err := station.NewUplink(a.config.StationURL, a.config.RoverID, a.machine)
	if err != nil {
		return err
	}
	uplink.OnConfig = a.web.ApplyConfig
	a.uplink = uplink
	fmt.Printf("🛰️  Station uplink to %s\n", a.config.StationURL)
	return nil
}

// Run starts the control loop. Blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	fmt.Println("\n🧭 Searching for a person to follow")
	fmt.Println("   (Ctrl+C to stop)")

	a.web.StartAsync()

	if a.bridge != nil {
		a.connectWithRetry(ctx, "vision bridge", a.bridge.Connect)
	}
	if a.uplink != nil {
		a.connectWithRetry(ctx, "station uplink", a.uplink.Connect)
	}
	debug.Logln("🧭 Control loop started")

	ticker := time.NewTicker(time.Second / time.Duration(a.config.TickHz))
	defer ticker.Stop()

	status := time.NewTicker(statusEvery)
	defer status.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.tick()
		case <-status.C:
			a.logStatus()
		}
	}
}

// connectWithRetry dials once, and on failure keeps retrying in the
// background. A rover that boots before its peers comes up degraded
// instead of dying.
func (a *App) connectWithRetry(ctx context.Context, name string, connect func(context.Context) error) {
	err := connect(ctx)
	if err == nil {
		return
	}
	log.Warn(name+" not reachable, retrying in background", "error", err)

	go func() {
		ticker := time.NewTicker(connectRetryEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := connect(ctx); err == nil {
					log.Info(name + " connected")
					return
				}
			}
		}
	}()
}

// tick runs one control cycle: read sensors, step the machine, drive.
func (a *App) tick() {
	var depth *perception.DepthFrame
	if a.depth != nil {
		frame, err := a.depth.DepthFrame()
		if err != nil {
			if !a.depthFailing {
				log.Warn("depth read failing, driving without obstacle checks", "error", err)
				a.web.AddEvent("sensor", "depth readings lost, obstacle checks disabled")
				a.depthFailing = true
			}
		} else {
			if a.depthFailing {
				log.Info("depth readings recovered")
				a.web.AddEvent("sensor", "depth readings recovered")
				a.depthFailing = false
			}
			depth = frame
		}
	}

	person := a.locator.Person()

	in := nav.Inputs{Depth: depth}
	if person != nil {
		box := person.Box
		in.BBox = &box
		in.FrameWidth = person.FrameWidth
		in.FrameHeight = person.FrameHeight
		in.DistanceM = a.rangePerson(person, depth)
	}

	out := a.machine.Tick(in)

	if err := a.drive.Apply(out.LinearMS, out.AngularRadS); err != nil {
		log.Warn("drive command failed", "error", err)
	}

	st := a.machine.Status()
	if a.recorder != nil {
		a.recorder.RecordStatus(st)
	}
	a.web.PublishStatus(st)
	if a.uplink != nil && a.uplink.IsConnected() {
		a.uplink.SendStatus(st)
	}

	a.publishPreview()
}

// rangePerson samples the depth frame at the person's center. The box is
// in color-frame pixels, so scale into depth-frame coordinates first.
func (a *App) rangePerson(p *locate.Person, depth *perception.DepthFrame) float64 {
	if depth == nil || p.FrameWidth <= 0 || p.FrameHeight <= 0 {
		return 0
	}
	x := int(p.Box.CenterX() * float64(depth.Width) / float64(p.FrameWidth))
	y := int(p.Box.CenterY() * float64(depth.Height) / float64(p.FrameHeight))
	if d, ok := a.detector.DistanceAt(depth, x, y); ok {
		return d
	}
	return 0
}

// publishPreview forwards the latest detection frame to the dashboard
// and the station, deduplicated by frame ID.
func (a *App) publishPreview() {
	if a.camLoc == nil {
		return
	}
	jpeg, id := a.camLoc.Preview()
	if jpeg == nil || id == a.lastFrameID {
		return
	}
	a.lastFrameID = id

	a.web.PublishFrame(jpeg)
	if a.uplink != nil && a.uplink.IsConnected() {
		w, h := a.camLoc.FrameSize()
		a.uplink.SendFrame(w, h, jpeg, id)
	}
}

func (a *App) logStatus() {
	st := a.machine.Status()
	log.Debug("nav status",
		"state", st.State,
		"person", st.PersonVisible,
		"range", follow.DistanceCategory(st.PersonDistanceM),
		"obstacle", st.ObstacleAhead,
		"linear_m_s", st.LinearMS,
		"angular_rad_s", st.AngularRadS,
		"ticks", st.Ticks,
	)
}

func (a *App) driveLabel() string {
	switch a.drive.(type) {
	case *vehicle.Simulated:
		return "simulated"
	case *vehicle.HTTPDrivetrain:
		return "http"
	case *vehicle.VESC:
		return "vesc"
	default:
		return "unknown"
	}
}

// Shutdown stops the drivetrain first, then tears down the rest. The
// wheels must never outlive the control loop.
func (a *App) Shutdown() {
	fmt.Println("\n🛑 Stopping rover")

	if a.drive != nil {
		if err := a.drive.Stop(); err != nil {
			log.Warn("drive stop failed", "error", err)
		}
		a.drive.Close()
	}
	if a.uplink != nil {
		a.uplink.Close()
	}
	if a.locator != nil {
		a.locator.Close()
	}
	if a.depth != nil {
		a.depth.Close()
	}
	if a.web != nil {
		a.web.Shutdown()
	}
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			log.Warn("telemetry close failed", "error", err)
		}
	}
	if a.store != nil {
		a.store.Close()
	}
}
