// Rover-sim drives the navigation stack through a scripted encounter, no
// cameras or drivetrain required: a person walks into the aisle, a cart
// blocks the way, the rover swings around it and closes back in. Useful
// for eyeballing tuning changes and for producing telemetry runs on a
// laptop.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/teslashibe/go-rover/pkg/follow"
	"github.com/teslashibe/go-rover/pkg/nav"
	"github.com/teslashibe/go-rover/pkg/perception"
	"github.com/teslashibe/go-rover/pkg/telemetry"
	"github.com/teslashibe/go-rover/pkg/vehicle"
)

// Color frame geometry for the scripted bounding boxes.
const (
	frameW = 640
	frameH = 480
)

// Depth frame geometry. Small frames keep the scenario cheap to build.
const (
	depthW = 64
	depthH = 48
)

// step is one scripted control tick.
type step struct {
	depth    *perception.DepthFrame
	box      *follow.BoundingBox
	distance float64
}

func main() {
	hz := flag.Int("hz", 20, "Control loop rate in Hz")
	dbPath := flag.String("db", "", "Record the run to this SQLite file")
	preset := flag.String("follow", "default", "Follow tuning preset: default, slow, aggressive")
	flag.Parse()

	if *hz < 1 || *hz > 100 {
		log.Fatalf("❌ tick rate must be 1-100 Hz, got %d", *hz)
	}

	if err := run(*hz, *dbPath, *preset); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run(hz int, dbPath, preset string) error {
	detector, err := perception.NewDetector(perception.DefaultConfig())
	if err != nil {
		return err
	}

	followCfg := follow.DefaultConfig()
	switch preset {
	case "default":
	case "slow":
		followCfg = follow.SlowConfig()
	case "aggressive":
		followCfg = follow.AggressiveConfig()
	default:
		return fmt.Errorf("unknown follow preset %q", preset)
	}
	follower, err := follow.NewFollower(followCfg)
	if err != nil {
		return err
	}

	machine, err := nav.NewMachine(nav.DefaultConfig(), detector, follower)
	if err != nil {
		return err
	}

	drive, err := vehicle.NewSimulated(vehicle.DefaultLimits())
	if err != nil {
		return err
	}
	defer drive.Close()

	var recorder *telemetry.Recorder
	if dbPath != "" {
		store, err := telemetry.New(dbPath)
		if err != nil {
			return fmt.Errorf("open telemetry store: %w", err)
		}
		defer store.Close()

		recorder, err = telemetry.NewRecorder(store, "simulated")
		if err != nil {
			return fmt.Errorf("start telemetry run: %w", err)
		}
		defer recorder.Close()
	}

	machine.OnTransition(func(tr nav.Transition) {
		fmt.Printf("   %s -> %s  (%s)\n", tr.From, tr.To, tr.Cause)
		if recorder != nil {
			recorder.RecordTransition(tr)
		}
	})

	steps := buildScenario(hz)
	fmt.Printf("🎬 Playing %d scripted ticks at %d Hz (%s tuning)\n\n", len(steps), hz, preset)

	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	for _, s := range steps {
		<-ticker.C

		in := nav.Inputs{Depth: s.depth, DistanceM: s.distance}
		if s.box != nil {
			box := *s.box
			in.BBox = &box
			in.FrameWidth = frameW
			in.FrameHeight = frameH
		}

		out := machine.Tick(in)
		if err := drive.Apply(out.LinearMS, out.AngularRadS); err != nil {
			return err
		}
		if recorder != nil {
			recorder.RecordStatus(machine.Status())
		}
	}

	// Operator stop at the end of the shift.
	machine.Stop()
	if err := drive.Stop(); err != nil {
		return err
	}

	st := machine.Status()
	fmt.Printf("\n🏁 Finished in %s after %d ticks and %d transitions\n", st.State, st.Ticks, st.Transitions)
	if recorder != nil {
		fmt.Printf("📊 Run %s recorded to %s (chart it with run-report)\n", recorder.RunID(), dbPath)
	}
	return nil
}

// buildScenario scripts the encounter. Durations scale with the tick rate
// so the wall-clock avoidance phases land the same way at any Hz.
func buildScenario(hz int) []step {
	// An aisle with a shelf close on the right and open floor left. The
	// central region stays clear so the front check reads 3m.
	aisle := perception.NewUniformFrame(depthW, depthH, 3000)
	aisle.SetRect(0, 0, depthW/3, depthH, 2800)
	aisle.SetRect(depthW*2/3, 0, depthW, depthH, 1200)

	// A cart parked dead ahead, well inside the stop threshold.
	blocked := aisle.Clone()
	blocked.SetRect(depthW/3, depthH/3, depthW*2/3, depthH*2/3, 400)

	var steps []step
	add := func(n int, s step) {
		for i := 0; i < n; i++ {
			steps = append(steps, s)
		}
	}
	secs := func(d float64) int {
		n := int(d * float64(hz))
		if n < 1 {
			n = 1
		}
		return n
	}

	// Empty aisle; the rover searches.
	add(secs(1.0), step{depth: aisle})

	// A person walks in 3m out, left of center, and the rover lines up.
	walkIn := secs(1.5)
	for i := 0; i < walkIn; i++ {
		t := fraction(i, walkIn)
		steps = append(steps, personStep(aisle, lerp(3.0, 1.6, t), lerp(-0.3, 0, t)))
	}

	// The cart rolls in while the rover is closing. One tick is enough
	// to trigger avoidance; it stays for the stopping phase.
	add(secs(0.4), personStep(blocked, 1.6, 0))

	// Cart pulled clear. The scan and turn phases run out their clocks
	// against the open aisle, then approach resumes.
	add(secs(2.0), personStep(aisle, 1.6, 0))

	// Converge to conversational distance.
	converge := secs(1.2)
	for i := 0; i < converge; i++ {
		steps = append(steps, personStep(aisle, lerp(1.6, 1.0, fraction(i, converge)), 0))
	}

	// Standing face to face.
	add(secs(1.0), personStep(aisle, 1.0, 0))

	// The person steps back, the rover follows them in again.
	add(secs(0.3), personStep(aisle, 1.8, 0))
	reconverge := secs(0.8)
	for i := 0; i < reconverge; i++ {
		steps = append(steps, personStep(aisle, lerp(1.8, 1.0, fraction(i, reconverge)), 0))
	}
	add(secs(0.6), personStep(aisle, 1.0, 0))

	// And walks away.
	add(secs(0.8), step{depth: aisle})

	return steps
}

// personStep scripts one tick with a person at the given distance. offset
// is the horizontal position as a fraction of half the frame width, zero
// meaning dead center.
func personStep(depth *perception.DepthFrame, distM, offset float64) step {
	h := int(280.0 / distM)
	if h > frameH-20 {
		h = frameH - 20
	}
	w := h / 3

	cx := int(float64(frameW)/2 + offset*float64(frameW)/2)
	cy := frameH / 2

	return step{
		depth: depth,
		box: &follow.BoundingBox{
			XMin: cx - w/2,
			YMin: cy - h/2,
			XMax: cx + w/2,
			YMax: cy + h/2,
		},
		distance: distM,
	}
}

func lerp(from, to, t float64) float64 {
	return from + (to-from)*t
}

// fraction maps step i of n onto [0, 1].
func fraction(i, n int) float64 {
	if n <= 1 {
		return 1
	}
	return float64(i) / float64(n-1)
}
