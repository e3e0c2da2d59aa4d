// Run-report renders a telemetry run as an HTML page of charts: velocity
// commands and measured distances over the run, plus how the ticks and
// transitions distributed across states. Point it at the SQLite file the
// rover (or rover-sim) recorded.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/joho/godotenv"

	"github.com/teslashibe/go-rover/internal/config"
	"github.com/teslashibe/go-rover/pkg/nav"
	"github.com/teslashibe/go-rover/pkg/telemetry"
)

// maxChartPoints caps the samples per series; longer runs are strided
// down so the page stays light.
const maxChartPoints = 2000

func main() {
	// Best effort: the rover's .env names the DB this tool reads.
	_ = godotenv.Load()

	dbPath := flag.String("db", config.DBPath(), "Telemetry SQLite file")
	runID := flag.String("run", "", "Run ID to chart (latest when empty)")
	out := flag.String("out", "run-report.html", "Output HTML file")
	list := flag.Bool("list", false, "List recorded runs and exit")
	flag.Parse()

	store, err := telemetry.New(*dbPath)
	if err != nil {
		log.Fatalf("❌ open %s: %v", *dbPath, err)
	}
	defer store.Close()

	if *list {
		if err := listRuns(store); err != nil {
			log.Fatalf("❌ %v", err)
		}
		return
	}

	if err := report(store, *runID, *out); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func listRuns(store *telemetry.Store) error {
	runs, err := store.Runs().List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	for _, run := range runs {
		ticks, err := store.Ticks().CountByRun(run.ID)
		if err != nil {
			return err
		}
		live := ""
		if run.EndedAt == nil {
			live = "  (live)"
		}
		fmt.Printf("%s  %-9s  %s  %6s  %d ticks%s\n",
			run.ID, run.Actuator,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Duration(time.Now()).Round(time.Second),
			ticks, live)
	}
	return nil
}

func report(store *telemetry.Store, runID, out string) error {
	run, err := resolveRun(store, runID)
	if err != nil {
		return err
	}

	ticks, err := store.Ticks().ListByRun(run.ID)
	if err != nil {
		return err
	}
	if len(ticks) == 0 {
		return fmt.Errorf("run %s has no ticks", run.ID)
	}
	transitions, err := store.Transitions().ListByRun(run.ID)
	if err != nil {
		return err
	}
	stateCounts, err := store.Ticks().StateCounts(run.ID)
	if err != nil {
		return err
	}
	causeCounts, err := store.Transitions().CountByCause(run.ID)
	if err != nil {
		return err
	}

	subtitle := fmt.Sprintf("run=%s actuator=%s started=%s duration=%s ticks=%d transitions=%d",
		run.ID, run.Actuator,
		run.StartedAt.Format(time.RFC3339),
		run.Duration(time.Now()).Round(time.Second),
		len(ticks), len(transitions))

	page := components.NewPage()
	page.AddCharts(
		velocityChart(ticks, subtitle),
		distanceChart(ticks),
		stateBar(stateCounts),
		causeBar(causeCounts),
	)

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("render report: %v", err)
	}

	fmt.Printf("📊 Report for run %s written to %s\n", run.ID, out)
	printSummary(ticks, stateCounts)
	return nil
}

func resolveRun(store *telemetry.Store, runID string) (*telemetry.Run, error) {
	if runID != "" {
		return store.Runs().GetByID(runID)
	}
	run, err := store.Runs().Latest()
	if err != nil {
		return nil, fmt.Errorf("no runs recorded yet: %w", err)
	}
	return run, nil
}

// stride downsamples long runs to at most maxChartPoints samples.
func stride(n int) int {
	s := n / maxChartPoints
	if s < 1 {
		s = 1
	}
	return s
}

func velocityChart(ticks []telemetry.TickSample, subtitle string) *charts.Line {
	step := stride(len(ticks))

	var x []string
	var linear, angular []opts.LineData
	for i := 0; i < len(ticks); i += step {
		t := ticks[i]
		x = append(x, strconv.FormatUint(t.Seq, 10))
		linear = append(linear, opts.LineData{Value: t.LinearMS})
		angular = append(angular, opts.LineData{Value: t.AngularRadS})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Rover Run Report", Theme: "dark", Width: "1200px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Velocity Commands", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "tick"}),
	)
	line.SetXAxis(x).
		AddSeries("linear m/s", linear).
		AddSeries("angular rad/s", angular)
	return line
}

func distanceChart(ticks []telemetry.TickSample) *charts.Line {
	step := stride(len(ticks))

	var x []string
	var person, front []opts.LineData
	for i := 0; i < len(ticks); i += step {
		t := ticks[i]
		x = append(x, strconv.FormatUint(t.Seq, 10))
		person = append(person, nullablePoint(t.PersonDistanceM))
		front = append(front, nullablePoint(t.FrontDistanceM))
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "1200px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Measured Distances", Subtitle: "person range and front obstacle distance, gaps where unreadable"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "tick"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "meters"}),
	)
	line.SetXAxis(x).
		AddSeries("person distance", person).
		AddSeries("front distance", front)
	return line
}

// nullablePoint maps a missing measurement to a chart gap.
func nullablePoint(v *float64) opts.LineData {
	if v == nil {
		return opts.LineData{Value: nil}
	}
	return opts.LineData{Value: *v}
}

func stateBar(counts map[string]int) *charts.Bar {
	states := []nav.State{nav.StateSearch, nav.StateApproach, nav.StateAvoidObstacle, nav.StateInteract, nav.StateStop}

	var x []string
	var y []opts.BarData
	for _, s := range states {
		x = append(x, s.String())
		y = append(y, opts.BarData{Value: counts[s.String()]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "600px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Ticks per State"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("ticks", y, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}

func causeBar(counts map[string]int) *charts.Bar {
	var x []string
	var y []opts.BarData
	for _, cause := range []string{
		nav.CausePersonFound, nav.CausePersonLost, nav.CauseObstacle,
		nav.CauseAvoidComplete, nav.CauseReady, nav.CausePersonMoved,
		nav.CauseManualStop, nav.CauseManualReset,
	} {
		if counts[cause] == 0 {
			continue
		}
		x = append(x, cause)
		y = append(y, opts.BarData{Value: counts[cause]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "600px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Transitions by Cause"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("transitions", y, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))
	return bar
}

func printSummary(ticks []telemetry.TickSample, stateCounts map[string]int) {
	total := len(ticks)
	for _, s := range []nav.State{nav.StateSearch, nav.StateApproach, nav.StateAvoidObstacle, nav.StateInteract, nav.StateStop} {
		n := stateCounts[s.String()]
		if n == 0 {
			continue
		}
		fmt.Printf("   %-14s %5.1f%%  (%d ticks)\n", s.String(), float64(n)*100/float64(total), n)
	}
}
