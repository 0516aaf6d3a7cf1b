package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/sniperleonid/Calc-sub001/internal/config"
	"github.com/sniperleonid/Calc-sub001/internal/dispatcher"
	"github.com/sniperleonid/Calc-sub001/internal/geo"
	"github.com/sniperleonid/Calc-sub001/internal/mission"
	"github.com/sniperleonid/Calc-sub001/internal/monitor"
	"github.com/sniperleonid/Calc-sub001/internal/orchestrator"
	"github.com/sniperleonid/Calc-sub001/internal/planner"
	"github.com/sniperleonid/Calc-sub001/internal/solver"
	"github.com/sniperleonid/Calc-sub001/internal/util"
	"github.com/sniperleonid/Calc-sub001/internal/worker"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

var stdin io.Reader = os.Stdin

type windFlags struct {
	speed, from float64
}

func (w *windFlags) bind(fs *pflag.FlagSet) {
	fs.Float64Var(&w.speed, "wind-speed", 0, "wind speed in m/s")
	fs.Float64Var(&w.from, "wind-from", 0, "direction the wind blows from, degrees")
}

func (w windFlags) wind() core.Wind {
	return core.Wind{SpeedMps: w.speed, FromDeg: w.from}
}

func parseArc(s string) (core.Arc, error) {
	if s == "" {
		s = config.GetSolverConfig().Arc
	}
	return core.ParseArc(s)
}

func runSolve(ctx context.Context, a *app, args []string) error {
	fs := pflag.NewFlagSet("solve", pflag.ContinueOnError)
	gun := fs.String("gun", "", "gun position x,y[,z]")
	target := fs.String("target", "", "target position x,y[,z]")
	polar := fs.String("polar", "", "target as observer x,y[,z]:distance@bearing, instead of --target")
	weaponID := fs.String("weapon", "", "weapon profile id")
	arc := fs.String("arc", "", "LOW, HIGH, DIRECT or AUTO")
	mode := fs.String("mode", "", "rk4 or table")
	charge := fs.String("charge", "", "preferred charge id")
	multi := fs.Bool("multi", false, "enumerate every distinct solution")
	maxSolutions := fs.Int("max-solutions", 0, "limit for --multi")
	missionID := fs.String("mission-id", "adhoc", "journal mission id")
	var wind windFlags
	wind.bind(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	gunPos, err := geo.Position3DFromString(*gun)
	if err != nil {
		return fmt.Errorf("--gun: %w", err)
	}
	var targetPos core.Position3D
	if *polar != "" && *target == "" {
		targetPos, err = parsePolar(*polar)
	} else {
		targetPos, err = geo.Position3DFromString(*target)
	}
	if err != nil {
		return fmt.Errorf("--target: %w", err)
	}
	a.Logger.Debug("solve", "gun", gunPos, "target", targetPos, "weapon", *weaponID)
	arcValue, err := parseArc(*arc)
	if err != nil {
		return err
	}
	req := solver.Request{
		Gun:               gunPos,
		Target:            targetPos,
		Wind:              wind.wind(),
		WeaponID:          *weaponID,
		Arc:               arcValue,
		PreferredChargeID: *charge,
		Mode:              core.SolveMode(strings.ToLower(*mode)),
	}

	var result any
	if *multi {
		sols, err := a.Solver.SolveMulti(ctx, req, solver.MultiOptions{MaxSolutions: *maxSolutions})
		if err != nil {
			return err
		}
		result = map[string]any{"solutions": sols}
	} else {
		sol, err := a.Solver.Solve(ctx, req)
		if err != nil {
			return err
		}
		a.exportSolution(*missionID, "adhoc", sol)
		result = sol
	}
	a.record(*missionID, "solve", util.ToMap(req), util.ToMap(result), &targetPos)
	return writeJSON(a.Out, result)
}

func (a *app) exportSolution(missionID, gunID string, sol core.FireSolution) {
	if a.Influx == nil {
		return
	}
	if err := a.Influx.WriteSolution(missionID, gunID, sol, a.SessionStart); err != nil {
		a.Logger.Warn("Failed to export solution", "error", err)
	}
}

type planFlags struct {
	missionFile string
	guns        []string
}

func (p *planFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&p.missionFile, "mission", "", "mission configuration JSON file")
	fs.StringArrayVar(&p.guns, "gun", nil, "gun id=x,y[,z], repeatable")
}

func (p planFlags) build() (*planner.FirePlan, error) {
	data, err := os.ReadFile(p.missionFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read mission: %w", err)
	}
	var cfg planner.MissionConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode mission: %w", err)
	}
	guns := make([]planner.Gun, 0, len(p.guns))
	for _, s := range p.guns {
		id, pos, err := util.ParseNamedPosition(s)
		if err != nil {
			return nil, fmt.Errorf("--gun %q: %w", s, err)
		}
		guns = append(guns, planner.Gun{ID: id, Position: pos})
	}
	return planner.Build(cfg, guns)
}

func firstAimPoint(plan *planner.FirePlan) *core.Position3D {
	if len(plan.AimPoints) == 0 {
		return nil
	}
	return &plan.AimPoints[0].Position
}

func runPlan(_ context.Context, a *app, args []string) error {
	fs := pflag.NewFlagSet("plan", pflag.ContinueOnError)
	var pf planFlags
	pf.bind(fs)
	missionID := fs.String("mission-id", "adhoc", "journal mission id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	plan, err := pf.build()
	if err != nil {
		return err
	}
	for _, d := range plan.Diagnostics {
		a.Logger.Warn("Mission config normalized", "diagnostic", d.String())
	}
	a.record(*missionID, "plan", util.ToMap(plan.Config), util.ToMap(plan.Summary), firstAimPoint(plan))
	return writeJSON(a.Out, plan)
}

func runFire(ctx context.Context, a *app, args []string) error {
	fs := pflag.NewFlagSet("fire", pflag.ContinueOnError)
	var pf planFlags
	pf.bind(fs)
	weaponID := fs.String("weapon", "", "weapon id for every gun")
	weaponByGun := fs.String("weapons", "", "per-gun weapons g1=m252,g2=d30")
	arc := fs.String("arc", "", "LOW, HIGH, DIRECT or AUTO")
	observer := fs.String("observer", "", "observer position x,y[,z]; defaults to the first gun")
	bracket := fs.Float64("bracket", 0, "opening bracket in metres")
	desired := fs.Float64("desired-impact", 0, "TOT impact time in seconds")
	missionID := fs.String("mission-id", uuid.NewString(), "journal mission id")
	statusFile := fs.String("status-file", "", "rewrite the session status to this file every second")
	var wind windFlags
	wind.bind(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	plan, err := pf.build()
	if err != nil {
		return err
	}
	arcValue, err := parseArc(*arc)
	if err != nil {
		return err
	}
	byGun := map[string]string{}
	if *weaponByGun != "" {
		if byGun, err = util.ParseAssignments(*weaponByGun); err != nil {
			return err
		}
	}
	positions := make(map[string]core.Position3D, len(plan.Guns))
	for _, g := range plan.Guns {
		positions[g.ID] = g.Position
		if _, ok := byGun[g.ID]; !ok {
			byGun[g.ID] = *weaponID
		}
	}
	if len(plan.Guns) == 0 {
		return fmt.Errorf("fire: no guns selected")
	}
	origin := plan.Guns[0].Position
	if *observer != "" {
		if origin, err = geo.Position3DFromString(*observer); err != nil {
			return fmt.Errorf("--observer: %w", err)
		}
	}

	env := orchestrator.Env{
		GunPositions: positions,
		WeaponByGun:  byGun,
		Wind:         wind.wind(),
		Arc:          arcValue,
		Solve:        a.Solver.Solve,
		SolveMulti:   a.Solver.SolveMulti,
		Parallelism:  config.GetSolverConfig().Parallelism,
		Logger:       a.Logger,
	}
	if fs.Changed("desired-impact") {
		env.DesiredImpactSec = desired
	}

	mc := mission.NewContext(*missionID)
	mc.Load(*plan, origin, *bracket)
	a.record(*missionID, "plan", util.ToMap(plan.Config), util.ToMap(plan.Summary), firstAimPoint(plan))

	d, err := dispatcher.New(a.Logger)
	if err != nil {
		return err
	}
	defer d.Close()

	deps := worker.Dependencies{
		Mission: mc,
		Env:     env,
		Journal: a.Journal,
		EPSG:    a.EPSG,
		Logger:  a.Logger,
	}
	if a.Influx != nil {
		deps.Solutions = a.Influx
	}
	worker.NewManager(deps).RegisterHandlers(d)
	a.Logger.Info("Fire session started", "mission", *missionID, "phases", len(plan.Phases))

	if *statusFile != "" {
		mon := monitor.NewService(monitor.Dependencies{
			Status: func() (any, error) {
				return d.Dispatch(ctx, dispatcher.Event{Command: "status"})
			},
			LogManager: a.SlogManager,
			StatusPath: *statusFile,
		})
		if err := mon.Start(); err != nil {
			return err
		}
		defer mon.Stop()
	}

	return session(ctx, a.Out, d)
}

// session reads operator commands until EOF, quit or cancellation.
func session(ctx context.Context, out io.Writer, d *dispatcher.Dispatcher) error {
	scanner := bufio.NewScanner(stdin)
	fmt.Fprintln(out, "ready; type help for commands")
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		e := dispatcher.ParseLine(scanner.Text(), time.Now())
		switch e.Command {
		case "":
			continue
		case "quit", "exit":
			return nil
		}
		result, err := d.Dispatch(ctx, e)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if s, ok := result.(string); ok {
			fmt.Fprintln(out, s)
			continue
		}
		if err := writeJSON(out, result); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// parseObservation reads "x,y@bearing".
func parseObservation(s string) (geo.BearingObservation, error) {
	pos, bearing, ok := strings.Cut(s, "@")
	if !ok {
		return geo.BearingObservation{}, fmt.Errorf("observation %q: want x,y@bearing", s)
	}
	p, err := geo.Position3DFromString(pos)
	if err != nil {
		return geo.BearingObservation{}, fmt.Errorf("observation %q: %w", s, err)
	}
	deg, err := strconv.ParseFloat(strings.TrimSpace(bearing), 64)
	if err != nil {
		return geo.BearingObservation{}, fmt.Errorf("observation %q: invalid bearing", s)
	}
	return geo.BearingObservation{Observer: p.XY(), BearingDeg: deg}, nil
}

// parsePolar resolves "x,y[,z]:distance@bearing" from the observer's position.
func parsePolar(s string) (core.Position3D, error) {
	pos, rest, ok := strings.Cut(s, ":")
	if !ok {
		return core.Position3D{}, fmt.Errorf("polar %q: want x,y[,z]:distance@bearing", s)
	}
	observer, err := geo.Position3DFromString(pos)
	if err != nil {
		return core.Position3D{}, fmt.Errorf("polar %q: %w", s, err)
	}
	dist, bearing, ok := strings.Cut(rest, "@")
	if !ok {
		return core.Position3D{}, fmt.Errorf("polar %q: want x,y[,z]:distance@bearing", s)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(dist), 64)
	if err != nil || d < 0 {
		return core.Position3D{}, fmt.Errorf("polar %q: invalid distance", s)
	}
	deg, err := strconv.ParseFloat(strings.TrimSpace(bearing), 64)
	if err != nil {
		return core.Position3D{}, fmt.Errorf("polar %q: invalid bearing", s)
	}
	return geo.TargetFromObserver(observer, d, deg), nil
}

func runTriangulate(_ context.Context, a *app, args []string) error {
	fs := pflag.NewFlagSet("triangulate", pflag.ContinueOnError)
	method := fs.String("method", "crater", "crater or sound")
	raw := fs.StringArray("obs", nil, "observer bearing x,y@deg, repeatable")
	missionID := fs.String("mission-id", "adhoc", "journal mission id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	obs := make([]geo.BearingObservation, 0, len(*raw))
	for _, s := range *raw {
		o, err := parseObservation(s)
		if err != nil {
			return err
		}
		obs = append(obs, o)
	}
	res, err := geo.Triangulate(*method, obs)
	if err != nil {
		return err
	}
	target := core.Position3D{X: res.Position.X, Y: res.Position.Y}
	input := struct {
		Method       string                   `json:"method"`
		Observations []geo.BearingObservation `json:"observations"`
	}{*method, obs}
	a.record(*missionID, "triangulate", util.ToMap(input), util.ToMap(res), &target)
	return writeJSON(a.Out, res)
}
