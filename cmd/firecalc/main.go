// Command firecalc solves fire missions from the command line.
//
//	firecalc solve --gun 0,0,10 --target 1500,2200 --weapon m252
//	firecalc plan --mission mission.json --gun g1=0,0 --gun g2=60,0
//	firecalc fire --mission mission.json --gun g1=0,0 --weapons g1=m252
//	firecalc triangulate --obs 0,0@45 --obs 1000,0@315
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentVersion = "0.0.1"
	BuildDate      = "unknown"
)

var errUsage = errors.New("usage: firecalc <solve|plan|fire|triangulate|version> [flags]")

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"solve":       runSolve,
	"plan":        runPlan,
	"fire":        runFire,
	"triangulate": runTriangulate,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	name := strings.ToLower(args[0])
	if name == "version" {
		fmt.Printf("firecalc %s (%s)\n", CurrentVersion, BuildDate)
		return nil
	}
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}

	a, err := newApp(os.Getenv("FIRECALC_CONFIG_DIR"), time.Now())
	if err != nil {
		return err
	}
	defer a.Close()
	a.Logger.Info("Starting up...", "command", name, "version", CurrentVersion)

	return cmd(ctx, a, args[1:])
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
