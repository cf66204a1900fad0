// Command aliascheck prints the alias verdicts of every pair of memory
// accesses in the functions of the given packages.
//
// Usage:
//
//	aliascheck [--config aliascheck.yml] [--func name] <package query>...
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/BarrensZeppelin/alias"
	"github.com/BarrensZeppelin/alias/goir"
	"github.com/BarrensZeppelin/alias/internal/config"
	"github.com/BarrensZeppelin/alias/internal/report"
	"github.com/BarrensZeppelin/alias/ir"
	"github.com/BarrensZeppelin/alias/pkgutil"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
)

func main() {
	app := cli.NewApp()
	app.Name = "aliascheck"
	app.Usage = "print alias verdicts for the memory accesses of Go functions"
	app.ArgsUsage = "<package query>..."
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "read settings from the YAML `file`"},
		cli.StringFlag{Name: "dir", Usage: "alternative directory to run the go build tool in"},
		cli.StringSliceFlag{Name: "func", Usage: "only analyze functions with the given `name`"},
		cli.StringSliceFlag{Name: "exclude", Usage: "skip the functions of packages below `path`"},
		cli.IntFlag{Name: "parallel", Usage: "number of functions analyzed at once"},
		cli.BoolFlag{Name: "all", Usage: "also report pairs of reference values"},
		cli.BoolFlag{Name: "tests", Usage: "include test packages"},
		cli.BoolFlag{Name: "no-color", Usage: "disable coloured output"},
		cli.BoolFlag{Name: "debug", Usage: "enable debug output for logging"},
		cli.StringFlag{Name: "cpuprofile", Usage: "write cpu profile to `file`"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func overrides(c *cli.Context) config.Overrides {
	o := config.Overrides{
		Packages:    c.Args(),
		Exclude:     c.StringSlice("exclude"),
		Functions:   c.StringSlice("func"),
		Dir:         c.String("dir"),
		Parallelism: c.Int("parallel"),
	}
	flag := func(name string, negate bool) *bool {
		if !c.IsSet(name) {
			return nil
		}
		v := c.Bool(name) != negate
		return &v
	}
	o.OnlyMemory = flag("all", true)
	o.Tests = flag("tests", false)
	o.Color = flag("no-color", true)
	return o
}

func run(c *cli.Context) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})
	if c.Bool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	cfg = cfg.Merge(overrides(c))
	if len(cfg.Packages) == 0 {
		return config.ErrNoPackages
	}

	if path := c.String("cpuprofile"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Error("Failed to close ", f.Name())
			}
		}()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	pkgs, err := pkgutil.LoadPackagesWithConfig(&packages.Config{
		Mode:  pkgutil.LoadMode,
		Tests: cfg.Tests,
		Dir:   cfg.Dir,
	}, cfg.Packages...)
	if err != nil {
		return fmt.Errorf("loading packages failed: %w", err)
	}
	log.Infof("Loaded %d packages", len(pkgs))

	prog, spkgs := pkgutil.BuildSSA(pkgs, 0)
	log.Info("Built packages")

	var fns []*ssa.Function
	for _, fn := range pkgutil.Functions(prog, spkgs, false) {
		pkg := pkgutil.PackageOf(fn)
		if pkg != nil && cfg.Excluded(pkg.Pkg.Path()) {
			continue
		}
		if cfg.Selected(fn.String(), fn.Name()) {
			fns = append(fns, fn)
		}
	}
	log.Infof("Analyzing %d functions", len(fns))

	tables := make([]*report.Table, len(fns))
	var eg errgroup.Group
	eg.SetLimit(cfg.Parallelism)
	for i, fn := range fns {
		i, fn := i, fn
		eg.Go(func() error {
			t, err := analyze(fn, !cfg.OnlyMemory)
			tables[i] = t
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	p := report.NewPrinter(os.Stdout, cfg.Color)
	for _, t := range tables {
		if err := p.Print(t); err != nil {
			return err
		}
	}
	return p.Summary(tables)
}

// analyze lowers fn into a graph of its own and collects its verdicts.
func analyze(fn *ssa.Function, values bool) (*report.Table, error) {
	g, m, err := goir.Lower(fn, goir.NewTables())
	if err != nil {
		return nil, err
	}
	a := alias.New(g, alias.Config{Logger: log.WithField("func", fn.String())})
	a.Run()

	describe := func(inst *ir.Inst) string {
		if instr := m.Source(inst); instr != nil && instr.Pos().IsValid() {
			pos := fn.Prog.Fset.Position(instr.Pos())
			return fmt.Sprintf("%s:%d: %s", filepath.Base(pos.Filename), pos.Line, inst)
		}
		return inst.String()
	}
	return report.Collect(a, describe, values), nil
}
