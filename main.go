package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pibarrier/core"
	"pibarrier/internal/config"
	"pibarrier/internal/logging"
	"pibarrier/internal/metrics"
)

const (
	stageArgs    = "args"
	stageConfig  = "config"
	stageInit    = "init"
	stageCompute = "compute"
	stageOutput  = "output"
)

// stageError names the step of the run that failed.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func fail(stage string, err error) error { return &stageError{stage: stage, err: err} }

func main() {
	latch := core.NewLatch()
	stop := core.NotifyInterrupt(latch)
	code := run(os.Args[1:], os.Stdout, os.Stderr, latch)
	stop()
	os.Exit(code)
}

// run executes one computation and returns the process exit code.
func run(args []string, stdout, stderr io.Writer, latch *core.Latch) int {
	err := execute(args, stdout, stderr, latch)
	if err == nil {
		return 0
	}
	_, _ = fmt.Fprintln(stderr, err)
	return exitCode(err)
}

func exitCode(err error) int {
	var se *stageError
	if errors.As(err, &se) && (se.stage == stageArgs || se.stage == stageConfig) {
		return 2
	}
	return 1
}

func execute(args []string, stdout, stderr io.Writer, latch *core.Latch) error {
	fs := flag.NewFlagSet("pi", flag.ContinueOnError)
	fs.SetOutput(stderr)
	impl := fs.String("impl", "", "Implementation: bsp or seq (default bsp)")
	interval := fs.Uint64("interval", 0, "Iterations between interrupt checks")
	maxIter := fs.Uint64("max-iter", 0, "Per-worker iteration ceiling")
	cfgPath := fs.String("config", "", "YAML configuration file (or PI_CONFIG)")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "usage: pi [flags] [threads]\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return fail(stageArgs, err)
	}
	if fs.NArg() > 1 {
		return fail(stageArgs, fmt.Errorf("expected at most one argument, got %d: %w", fs.NArg(), core.ErrInvalidArgument))
	}

	path := *cfgPath
	if path == "" {
		path = os.Getenv("PI_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fail(stageConfig, err)
	}
	if err := config.Validate(cfg); err != nil {
		return fail(stageConfig, err)
	}

	if *impl != "" {
		cfg.Impl = *impl
	}
	if *interval != 0 {
		cfg.CheckInterval = *interval
	}
	if *maxIter != 0 {
		cfg.MaxIterations = *maxIter
	}
	if fs.NArg() == 1 {
		n, err := config.ParseThreads(fs.Arg(0))
		if err != nil {
			return fail(stageArgs, err)
		}
		cfg.Threads = n
	}
	// only flag and positional values can fail here
	if err := config.Validate(cfg); err != nil {
		return fail(stageArgs, err)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fail(stageInit, err)
	}
	log := logger.WithRun(uuid.NewString())
	defer func() { _ = log.Sync() }()

	rec := metrics.NewRecorder()
	opts := cfg.Options()
	opts.Logger = log.Logger
	opts.Observer = rec

	compute := core.BSPCompute
	if cfg.Impl == config.ImplSeq {
		compute = core.SequentialCompute
	}

	log.Info("run starting",
		zap.String("impl", cfg.Impl),
		zap.Int("threads", cfg.Threads),
		zap.Uint64("check_interval", cfg.CheckInterval),
		zap.Uint64("max_iterations", cfg.MaxIterations))

	res, err := compute(opts, latch)
	if err != nil {
		log.Error("run failed", zap.Error(err))
		return fail(stageCompute, err)
	}

	if cfg.Metrics.File != "" {
		if err := rec.WriteFile(cfg.Metrics.File); err != nil {
			return fail(stageOutput, err)
		}
	}

	if _, err := fmt.Fprintf(stdout, "%.10f\n", res.Pi); err != nil {
		return fail(stageOutput, err)
	}

	log.Info("run finished",
		zap.Float64("pi", res.Pi),
		zap.Uint64("terms", res.Terms),
		zap.Uint64("rounds", res.Rounds),
		zap.Bool("interrupted", res.Interrupted),
		zap.Duration("elapsed", res.Elapsed))
	return nil
}
