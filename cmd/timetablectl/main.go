package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/scheduler"
	"github.com/noah-isme/timetable-engine/pkg/export"
)

const (
	exitOK         = 0
	exitError      = 1
	exitInfeasible = 2
)

type options struct {
	mode        string
	input       string
	format      string
	seed        int64
	seedSet     bool
	maxSteps    int
	budget      time.Duration
	slotMinutes int
	loadSpread  int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("timetablectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.mode, "mode", "generate", "generate or audit")
	fs.StringVar(&opts.input, "input", "", "request JSON file, - for stdin")
	fs.StringVar(&opts.format, "format", "json", "output format for generate: json, csv or pdf")
	fs.Int64Var(&opts.seed, "seed", 0, "random seed for tie-breaking, lexical order when unset")
	fs.IntVar(&opts.maxSteps, "max-steps", 0, "backtrack step budget")
	fs.DurationVar(&opts.budget, "budget", 0, "time budget")
	fs.IntVar(&opts.slotMinutes, "slot-minutes", 60, "length of one slot unit")
	fs.IntVar(&opts.loadSpread, "load-spread", 3, "faculty daily load spread tolerated by the audit")
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			opts.seedSet = true
		}
	})
	switch opts.format {
	case "json", "csv", "pdf":
	default:
		fmt.Fprintf(stderr, "unknown format %q, expected json, csv or pdf\n", opts.format)
		return exitError
	}
	if opts.input == "" {
		fmt.Fprintln(stderr, "-input is required")
		return exitError
	}

	raw, err := readInput(opts.input)
	if err != nil {
		fmt.Fprintf(stderr, "read input: %v\n", err)
		return exitError
	}

	switch opts.mode {
	case "generate":
		return generate(ctx, opts, raw, stdout, stderr)
	case "audit":
		return audit(opts, raw, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown mode %q\n", opts.mode)
		return exitError
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func generate(ctx context.Context, opts options, raw []byte, stdout, stderr io.Writer) int {
	var req dto.GenerateTimetableRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		fmt.Fprintf(stderr, "decode generate request: %v\n", err)
		return exitError
	}

	engineOpts := scheduler.Options{
		MaxBacktrackSteps: req.Config.MaxBacktrackSteps,
		TimeBudget:        time.Duration(req.Config.TimeBudgetMs) * time.Millisecond,
		RandomSeed:        req.Config.RandomSeed,
		SoftWeights:       req.Config.SoftWeightOverrides,
		SlotMinutes:       opts.slotMinutes,
		Meta:              req.Meta,
	}
	if opts.maxSteps > 0 {
		engineOpts.MaxBacktrackSteps = opts.maxSteps
	}
	if opts.budget > 0 {
		engineOpts.TimeBudget = opts.budget
	}
	if opts.seedSet {
		seed := opts.seed
		engineOpts.RandomSeed = &seed
	}

	result, err := scheduler.Generate(ctx, req.State, engineOpts)
	if err != nil {
		var ierr *scheduler.InfeasibilityError
		if errors.As(err, &ierr) {
			_ = writeJSON(stdout, ierr.Report)
			fmt.Fprintln(stderr, "timetable infeasible")
			return exitInfeasible
		}
		fmt.Fprintf(stderr, "generate: %v\n", err)
		return exitError
	}
	if result.Truncated {
		fmt.Fprintf(stderr, "warning: %s, %d of %d sessions placed\n", result.Reason, result.Stats.Placed, result.Stats.Sessions)
	}

	switch opts.format {
	case "csv":
		content, err := export.NewCSVExporter().Render(export.TimetableDataset(*result.Timetable, opts.slotMinutes))
		if err != nil {
			fmt.Fprintf(stderr, "render csv: %v\n", err)
			return exitError
		}
		_, _ = stdout.Write(content)
	case "pdf":
		title := req.Meta.Title
		if title == "" {
			title = "Weekly Timetable"
		}
		content, err := export.NewPDFExporter().Render(export.TimetableDataset(*result.Timetable, opts.slotMinutes), title)
		if err != nil {
			fmt.Fprintf(stderr, "render pdf: %v\n", err)
			return exitError
		}
		_, _ = stdout.Write(content)
	default:
		if err := writeJSON(stdout, result); err != nil {
			fmt.Fprintf(stderr, "encode result: %v\n", err)
			return exitError
		}
	}
	return exitOK
}

func audit(opts options, raw []byte, stdout, stderr io.Writer) int {
	var req dto.AuditTimetableRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		fmt.Fprintf(stderr, "decode audit request: %v\n", err)
		return exitError
	}
	conflicts, err := scheduler.Audit(req.Timetable, req.State, scheduler.AuditOptions{
		SlotMinutes: opts.slotMinutes,
		LoadSpread:  opts.loadSpread,
	})
	if err != nil {
		fmt.Fprintf(stderr, "audit: %v\n", err)
		return exitError
	}
	if err := writeJSON(stdout, conflicts); err != nil {
		fmt.Fprintf(stderr, "encode conflicts: %v\n", err)
		return exitError
	}
	return exitOK
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
