package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/deepnoodle-ai/processmap"
	"github.com/deepnoodle-ai/processmap/telemetry"
	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute a test run of a workflow",
		Flags: append([]cli.Flag{
			workflowFlag(),
			mocksFlag(),
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Path to a YAML or JSON file with the initial test data",
				Sources: cli.EnvVars("PROCESSMAP_DATA"),
			},
			&cli.StringSliceFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Test data value in format key=value (can be used multiple times)",
			},
			&cli.StringFlag{
				Name:    "mode",
				Usage:   "Run mode (mock, schema_validation, production_readonly)",
				Value:   string(processmap.RunModeMock),
				Sources: cli.EnvVars("PROCESSMAP_MODE"),
			},
			&cli.IntFlag{
				Name:    "timeout",
				Usage:   "Run timeout in milliseconds",
				Value:   processmap.DefaultRunTimeout,
				Sources: cli.EnvVars("PROCESSMAP_TIMEOUT"),
			},
			&cli.IntFlag{
				Name:    "step-delay",
				Usage:   "Pacing delay before each step in milliseconds",
				Value:   processmap.DefaultStepDelayMs,
				Sources: cli.EnvVars("PROCESSMAP_STEP_DELAY"),
			},
			&cli.BoolFlag{
				Name:    "continue-on-failure",
				Usage:   "Keep running the remaining steps after a step fails",
				Sources: cli.EnvVars("PROCESSMAP_CONTINUE_ON_FAILURE"),
			},
			&cli.StringSliceFlag{
				Name:  "step",
				Usage: "Only run the given step id (can be used multiple times)",
			},
			&cli.StringFlag{
				Name:    "step-logs",
				Usage:   "Directory to write per-run step logs (JSON lines)",
				Sources: cli.EnvVars("PROCESSMAP_STEP_LOGS"),
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Save the run to the run store",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output results in JSON format",
			},
			&cli.BoolFlag{
				Name:    "otlp",
				Usage:   "Export traces over OTLP/HTTP (configured with OTEL_EXPORTER_OTLP_* variables)",
				Sources: cli.EnvVars("PROCESSMAP_OTLP"),
			},
		}, storeFlags()...),
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd)

	if cmd.Bool("otlp") {
		tp, err := telemetry.InitTracer(ctx, "processmap")
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("failed to flush traces", "error", err)
			}
		}()
	}

	wf, err := processmap.LoadFile(cmd.String("workflow"))
	if err != nil {
		return err
	}

	var mocks []*processmap.Mock
	if path := cmd.String("mocks"); path != "" {
		if mocks, err = processmap.LoadMocksFile(path); err != nil {
			return err
		}
	}

	testData, err := loadTestData(cmd.String("data"), cmd.StringSlice("input"))
	if err != nil {
		return err
	}

	config := processmap.TestRunConfig{
		Timeout:           int(cmd.Int("timeout")),
		StepDelayMs:       int(cmd.Int("step-delay")),
		ContinueOnFailure: cmd.Bool("continue-on-failure"),
	}
	if steps := cmd.StringSlice("step"); len(steps) > 0 {
		config.SelectedSteps = steps
	}

	mode := processmap.RunMode(cmd.String("mode"))
	if !mode.IsKnown() {
		logger.Warn("unknown run mode, steps will run as in mock mode", "mode", mode)
	}

	jsonOutput := cmd.Bool("json")
	callbacks := processmap.NewCallbackChain()
	if !jsonOutput {
		callbacks.Add(&consoleCallbacks{})
	}
	if dir := cmd.String("step-logs"); dir != "" {
		callbacks.Add(processmap.NewFileStepLogger(dir))
	}

	engine, err := processmap.NewTestEngine(processmap.TestEngineOptions{
		Workflow:  wf,
		Mocks:     mocks,
		TestData:  testData,
		RunMode:   mode,
		Config:    config,
		Callbacks: callbacks,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	if !jsonOutput {
		color.Blue("Running %s in %s mode (run %s)", workflowLabel(wf), cmd.String("mode"), engine.RunID())
	}

	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("save") {
		store, closeStore, err := openRunStore(ctx, cmd)
		if err != nil {
			return err
		}
		defer closeStore()
		if err := store.SaveRun(ctx, processmap.NewStoredRun(result)); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
	}

	if jsonOutput {
		if err := printJSON(result); err != nil {
			return err
		}
	} else {
		printRunSummary(result.TestRun)
	}

	if result.TestRun.Status == processmap.RunStatusFailed {
		return cli.Exit("", 1)
	}
	return nil
}

// loadTestData reads the initial test data from a file and applies key=value
// overrides. Values are parsed as JSON if possible, otherwise as strings.
func loadTestData(path string, inputs []string) (map[string]any, error) {
	data := map[string]any{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read test data file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("failed to parse test data file: %w", err)
		}
		if data == nil {
			data = map[string]any{}
		}
	}
	for _, input := range inputs {
		key, value, ok := strings.Cut(input, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input format %q, use key=value", input)
		}
		var parsedValue any
		if err := json.Unmarshal([]byte(value), &parsedValue); err != nil {
			parsedValue = value
		}
		data[key] = parsedValue
	}
	return data, nil
}

func newLogger(cmd *cli.Command) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
		level = slog.LevelWarn
	}
	if cmd.String("log-format") == "json" {
		return processmap.NewJSONLogger(level)
	}
	return processmap.NewLogger(level)
}

func workflowLabel(wf *processmap.Workflow) string {
	if wf.Name() != "" {
		return fmt.Sprintf("%s (%s)", wf.Name(), wf.ID())
	}
	return wf.ID()
}
