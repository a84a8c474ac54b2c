package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/deepnoodle-ai/processmap"
	"github.com/fatih/color"
)

// consoleCallbacks prints live progress of a run
type consoleCallbacks struct {
	processmap.BaseTestCallbacks
}

func (c *consoleCallbacks) OnStepStart(ctx context.Context, event *processmap.StepStartEvent) {
	color.White("[%d] %s ...", event.Sequence, event.StepName)
}

func (c *consoleCallbacks) OnStepComplete(ctx context.Context, result *processmap.StepResult) {
	mocked := ""
	if result.WasMocked {
		mocked = fmt.Sprintf(" (mock: %s)", result.MockSource)
	}
	switch result.Status {
	case processmap.StepStatusPassed:
		color.Green("[%d] %s passed in %dms%s", result.Sequence, result.StepName, result.DurationMs, mocked)
	case processmap.StepStatusSkipped:
		color.Yellow("[%d] %s skipped: %s", result.Sequence, result.StepName, result.ErrorMessage)
	default:
		color.Red("[%d] %s failed: %s%s", result.Sequence, result.StepName, result.ErrorMessage, mocked)
	}
	for _, finding := range result.ValidationResults {
		if finding.Passed {
			continue
		}
		if finding.Severity == processmap.SeverityError {
			color.Red("      %s: %s", finding.Check, finding.Message)
		} else {
			color.Yellow("      %s: %s", finding.Check, finding.Message)
		}
	}
}

func (c *consoleCallbacks) OnError(ctx context.Context, err error) {
	color.Magenta("      executor error: %v", err)
}

func printRunSummary(run *processmap.TestRun) {
	fmt.Println()
	color.White("Run %s finished in %dms", run.ID, run.DurationMs)
	color.White("Steps: %d total, %d passed, %d failed, %d skipped",
		run.TotalSteps, run.PassedSteps, run.FailedSteps, run.SkippedSteps)

	switch run.OverallResult {
	case processmap.OverallResultPass:
		color.Green("Result: %s", run.OverallResult)
	case processmap.OverallResultPartial:
		color.Yellow("Result: %s", run.OverallResult)
	default:
		color.Red("Result: %s", run.OverallResult)
	}
	if run.ErrorMessage != "" {
		color.Red("Error: %s", run.ErrorMessage)
	}
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
