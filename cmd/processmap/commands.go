package main

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/processmap"
	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

func orderCommand() *cli.Command {
	return &cli.Command{
		Name:  "order",
		Usage: "Print the execution order of a workflow",
		Flags: []cli.Flag{workflowFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			wf, err := processmap.LoadFile(cmd.String("workflow"))
			if err != nil {
				return err
			}
			color.Cyan("Execution order for %s:", workflowLabel(wf))
			for i, step := range wf.ExecutionOrder() {
				fmt.Printf("  %2d. %s (%s)", i+1, step.Name, step.ID)
				if len(step.Dependencies) > 0 {
					fmt.Printf(" after %v", step.Dependencies)
				}
				fmt.Println()
			}
			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check a workflow definition and optional mock fixtures",
		Flags: []cli.Flag{workflowFlag(), mocksFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			wf, err := processmap.LoadFile(cmd.String("workflow"))
			if err != nil {
				return err
			}
			color.Green("Workflow %s is valid (%d steps)", workflowLabel(wf), len(wf.Steps()))

			if path := cmd.String("mocks"); path != "" {
				mocks, err := processmap.LoadMocksFile(path)
				if err != nil {
					return err
				}
				color.Green("Mocks are valid (%d mocks)", len(mocks))
				for _, step := range wf.Steps() {
					if mock := processmap.ResolveMock(step.Integration, mocks); mock != nil {
						fmt.Printf("  %s -> %s mock %s\n", step.ID, mock.MockType, mock.ID)
					}
				}
			}
			return nil
		},
	}
}

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:      "runs",
		Usage:     "List stored test runs, or show one run by id",
		ArgsUsage: "[run-id]",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output in JSON format",
			},
		}, storeFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store, closeStore, err := openRunStore(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeStore()
			if runID := cmd.Args().First(); runID != "" {
				run, err := store.LoadRun(ctx, runID)
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %q not found", runID)
				}
				return printJSON(run)
			}

			summaries, err := store.ListRuns(ctx)
			if err != nil {
				return err
			}
			if cmd.Bool("json") {
				return printJSON(summaries)
			}
			if len(summaries) == 0 {
				color.Blue("No stored runs")
				return nil
			}
			for _, summary := range summaries {
				fmt.Printf("%s  %s  %-9s %-7s %v\n",
					summary.StartedAt.Format("2006-01-02 15:04:05"),
					summary.RunID,
					summary.Status,
					summary.OverallResult,
					summary.Duration)
			}
			return nil
		},
	}
}
