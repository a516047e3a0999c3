// Command analyze inspects the mission configurations in a configs directory.
//
//	analyze summary    simulate each config's rover plan and print the outcome
//	analyze validate   check every config file and report problems
//
// The directory defaults to "configs" and can be set with --config-dir or CONFIG_DIR.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mars-rovers/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
}

// PlanSummary is the simulated outcome of one config's rover plan.
type PlanSummary struct {
	File          string
	Config        *engine.MissionConfig
	Output        []string
	Lost          int
	Saves         int
	LostPositions []engine.Position
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "inspect Mars Rovers mission configurations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing mission configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "summary",
				Usage:  "simulate each config's rover plan and print the outcome",
				Action: runSummary,
			},
			{
				Name:   "validate",
				Usage:  "validate every config file",
				Action: runValidate,
			},
		},
	}
}

// configFiles lists the *.json files in dir in name order
func configFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no configuration files found in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

func runSummary(ctx context.Context, cmd *cli.Command) error {
	files, err := configFiles(cmd.String("config-dir"))
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	for _, path := range files {
		summary, err := summarizeConfig(path)
		if err != nil {
			fmt.Fprintf(w, "\n=== %s ===\nError: %v\n", filepath.Base(path), err)
			continue
		}
		printSummary(w, summary)
	}
	return nil
}

// summarizeConfig loads a config and runs its plan on a fresh engine
func summarizeConfig(path string) (*PlanSummary, error) {
	config, err := engine.LoadMissionConfig(path)
	if err != nil {
		return nil, err
	}

	eng, err := engine.NewEngine(config)
	if err != nil {
		return nil, err
	}

	reports, err := eng.RunPlan()
	if err != nil {
		return nil, err
	}

	summary := &PlanSummary{
		File:          filepath.Base(path),
		Config:        config,
		Lost:          engine.CountLost(reports),
		Saves:         engine.CountSaves(reports),
		LostPositions: eng.Grid().LostPositions(),
	}
	for _, r := range reports {
		summary.Output = append(summary.Output, r.String())
	}
	return summary, nil
}

func printSummary(w io.Writer, s *PlanSummary) {
	fmt.Fprintf(w, "\n=== %s ===\n", s.File)
	fmt.Fprintf(w, "Name: %s\n", s.Config.Name)
	fmt.Fprintf(w, "Grid: %d %d\n", s.Config.Width, s.Config.Height)
	fmt.Fprintf(w, "Seeded lost positions: %d\n", len(s.Config.LostPositions))
	fmt.Fprintf(w, "Planned rovers: %d\n", len(s.Config.Rovers))

	for i, line := range s.Output {
		plan := s.Config.Rovers[i]
		fmt.Fprintf(w, "  %d %d %s %-16s -> %s\n", plan.X, plan.Y, plan.Orientation, plan.Instructions, line)
	}

	fmt.Fprintf(w, "Lost: %d, Saves: %d\n", s.Lost, s.Saves)
	if len(s.LostPositions) > 0 {
		parts := make([]string, len(s.LostPositions))
		for i, p := range s.LostPositions {
			parts[i] = fmt.Sprintf("(%d,%d)", p.X, p.Y)
		}
		fmt.Fprintf(w, "Lost positions after plan: %s\n", strings.Join(parts, " "))
	}
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	files, err := configFiles(cmd.String("config-dir"))
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	invalid := 0
	for _, path := range files {
		result := validateConfig(path)
		if result.Valid {
			fmt.Fprintf(w, "✅ %s\n", result.File)
		} else {
			invalid++
			fmt.Fprintf(w, "❌ %s\n", result.File)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(w, "   error: %s\n", e)
		}
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "   warning: %s\n", warning)
		}
	}

	fmt.Fprintf(w, "\n%d of %d configurations valid\n", len(files)-invalid, len(files))
	if invalid > 0 {
		return fmt.Errorf("%d invalid configuration(s)", invalid)
	}
	return nil
}

// validateConfig loads and validates a single configuration file. Errors
// make the file invalid; warnings flag plans that run but look unintended.
func validateConfig(path string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(path),
		Valid: true,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read file: %v", err))
		return result
	}

	var config engine.MissionConfig
	if err := json.Unmarshal(data, &config); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("invalid JSON: %v", err))
		return result
	}

	if err := engine.ValidateMissionConfig(&config); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	grid, err := engine.NewGrid(config.Width, config.Height)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	for i, plan := range config.Rovers {
		if !grid.InBounds(engine.Position{X: plan.X, Y: plan.Y}) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("rover %d starts outside the grid at %d %d", i+1, plan.X, plan.Y))
		}
	}

	if len(config.Rovers) == 0 {
		result.Warnings = append(result.Warnings, "no planned rovers")
	}

	return result
}
