package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"parcelroute/internal/model"
	"parcelroute/internal/planner"
	"parcelroute/internal/render"
	"parcelroute/internal/store"
)

// solveFlags maps solve flags onto config keys.
var solveFlags = map[string]string{
	"algorithm":                  "algorithm",
	"seed":                       "seed",
	"polish":                     "polish",
	"initial-temperature":        "annealing.initial_temperature",
	"cooling-rate":               "annealing.cooling_rate",
	"stopping-temperature":       "annealing.stopping_temperature",
	"iterations-per-temperature": "annealing.iterations_per_temperature",
	"swap-attempts":              "annealing.swap_attempts",
	"population-size":            "genetic.population_size",
	"generations":                "genetic.generations",
	"mutation-rate":              "genetic.mutation_rate",
	"mutation-mode":              "genetic.mutation_mode",
	"elite":                      "genetic.elite",
	"parent-pool":                "genetic.parent_pool",
}

func newSolveCmd(v *viper.Viper) *cobra.Command {
	var problemPath, sample, output string

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve a problem file or built-in sample and print the plan",
		Example: "  routeopt solve --sample scenario2 --algorithm both --seed 42\n" +
			"  routeopt solve -p problem.yaml -o json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch output {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("unknown output format %q (want text, json or yaml)", output)
			}
			prob, err := readProblem(problemPath, sample)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, v, solveFlags)
			if err != nil {
				return err
			}
			pl := planner.New(cfg, store.NewMemory(), planner.Hooks{})
			run, err := pl.Solve(cmd.Context(), model.RunRequest{Problem: prob})
			if err != nil {
				return err
			}
			return writeRun(cmd.OutOrStdout(), output, run)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&problemPath, "problem", "p", "", "problem file (JSON or YAML)")
	f.StringVar(&sample, "sample", "", "built-in sample: "+strings.Join(model.SampleNames(), ", "))
	f.StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
	f.StringP("algorithm", "a", "both", "anneal, genetic or both")
	f.Int64("seed", 0, "random seed, 0 picks one")
	f.Bool("polish", false, "2-opt each route after the search")
	f.Float64("initial-temperature", 0, "annealing start temperature")
	f.Float64("cooling-rate", 0, "annealing cooling factor in (0,1)")
	f.Float64("stopping-temperature", 0, "annealing stops at or below this temperature")
	f.Int("iterations-per-temperature", 0, "annealing moves per temperature step")
	f.Int("swap-attempts", 0, "annealing draws per swap move")
	f.Int("population-size", 0, "genetic population size")
	f.Int("generations", 0, "genetic generations")
	f.Float64("mutation-rate", 0, "genetic mutation probability in [0,1]")
	f.String("mutation-mode", "", "genetic mutation mode: any-route or first-route")
	f.Int("elite", 0, "individuals carried over unchanged per generation")
	f.Int("parent-pool", 0, "top-ranked individuals parents are drawn from")
	cmd.MarkFlagsMutuallyExclusive("problem", "sample")
	cmd.MarkFlagsOneRequired("problem", "sample")
	return cmd
}

func readProblem(path, sample string) (model.ProblemIn, error) {
	if sample != "" {
		p, ok := model.Sample(sample)
		if !ok {
			return model.ProblemIn{}, fmt.Errorf("unknown sample %q (have %s)", sample, strings.Join(model.SampleNames(), ", "))
		}
		return p, nil
	}
	if path == "" {
		return model.ProblemIn{}, errors.New("one of --problem or --sample is required")
	}
	return model.LoadProblemFile(path)
}

func writeRun(w io.Writer, format string, run model.Run) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(run); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := fmt.Fprintln(w, render.Run(run))
		return err
	}
}
