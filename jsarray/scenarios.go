package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/dop251/jsarray/scenario"
)

type scenariosCmd struct {
	gs *globalState

	mode    string
	verbose bool
}

func getScenariosCmd(gs *globalState) *cobra.Command {
	c := &scenariosCmd{gs: gs}
	cmd := &cobra.Command{
		Use:   "scenarios [path...]",
		Short: "Run scenario files",
		Long: `Run YAML scenario files, or every .yml and .yaml file below the given
directories. Each case runs once with the fast paths enabled and once
without, unless --mode says otherwise.`,
		Args: cobra.MinimumNArgs(1),
		RunE: c.run,
	}
	cmd.Flags().StringVar(&c.mode, "mode", "both", "which paths to run: both, fast or generic")
	cmd.Flags().BoolVarP(&c.verbose, "verbose", "v", false, "list passing and skipped cases too")
	return cmd
}

func (c *scenariosCmd) modes() ([]bool, error) {
	switch c.mode {
	case "both":
		return []bool{true, false}, nil
	case "fast":
		return []bool{true}, nil
	case "generic":
		return []bool{false}, nil
	}
	return nil, errors.Errorf("invalid mode %q", c.mode)
}

func (c *scenariosCmd) run(_ *cobra.Command, args []string) error {
	modes, err := c.modes()
	if err != nil {
		return err
	}
	var files []*scenario.File
	for _, path := range args {
		fs, err := scenario.Load(c.gs.fs, path)
		if err != nil {
			return err
		}
		files = append(files, fs...)
	}

	limits, err := c.gs.config.Limits()
	if err != nil {
		return err
	}
	rn := &scenario.Runner{Limits: limits, Logger: c.gs.logger}

	var results []scenario.Result
	for _, f := range files {
		for _, fast := range modes {
			res, err := rn.RunFile(f, fast)
			if err != nil {
				return err
			}
			results = append(results, res...)
		}
	}

	pass := c.gs.color(color.FgGreen)
	fail := c.gs.color(color.FgRed, color.Bold)
	skip := c.gs.color(color.FgYellow)
	w := c.gs.stdout
	var passed, failed, skipped int
	for _, res := range results {
		switch {
		case res.Skipped != "":
			skipped++
			if c.verbose {
				fmt.Fprintf(w, "%s %s: %s\n", skip.Sprint("SKIP"), res, res.Skipped)
			}
		case res.Passed():
			passed++
			if c.verbose {
				fmt.Fprintf(w, "%s %s\n", pass.Sprint("PASS"), res)
			}
		default:
			failed++
			fmt.Fprintf(w, "%s %s\n     %v\n", fail.Sprint("FAIL"), res, res.Err)
		}
	}
	summary := fmt.Sprintf("%d passed, %d failed, %d skipped", passed, failed, skipped)
	if failed > 0 {
		fmt.Fprintln(w, fail.Sprint(summary))
		return &exitError{err: errors.Errorf("%d scenario cases failed", failed), code: exitFailure}
	}
	fmt.Fprintln(w, pass.Sprint(summary))
	return nil
}
