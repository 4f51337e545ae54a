package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dop251/jsarray"
)

const (
	exitFailure     = 1
	exitScriptError = 64
)

// exitError carries the process exit code of a failed command.
type exitError struct {
	err  error
	code int
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func rootFlagSet(gs *globalState) *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.StringVarP(&gs.flags.configPath, "config", "c", gs.flags.configPath, "TOML config file (env JSARRAY_CONFIG)")
	flags.StringVar(&gs.flags.logLevel, "log-level", "", "log level: panic, fatal, error, warning, info, debug or trace")
	flags.BoolVar(&gs.flags.noColor, "no-color", false, "disable colored output")
	return flags
}

func newRootCommand(gs *globalState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "jsarray",
		Short:         "run scripts and scenarios against the array engine",
		Version:       jsarray.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return gs.setup()
		},
	}
	cmd.SetOut(gs.stdout)
	cmd.SetErr(gs.stderr)
	cmd.PersistentFlags().AddFlagSet(rootFlagSet(gs))
	cmd.AddCommand(
		getRunCmd(gs),
		getScenariosCmd(gs),
		getInspectCmd(gs),
		getVersionCmd(gs),
	)
	return cmd
}

// setup consolidates the configuration and applies it to the logger.
func (gs *globalState) setup() error {
	conf, err := jsarray.GetConsolidatedConfig(gs.fs, gs.flags.configPath, gs.env)
	if err != nil {
		return err
	}
	gs.config = conf
	level, err := conf.Level()
	if err != nil {
		return err
	}
	if gs.flags.logLevel != "" {
		if level, err = logrus.ParseLevel(gs.flags.logLevel); err != nil {
			return err
		}
	}
	gs.logger.SetLevel(level)
	gs.logger.SetOutput(gs.stderr)
	if gs.flags.noColor {
		gs.logger.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	}
	gs.logger.Debugf("jsarray version %s", jsarray.Version)
	return nil
}

func (gs *globalState) color(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if gs.flags.noColor {
		c.DisableColor()
	}
	return c
}

func execute(gs *globalState, args []string) int {
	cmd := newRootCommand(gs)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	code := exitFailure
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
	}
	fmt.Fprintln(gs.stderr, gs.color(color.FgRed).Sprint(err.Error()))
	return code
}
