package main

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/dop251/jsarray"
)

// globalState is everything the commands take from the process, so tests can
// run them against a memory filesystem and buffers.
type globalState struct {
	fs     afero.Fs
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	env    map[string]string
	logger *logrus.Logger

	flags globalFlags
	// config is set by the root command before any subcommand runs.
	config jsarray.Config
}

type globalFlags struct {
	configPath string
	logLevel   string
	noColor    bool
}

func newGlobalState() *globalState {
	env := jsarray.EnvMap()
	logger := &logrus.Logger{
		Out:       os.Stderr,
		Formatter: new(logrus.TextFormatter),
		Hooks:     make(logrus.LevelHooks),
		Level:     logrus.WarnLevel,
	}
	return &globalState{
		fs:     afero.NewOsFs(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		env:    env,
		logger: logger,
		flags: globalFlags{
			configPath: env["JSARRAY_CONFIG"],
		},
	}
}

// runtimeOptions builds the engine options from the consolidated config.
func (gs *globalState) runtimeOptions() ([]jsarray.Option, error) {
	opts, err := gs.config.Options()
	if err != nil {
		return nil, err
	}
	return append(opts, jsarray.WithLogger(gs.logger)), nil
}

func (gs *globalState) newRuntime() (*jsarray.Runtime, error) {
	opts, err := gs.runtimeOptions()
	if err != nil {
		return nil, err
	}
	return jsarray.New(opts...), nil
}
