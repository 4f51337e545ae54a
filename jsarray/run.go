package main

import (
	"fmt"
	"io"
	"runtime/pprof"
	"sort"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"github.com/google/pprof/profile"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dop251/jsarray/jsbind"
)

type runCmd struct {
	gs *globalState

	timeLimit  time.Duration
	cpuProfile string
	profileTop int
}

func getRunCmd(gs *globalState) *cobra.Command {
	c := &runCmd{gs: gs}
	cmd := &cobra.Command{
		Use:   "run [script.js]",
		Short: "Run a script with NativeArray available",
		Long: `Run a script in a goja runtime. The global NativeArray creates arrays
backed by the engine, require("jsarray") exports the same constructor.
Without a file name, or with "-", the script is read from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: c.run,
	}
	cmd.Flags().DurationVar(&c.timeLimit, "timelimit", 0, "interrupt the script after this long")
	cmd.Flags().StringVar(&c.cpuProfile, "cpuprofile", "", "write a CPU profile to this file")
	cmd.Flags().IntVar(&c.profileTop, "profile-top", 0, "print the N functions with the most CPU samples (needs --cpuprofile)")
	return cmd
}

func (c *runCmd) readSource(filename string) ([]byte, error) {
	if filename == "" || filename == "-" {
		return io.ReadAll(c.gs.stdin)
	}
	return afero.ReadFile(c.gs.fs, filename)
}

func (c *runCmd) run(_ *cobra.Command, args []string) (err error) {
	if c.profileTop > 0 && c.cpuProfile == "" {
		return errors.New("--profile-top needs --cpuprofile")
	}
	var filename string
	if len(args) > 0 {
		filename = args[0]
	}
	src, err := c.readSource(filename)
	if err != nil {
		return err
	}
	if filename == "" || filename == "-" {
		filename = "<stdin>"
	}

	if c.cpuProfile != "" {
		f, err := c.gs.fs.Create(c.cpuProfile)
		if err != nil {
			return errors.WithStack(err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return errors.WithStack(err)
		}
		defer func() {
			pprof.StopCPUProfile()
			if cerr := f.Close(); err == nil && cerr != nil {
				err = cerr
			}
			if err == nil && c.profileTop > 0 {
				err = c.printProfileTop()
			}
		}()
	}

	r, err := c.gs.newRuntime()
	if err != nil {
		return err
	}
	vm := goja.New()
	registry := require.NewRegistry()
	binding := jsbind.New(vm, r, c.gs.logger)
	binding.Register(registry)
	registry.Enable(vm)
	console.Enable(vm)
	binding.Enable()

	_ = vm.Set("print", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		fmt.Fprintln(c.gs.stdout, strings.Join(parts, " "))
		return goja.Undefined()
	})
	_ = vm.Set("load", func(call goja.FunctionCall) goja.Value {
		p := call.Argument(0).String()
		b, err := c.readSource(p)
		if err != nil {
			panic(vm.ToValue(fmt.Sprintf("Could not read %s: %v", p, err)))
		}
		v, err := vm.RunScript(p, string(b))
		if err != nil {
			panic(err)
		}
		return v
	})

	if c.timeLimit > 0 {
		timer := time.AfterFunc(c.timeLimit, func() {
			vm.Interrupt("timeout")
		})
		defer timer.Stop()
	}

	prg, err := goja.Compile(filename, string(src), false)
	if err != nil {
		return &exitError{err: err, code: exitScriptError}
	}
	if _, err := vm.RunProgram(prg); err != nil {
		var exc *goja.Exception
		var interrupted *goja.InterruptedError
		switch {
		case errors.As(err, &exc):
			err = errors.New(exc.String())
		case errors.As(err, &interrupted):
			err = errors.New(interrupted.String())
		}
		return &exitError{err: err, code: exitScriptError}
	}
	return nil
}

type profileEntry struct {
	name  string
	value int64
}

// printProfileTop reads the CPU profile back and prints the functions that
// most samples ended in.
func (c *runCmd) printProfileTop() error {
	f, err := c.gs.fs.Open(c.cpuProfile)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() { _ = f.Close() }()
	p, err := profile.Parse(f)
	if err != nil {
		return errors.Wrap(err, "parse cpu profile")
	}
	entries := flatProfile(p)
	if len(entries) > c.profileTop {
		entries = entries[:c.profileTop]
	}
	w := c.gs.stdout
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no CPU samples were recorded")
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%12s  %s\n", time.Duration(e.value), e.name); err != nil {
			return err
		}
	}
	return nil
}

// flatProfile sums the cpu value of every sample by the function of its leaf
// location, largest first.
func flatProfile(p *profile.Profile) []profileEntry {
	idx := len(p.SampleType) - 1
	for i, st := range p.SampleType {
		if st.Type == "cpu" {
			idx = i
		}
	}
	if idx < 0 {
		return nil
	}
	totals := make(map[string]int64)
	for _, s := range p.Sample {
		if len(s.Location) == 0 || len(s.Location[0].Line) == 0 || idx >= len(s.Value) {
			continue
		}
		name := "?"
		if fn := s.Location[0].Line[0].Function; fn != nil {
			name = fn.Name
		}
		totals[name] += s.Value[idx]
	}
	entries := make([]profileEntry, 0, len(totals))
	for name, v := range totals {
		entries = append(entries, profileEntry{name, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].value != entries[j].value {
			return entries[i].value > entries[j].value
		}
		return entries[i].name < entries[j].name
	})
	return entries
}
