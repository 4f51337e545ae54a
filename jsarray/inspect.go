package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dop251/goja"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dop251/jsarray"
	"github.com/dop251/jsarray/jsbind"
	"github.com/dop251/jsarray/scenario"
)

type inspectCmd struct {
	gs *globalState

	isJSON   bool
	cborOut  string
	cborFrom string
}

func getInspectCmd(gs *globalState) *cobra.Command {
	c := &inspectCmd{gs: gs}
	cmd := &cobra.Command{
		Use:   "inspect [expression]",
		Short: "Show the storage of an array",
		Long: `Evaluate a script expression that produces an array (a regular one or a
NativeArray) and show how the engine stores it. With --from the array is
read from a CBOR snapshot instead.`,
		Example: `  jsarray inspect 'NativeArray(1, 2).concat([1.5])'
  jsarray inspect --json '[1, , "x"]'
  jsarray inspect --cbor a.cbor 'NativeArray.ofLength(200000)'`,
		Args: cobra.MaximumNArgs(1),
		RunE: c.run,
	}
	cmd.Flags().BoolVar(&c.isJSON, "json", false, "print the snapshot as JSON")
	cmd.Flags().StringVar(&c.cborOut, "cbor", "", "write the snapshot as CBOR to this file")
	cmd.Flags().StringVar(&c.cborFrom, "from", "", "read a CBOR snapshot instead of evaluating an expression")
	return cmd
}

func (c *inspectCmd) array(r *jsarray.Runtime, args []string) (*jsarray.Array, error) {
	if c.cborFrom != "" {
		if len(args) > 0 {
			return nil, errors.New("an expression cannot be combined with --from")
		}
		data, err := afero.ReadFile(c.gs.fs, c.cborFrom)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		s, err := jsarray.UnmarshalSnapshot(data)
		if err != nil {
			return nil, err
		}
		return r.FromSnapshot(s)
	}
	if len(args) == 0 {
		return nil, errors.New("an expression or --from is required")
	}
	vm := goja.New()
	b := jsbind.New(vm, r, c.gs.logger)
	b.Enable()
	v, err := vm.RunString(args[0])
	if err != nil {
		return nil, &exitError{err: err, code: exitScriptError}
	}
	nv, err := b.ToNative(v)
	if err != nil {
		return nil, err
	}
	a, ok := nv.(*jsarray.Array)
	if !ok {
		return nil, errors.Errorf("the expression produced %s, not an array", v.String())
	}
	return a, nil
}

func (c *inspectCmd) run(_ *cobra.Command, args []string) error {
	r, err := c.gs.newRuntime()
	if err != nil {
		return err
	}
	a, err := c.array(r, args)
	if err != nil {
		return err
	}
	s, err := a.Snapshot()
	if err != nil {
		return err
	}
	if c.cborOut != "" {
		data, err := jsarray.MarshalSnapshot(s)
		if err != nil {
			return err
		}
		if err := afero.WriteFile(c.gs.fs, c.cborOut, data, 0o644); err != nil {
			return errors.WithStack(err)
		}
		c.gs.logger.WithField("bytes", len(data)).Debugf("wrote %s", c.cborOut)
	}
	if c.isJSON {
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = fmt.Fprintln(c.gs.stdout, string(data))
		return err
	}

	h := s.Header
	tw := tabwriter.NewWriter(c.gs.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "shape\t%s\n", h.Shape)
	fmt.Fprintf(tw, "length\t%d\n", h.Length)
	fmt.Fprintf(tw, "values\t%d\n", h.NumValues)
	fmt.Fprintf(tw, "vector\t%d (capacity %d, bias %d)\n", h.VectorLength, h.Capacity, h.IndexBias)
	fmt.Fprintf(tw, "sparse\t%d (sparse mode %v)\n", h.SparseCount, h.SparseMode)
	fmt.Fprintf(tw, "copy on write\t%v\n", h.CopyOnWrite)
	fmt.Fprintf(tw, "length read-only\t%v\n", h.LengthReadOnly)
	if h.Length <= 64 {
		fmt.Fprintf(tw, "elements\t%s\n", scenario.Format(a))
	}
	return tw.Flush()
}
