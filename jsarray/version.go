package main

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dop251/jsarray"
)

func getVersionCmd(gs *globalState) *cobra.Command {
	var isJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the engine version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isJSON {
				_, err := fmt.Fprintf(gs.stdout, "jsarray v%s (%s)\n", jsarray.Version, runtime.Version())
				return err
			}
			details, err := json.Marshal(map[string]interface{}{
				"version":   jsarray.Version,
				"goVersion": runtime.Version(),
				"methods":   jsarray.Methods(),
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(gs.stdout, string(details))
			return err
		},
	}
	cmd.Flags().BoolVar(&isJSON, "json", false, "output version information in JSON format")
	return cmd
}
