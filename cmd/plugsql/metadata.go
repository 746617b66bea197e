package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata <locator>",
	Short: "Print a plugin's resolved calling contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		md, err := rt.bridge.Metadata(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(md, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(metadataCmd)
}
