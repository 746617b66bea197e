package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var defineExec string

var defineCmd = &cobra.Command{
	Use:   "define <locator> <name>",
	Short: "Register a plugin as a callable SQL function",
	Long: `define loads the plugin at <locator>, resolves its declared contract and
installs a SQL function named <name> synthesized from it. A plugin without
a contract, or with a malformed one, fails the registration outright.

Functions are registered in-process; list the plugin under "plugins" in the
config file to have it defined on every start. Use --exec to run a
statement against the fresh definition in the same process.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		locator, name := args[0], args[1]
		if err := rt.bridge.Define(cmd.Context(), locator, name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "defined function %s from %s\n", name, locator)

		if defineExec != "" {
			return runStatement(cmd, rt, defineExec)
		}
		return nil
	},
}

func init() {
	defineCmd.Flags().StringVar(&defineExec, "exec", "", "statement to run after defining")
	rootCmd.AddCommand(defineCmd)
}
