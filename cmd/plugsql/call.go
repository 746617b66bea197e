package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plugsql/plugsql/contract"
)

var callCmd = &cobra.Command{
	Use:   "call <name> [arg]...",
	Short: "Call a defined function with positional arguments",
	Long: `call invokes a defined function through the SQL engine. Arguments bind
positionally to the synthesized signature, whose parameters are ordered by
name; inside the bridge they are always passed to the plugin by name.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()
		if err := rt.bootstrap(cmd.Context()); err != nil {
			return err
		}

		name := args[0]
		if !contract.ValidIdentifier(name) {
			return fmt.Errorf("%q is not a valid function name", name)
		}
		callArgs := make([]any, len(args)-1)
		for i, a := range args[1:] {
			callArgs[i] = a
		}

		if rt.sqlite == nil {
			result, err := rt.memory.Call(cmd.Context(), name, callArgs...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(callArgs)), ", ")
		stmt := fmt.Sprintf("SELECT %s(%s)", name, placeholders)

		var result any
		if err := rt.sqlite.DB().QueryRowContext(cmd.Context(), stmt, callArgs...).Scan(&result); err != nil {
			return err
		}
		if b, ok := result.([]byte); ok {
			result = string(b)
		}
		fmt.Fprintln(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(callCmd)
}
