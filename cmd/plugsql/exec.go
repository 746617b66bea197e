package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plugsql/plugsql/bridge"
)

var execCmd = &cobra.Command{
	Use:   "exec <statement>",
	Short: "Run a SQL statement against the function catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()
		if err := rt.bootstrap(cmd.Context()); err != nil {
			return err
		}
		return runStatement(cmd, rt, args[0])
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
}

// runStatement executes one statement. Against the SQLite engine queries
// print their rows; the memory engine only records statements.
func runStatement(cmd *cobra.Command, rt *runtime, stmt string) error {
	if rt.sqlite == nil {
		return rt.engine.Exec(cmd.Context(), stmt)
	}

	rows, err := rt.sqlite.DB().QueryContext(cmd.Context(), stmt)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for rows.Next() {
		values := make([]any, len(cols))
		scan := make([]any, len(cols))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return err
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			row[col] = values[i]
		}
		line, err := json.Marshal(row)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(line))
	}
	return rows.Err()
}

// renderCmd prints the PL/pgSQL text a definition would install on a
// SQL-text engine, for operators running the bridge against PostgreSQL.
var renderCmd = &cobra.Command{
	Use:   "render <locator> <name>",
	Short: "Print the CREATE OR REPLACE FUNCTION text for a plugin",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		locator, name := args[0], args[1]
		md, err := rt.bridge.Metadata(cmd.Context(), locator)
		if err != nil {
			return err
		}
		def, err := bridge.Synthesize(locator, name, md, rt.bridge.Invoker())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), def.SQL())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
}
