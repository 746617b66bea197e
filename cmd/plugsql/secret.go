package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage per-plugin secrets",
	Long: `Secrets are key/value pairs stored per plugin locator. They are injected
into the plugin's sandbox as read-only config at load time and are never
visible to SQL callers.`,
}

var secretSetCmd = &cobra.Command{
	Use:   "set <locator> <key> <value>",
	Short: "Set one secret for a plugin",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		locator, key, value := args[0], args[1], args[2]
		values, err := rt.store.Get(locator)
		if err != nil {
			return err
		}
		values[key] = value
		if err := rt.store.Set(locator, values); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored secret %s for %s\n", key, locator)
		return nil
	},
}

var secretListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plugins with stored secrets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		locators, err := rt.store.Locators()
		if err != nil {
			return err
		}
		for _, locator := range locators {
			fmt.Fprintln(cmd.OutOrStdout(), locator)
		}
		return nil
	},
}

func init() {
	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretListCmd)
	rootCmd.AddCommand(secretCmd)
}
