package main

import (
	"errors"
	"fmt"
	"os"

	"outreach/internal/control"
	"outreach/internal/operation"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var configOperation string

// configFlags maps the connect form fields to config set flags.
var configFlags = []struct {
	flag  string
	key   string
	usage string
}{
	{"job-title", operation.KeyJobTitle, "Job title must contain this keyword"},
	{"location", operation.KeyLocation, "Location must contain this keyword"},
	{"min-mutual", operation.KeyMinMutual, "Minimum mutual connections"},
	{"daily-limit", operation.KeyDailyLimit, "Invitations per run"},
	{"note", operation.KeyPersonalNote, "Personal note template ({{firstName}}, {{fullName}})"},
}

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "List the available operations and their fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().Operations(cmd.Context())
		if err != nil {
			return err
		}
		printOperations(os.Stdout, resp)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the configuration of an operation",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().OperationConfig(cmd.Context(), operation.ID(configOperation))
		if err != nil {
			return err
		}
		printConfig(os.Stdout, resp)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update configuration fields",
	Long: `Merges the given fields into the current configuration and saves it.
Fields not named keep their value; an empty value clears a field.

Example:
  outreach config set --job-title engineer --daily-limit 10 --note "Hi {{firstName}}"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		updates := changedFields(cmd.Flags())
		if len(updates) == 0 {
			return errors.New("nothing to set")
		}
		id := operation.ID(configOperation)
		client := newClient()
		current, err := client.OperationConfig(cmd.Context(), id)
		if err != nil {
			return err
		}
		values := current.Values
		if values == nil {
			values = map[string]any{}
		}
		for k, v := range updates {
			values[k] = v
		}
		resp, err := client.SaveOperationConfig(cmd.Context(), id, values)
		var apiErr *control.APIError
		if errors.As(err, &apiErr) && len(apiErr.Response.FieldErrors) > 0 {
			fmt.Fprintln(os.Stderr, apiErr.Response.Message)
			printFieldErrors(os.Stderr, apiErr.Response.FieldErrors)
			return errRejected
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, resp.Message)
		printConfig(os.Stdout, resp)
		return nil
	},
}

func init() {
	configCmd.PersistentFlags().StringVar(&configOperation, "op", string(operation.Connect), "Operation id")
	for _, f := range configFlags {
		configSetCmd.Flags().String(f.flag, "", f.usage)
	}
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// changedFields returns the form values for every flag given on the command
// line. Values stay strings; the server validates and converts them.
func changedFields(flags *pflag.FlagSet) map[string]any {
	out := map[string]any{}
	for _, f := range configFlags {
		if !flags.Changed(f.flag) {
			continue
		}
		v, _ := flags.GetString(f.flag)
		out[f.key] = v
	}
	return out
}
