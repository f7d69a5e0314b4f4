package main

import (
	"context"
	"os"

	"outreach/internal/control"
	"outreach/internal/engine"

	"github.com/spf13/cobra"
)

var (
	debugProfileID string
	debugNote      string
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Drive single page actions on the active tab",
	Long: `Runs one page action at a time against the foreground search results
tab. Nothing is evaluated or logged, and invitations are always simulated.
Every action is rejected while a run is in progress.`,
}

var debugScrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "List the profiles on the active tab",
	RunE:  debugCommand((*control.Client).DebugScrape),
}

var debugInviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Walk a simulated invitation",
	Long: `Opens the invitation dialog for a profile and fills the note, stopping
short of sending. Without --profile-id the first profile on the page is used.

Example:
  outreach debug invite --note "Hi, I'd like to connect."`,
	RunE: debugCommand(func(c *control.Client, ctx context.Context) (engine.DebugResponse, error) {
		return c.DebugInvite(ctx, debugProfileID, debugNote)
	}),
}

var debugNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Click the next page control",
	RunE:  debugCommand((*control.Client).DebugNextPage),
}

var debugTabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "List the browser tabs tracked by the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().Tabs(cmd.Context())
		if err != nil {
			return err
		}
		printTabs(os.Stdout, resp)
		return nil
	},
}

func init() {
	debugInviteCmd.Flags().StringVar(&debugProfileID, "profile-id", "", "Profile to invite (default: first on the page)")
	debugInviteCmd.Flags().StringVar(&debugNote, "note", "", "Note to type into the dialog")

	debugCmd.AddCommand(debugScrapeCmd)
	debugCmd.AddCommand(debugInviteCmd)
	debugCmd.AddCommand(debugNextCmd)
	debugCmd.AddCommand(debugTabsCmd)
}

func debugCommand(call func(*control.Client, context.Context) (engine.DebugResponse, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		resp, err := call(newClient(), cmd.Context())
		if err != nil {
			return err
		}
		printDebug(os.Stdout, resp)
		if !resp.OK {
			return errRejected
		}
		return nil
	}
}
