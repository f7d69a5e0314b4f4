package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"outreach/internal/control"
	"outreach/internal/engine"
	"outreach/internal/types"

	"github.com/spf13/cobra"
)

var (
	logsLimit int
	logsClear bool
	batchFile string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine state and the last result",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := newClient().Status(cmd.Context())
		if err != nil {
			return err
		}
		printStatus(os.Stdout, status)
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start inviting on the active search results tab",
	RunE:  engineCommand((*control.Client).Start),
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the current run",
	RunE:  engineCommand((*control.Client).Stop),
}

var dryRunCmd = &cobra.Command{
	Use:   "dry-run",
	Short: "Evaluate the built-in sample profiles against the saved config",
	RunE:  engineCommand((*control.Client).DryRun),
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Scrape and evaluate the active tab once without inviting",
	RunE:  engineCommand((*control.Client).CollectOnce),
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Evaluate profiles read from a JSON file (or - for stdin)",
	Long: `Reads a JSON array of profiles and evaluates them against the saved
configuration. Nothing is sent.

Example:
  outreach batch --file profiles.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := readProfiles(batchFile)
		if err != nil {
			return err
		}
		resp, err := newClient().ProfileBatch(cmd.Context(), profiles)
		if err != nil {
			return err
		}
		printResponse(os.Stdout, resp)
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the newest activity log entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if logsClear {
			return engineCommand((*control.Client).ClearLogs)(cmd, args)
		}
		resp, err := newClient().FetchLogs(cmd.Context(), logsLimit)
		if err != nil {
			return err
		}
		if !resp.OK {
			return fmt.Errorf("%s", resp.Message)
		}
		printLogs(os.Stdout, resp.Logs)
		return nil
	},
}

func init() {
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", engine.DefaultLogLimit, "Number of entries")
	logsCmd.Flags().BoolVar(&logsClear, "clear", false, "Delete every entry instead of listing")
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "-", "Profiles JSON file")
}

func newClient() *control.Client {
	addr := serverAddr
	if addr == "" {
		addr = appConfig.Control.Listen
	}
	timeout := clientTimeout
	if timeout <= 0 {
		timeout = appConfig.GetClientTimeout()
	}
	return control.NewClient("http://"+addr, timeout)
}

func engineCommand(call func(*control.Client, context.Context) (engine.Response, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		resp, err := call(newClient(), cmd.Context())
		if err != nil {
			return err
		}
		printResponse(os.Stdout, resp)
		if !resp.OK {
			return errRejected
		}
		return nil
	}
}

var errRejected = errors.New("command rejected")

func readProfiles(path string) ([]types.Profile, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	var profiles []types.Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	return profiles, nil
}
