package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JohnFawkes/plex-servarr-sync/internal/config"
)

type syncResult struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
	Path   string `json:"path"`
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var user string
	var pass string

	cmd := &cobra.Command{
		Use:   "sync <path>",
		Short: "Manually trigger a sync for a media folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(args[0])
			if path == "" {
				return fmt.Errorf("path must not be empty")
			}

			authUser, authPass := user, pass
			if authPass == "" {
				if cfg, _, _, err := config.Load(*ctx.configFlag); err == nil {
					authUser = cfg.Server.ManualUser
					authPass = cfg.Server.ManualPass
				}
			}
			if authPass == "" {
				return fmt.Errorf("manual trigger credentials required (--pass or server.manual_pass in config)")
			}

			result, err := postManual(ctx.serverURL(), authUser, authPass, path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch result.Status {
			case "queued":
				fmt.Fprintf(out, "Queued %s\n", result.Path)
			case "deduplicated":
				fmt.Fprintf(out, "Already pending: %s\n", result.Path)
			default:
				fmt.Fprintf(out, "Skipped: %s\n", result.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "admin", "Manual trigger username")
	cmd.Flags().StringVar(&pass, "pass", "", "Manual trigger password (default from config)")
	return cmd
}

func postManual(baseURL, user, pass, path string) (*syncResult, error) {
	payload, err := json.Marshal(map[string]string{"path": path})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/webhook/manual", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(user, pass)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contact daemon at %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusServiceUnavailable:
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("daemon rejected credentials")
	default:
		return nil, fmt.Errorf("daemon returned %s", resp.Status)
	}

	var result syncResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}
