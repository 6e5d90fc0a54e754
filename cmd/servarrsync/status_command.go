package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/JohnFawkes/plex-servarr-sync/internal/history"
)

type statusPayload struct {
	Running       bool            `json:"running"`
	WorkerAlive   bool            `json:"workerAlive"`
	QueueDepth    int             `json:"queueDepth"`
	InFlight      int             `json:"inFlight"`
	RecentHistory []history.Entry `json:"recentHistory"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon state and recent sync history",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := fetchStatus(ctx.serverURL())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}

			fmt.Fprintf(out, "Worker:   %s\n", onOff(status.WorkerAlive, "running", "stopped"))
			fmt.Fprintf(out, "Queue:    %d queued, %d in flight\n", status.QueueDepth, status.InFlight)

			entries := status.RecentHistory
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "History:  empty")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				detail := ""
				if entry.Error != "" {
					detail = entry.Error
				}
				rows = append(rows, []string{
					entry.Timestamp.Local().Format(time.DateTime),
					entry.Label,
					entry.Path,
					string(entry.Status),
					entry.Duration.Round(time.Second).String(),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Time", "Source", "Path", "Result", "Duration", "Detail"},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum history rows to show")
	return cmd
}

func fetchStatus(baseURL string) (*statusPayload, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/status")
	if err != nil {
		return nil, fmt.Errorf("contact daemon at %s: %w", baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon returned %s", resp.Status)
	}

	var status statusPayload
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}

func onOff(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}
