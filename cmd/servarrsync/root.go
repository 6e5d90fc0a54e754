package main

import (
	"fmt"
	"net"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JohnFawkes/plex-servarr-sync/internal/config"
)

const defaultServerURL = "http://127.0.0.1:5000"

// commandContext carries flag state shared across subcommands.
type commandContext struct {
	serverFlag *string
	configFlag *string
}

// serverURL resolves the daemon base URL: the --server flag wins, then the
// configured bind address, then the stock default.
func (c *commandContext) serverURL() string {
	if flag := strings.TrimSpace(*c.serverFlag); flag != "" {
		return strings.TrimRight(flag, "/")
	}
	cfg, _, _, err := config.Load(*c.configFlag)
	if err != nil {
		return defaultServerURL
	}
	return urlFromBind(cfg.Server.Bind)
}

// urlFromBind converts a listener bind address into a dialable base URL,
// substituting loopback for wildcard hosts.
func urlFromBind(bind string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return defaultServerURL
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, port))
}

func newRootCommand() *cobra.Command {
	var serverFlag string
	var configFlag string

	ctx := &commandContext{serverFlag: &serverFlag, configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "servarrsync",
		Short:         "Control and inspect the servarrsync daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Daemon base URL (default derived from config)")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newSyncCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
