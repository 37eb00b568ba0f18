package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ganot/oncall-mcp/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

// cliOptions are the overrides given on the command line. Zero values leave
// the configured value in place.
type cliOptions struct {
	Transport string
	Port      int
}

type runFunc func(cmd *cobra.Command, opts cliOptions) error

func newRootCommand(run runFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oncall-mcp [stdio|http|dual] [port]",
		Short: "Ticket triage and incident-response tools for AI assistants over MCP",
		Long: `oncall-mcp serves ticket triage, normalization and incident-response tools
over the Model Context Protocol.

Transports:
  stdio   one client on stdin/stdout (default)
  http    stateless streamable HTTP on /mcp, plus /health and /metrics
  dual    both at once

Configuration comes from the environment (JIRA_BASE_URL, JIRA_EMAIL, JIRA_TOKEN,
ONCALL_* variables), an optional .env file and an optional YAML file named by
ONCALL_CONFIG_PATH.`,
		Args:          cobra.MaximumNArgs(2),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, warnings, err := parseArgs(args)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			return run(cmd, opts)
		},
	}
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	return cmd
}

// parseArgs reads the transport selector and the port override. An unknown
// selector is an error; a bad port only produces a warning.
func parseArgs(args []string) (cliOptions, []string, error) {
	var opts cliOptions
	var warnings []string
	if len(args) > 0 {
		mode := strings.ToLower(strings.TrimSpace(args[0]))
		if !config.ValidTransport(mode) {
			return cliOptions{}, nil, fmt.Errorf("invalid transport %q: want stdio, http or dual", args[0])
		}
		opts.Transport = mode
	}
	if len(args) > 1 {
		port, err := strconv.Atoi(args[1])
		if err != nil || port < 1 || port > 65535 {
			warnings = append(warnings, fmt.Sprintf("invalid port %q, using the configured port", args[1]))
		} else {
			opts.Port = port
		}
	}
	return opts, warnings, nil
}
