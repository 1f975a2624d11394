package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type commandDeps struct {
	out     io.Writer
	build   BuildInfo
	globals *globalOptions
}

func NewRootCommand(out io.Writer, build BuildInfo) *cobra.Command {
	deps := commandDeps{
		out:     out,
		build:   build,
		globals: &globalOptions{},
	}

	cmd := &cobra.Command{
		Use:           "polytasks",
		Short:         "A single-list task tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&deps.globals.ConfigPath, "config", "", "Path to config.toml (env: POLYTASKS_CONFIG_PATH)")
	flags.StringVar(&deps.globals.Backend, "backend", "", "Storage backend: memory, bolt, sqlite, mysql, redis")
	flags.StringVar(&deps.globals.Path, "path", "", "Data file for bolt and sqlite backends")
	flags.StringVar(&deps.globals.LogLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		newListCommand(deps),
		newAddCommand(deps),
		newCompletionCommand(deps, "done", "Mark a task as completed", true),
		newCompletionCommand(deps, "undo", "Mark a task as not completed", false),
		newRemoveCommand(deps),
		newRemainingCommand(deps),
		newClearCommand(deps),
		newExportCommand(deps),
		newWatchCommand(deps),
		newServeCommand(deps),
		newPeersCommand(deps),
		newVersionCommand(deps),
	)
	return cmd
}

func newVersionCommand(deps commandDeps) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				enc := json.NewEncoder(deps.out)
				enc.SetIndent("", "  ")
				return enc.Encode(deps.build)
			}

			_, err := fmt.Fprintf(deps.out, "version=%s commit=%s build_time=%s\n", deps.build.Version, deps.build.Commit, deps.build.BuildTime)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print version as JSON")
	return cmd
}
