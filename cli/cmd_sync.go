package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chhz0/polytasks/core"
	"github.com/chhz0/polytasks/server"
	"github.com/chhz0/polytasks/transport"
	"github.com/chhz0/polytasks/types"
	"github.com/spf13/cobra"
)

var errNoTransport = errors.New("a change transport is required; set [transport] kind in config")

func newWatchCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the task list and re-print it whenever another process changes it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := openRuntime(ctx, deps.globals)
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.transport == nil {
				return errNoTransport
			}

			if err := renderTasks(deps.out, rt.manager.GetTasks()); err != nil {
				return err
			}

			syncer := core.NewSyncer(rt.manager, rt.transport, func(tasks []types.Task) {
				_, _ = fmt.Fprintln(deps.out, "--")
				_ = renderTasks(deps.out, tasks)
			}, rt.syncerOptions()...)
			if err := syncer.Start(ctx); err != nil {
				return err
			}
			defer syncer.Stop()

			<-ctx.Done()
			return nil
		},
	}
}

func newServeCommand(deps commandDeps) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task list over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), deps.globals)
			if err != nil {
				return err
			}
			defer rt.Close()

			var syncer *core.Syncer
			if rt.transport != nil {
				syncer = core.NewSyncer(rt.manager, rt.transport, nil, rt.syncerOptions()...)
			}

			if addr == "" {
				addr = rt.cfg.Server.Addr
			}
			srv, err := server.NewServer(server.Config{
				HTTPAddr:        addr,
				ShutdownTimeout: rt.cfg.Server.ShutdownTimeout,
				Manager:         rt.manager,
				Syncer:          syncer,
				Logger:          rt.logger,
			})
			if err != nil {
				return err
			}
			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func newPeersCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "peers",
		Short: "List processes currently connected to the redis transport",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), deps.globals)
			if err != nil {
				return err
			}
			defer rt.Close()

			rp, ok := rt.transport.(*transport.RedisPubSub)
			if !ok {
				return errors.New("peers requires the redis transport")
			}
			peers, err := rp.Peers(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range peers {
				self := ""
				if p == rp.NodeID() {
					self = " (this process)"
				}
				if _, err := fmt.Fprintf(deps.out, "%s%s\n", p, self); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

