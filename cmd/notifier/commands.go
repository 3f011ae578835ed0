package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Dan9191/mercury-notifier/internal/handler"
	"github.com/Dan9191/mercury-notifier/internal/repository"
	"github.com/Dan9191/mercury-notifier/internal/scheduler"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRootCmd(log *logrus.Logger) *cobra.Command {
	runCmd := newRunCmd(log)
	root := &cobra.Command{
		Use:   "notifier",
		Short: "Relay new Mercury transactions to Slack",
		Long: `notifier fetches recent transactions for the configured Mercury accounts,
keeps the ones not delivered yet and posts each one to a Slack webhook.

With no sub-command it performs a single pass and exits.`,
		Args:          cobra.NoArgs,
		RunE:          runCmd.RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd, newWatchCmd(log), newStateCmd(log))
	return root
}

func newRunCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Perform one notification pass and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, log)
			if err != nil {
				return err
			}
			defer a.Close()

			_, err = a.svc.Run(ctx)
			return err
		},
	}
}

func newWatchCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run notification passes on the SCHEDULE cron spec until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, log)
			if err != nil {
				return err
			}
			defer a.Close()

			sched, err := scheduler.New(ctx, a.cfg.Schedule, a.svc, log)
			if err != nil {
				return err
			}

			var ln net.Listener
			if a.cfg.StatusAddr != "" {
				ln, err = net.Listen("tcp", a.cfg.StatusAddr)
				if err != nil {
					return fmt.Errorf("failed to start status server: %w", err)
				}
			}

			if _, err := a.svc.Run(ctx); err != nil {
				log.Errorf("Initial run failed: %v", err)
			}
			sched.Start()

			var server *http.Server
			serveErr := make(chan error, 1)
			if ln != nil {
				server = &http.Server{
					Handler:      handler.NewRouter(handler.NewHandler(a.svc, log), a.cfg.StatusJWTSecret),
					ReadTimeout:  10 * time.Second,
					WriteTimeout: 10 * time.Second,
				}
				go func() {
					log.Infof("Starting status server on %s", ln.Addr())
					if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
						serveErr <- err
					}
				}()
			}

			var runErr error
			select {
			case <-ctx.Done():
				log.Info("Shutting down")
			case err := <-serveErr:
				log.Errorf("Status server failed: %v", err)
				runErr = fmt.Errorf("status server failed: %w", err)
			}
			if server != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					log.Warnf("Status server shutdown: %v", err)
				}
			}
			<-sched.Stop().Done()
			return runErr
		},
	}
}

func newStateCmd(log *logrus.Logger) *cobra.Command {
	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the persisted seen-transaction state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(log)
			if err != nil {
				return err
			}
			store, err := repository.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			names := make([]string, 0, len(cfg.Accounts))
			for _, a := range cfg.Accounts {
				names = append(names, a.Name)
			}
			state, err := store.Load(ctx, names)
			if err != nil {
				return err
			}
			return writeState(cmd, state, format)
		},
	}
	show.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")

	state := &cobra.Command{
		Use:   "state",
		Short: "Inspect deduplication state",
	}
	state.AddCommand(show)
	return state
}

func writeState(cmd *cobra.Command, state repository.SeenState, format string) error {
	data := make(map[string][]string, len(state))
	for acct := range state {
		data[acct] = state.IDs(acct)
	}

	var out []byte
	var err error
	switch format {
	case "json":
		out, err = json.MarshalIndent(data, "", "  ")
		out = append(out, '\n')
	case "yaml":
		out, err = yaml.Marshal(data)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
