package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"devdb/pkg/common"
	"devdb/pkg/common/config"
	"devdb/pkg/common/env"
	"devdb/pkg/migrate"
	"devdb/pkg/service"
)

type cliState struct {
	configDir string
	envName   string
	cfg       *config.Config
}

// NewRootCommand builds the devdb command tree.
func NewRootCommand() *cobra.Command {
	st := &cliState{}
	root := &cobra.Command{
		Use:           "devdb",
		Short:         "Guarded development database client and reset tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.Init(st.configDir)
			if err != nil {
				return err
			}
			if st.envName != "" {
				cfg.Environment = st.envName
				config.Set(cfg)
			}
			st.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&st.configDir, "config", "c", "", "directory containing config.json")
	root.PersistentFlags().StringVarP(&st.envName, "env", "e", "", "override the configured environment")

	root.AddCommand(newResetCommand(st), newServeCommand(st), newEnvCommand(st))
	return root
}

func newResetCommand(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop the development database and re-apply all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := service.NewService(ctx, st.cfg)
			if err != nil {
				return err
			}
			defer svc.Close(context.Background())
			return svc.ResetNow(ctx)
		},
	}
}

func newServeCommand(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the database admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return RunAPI(ctx, st.cfg)
		},
	}
}

func newEnvCommand(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the detected environment mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := env.Detect(st.cfg)
			fmt.Fprintf(cmd.OutOrStdout(), "mode=%s production=%t browser=%t test=%t placeholder=%t\n",
				m, m.Production, m.Browser, m.Test, m.PlaceholderOnly())
			return nil
		},
	}
}

// Execute runs the CLI and returns the process exit code. A failed migration
// tool run exits with the tool's own code.
func Execute(ctx context.Context, args []string) int {
	root := NewRootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, "devdb:", err)
	if code, ok := migrate.ExitCode(err); ok && code > 0 {
		return code
	}
	if errors.Is(err, migrate.ErrProductionReset) {
		return 2
	}
	return 1
}
