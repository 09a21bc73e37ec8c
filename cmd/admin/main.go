package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/observability"
	"github.com/spec-kit/user-service/internal/persistence"
	"github.com/spec-kit/user-service/internal/repository"
	"github.com/spec-kit/user-service/internal/service"
)

var errNoDatabase = errors.New("POSTGRES_DSN is required for admin commands")

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session holds what every subcommand needs; close releases it.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
}

func (r *session) close() {
	r.pg.Close()
	_ = r.logger.Sync()
}

func (r *session) adminService() *service.AdminService {
	repo := repository.NewUserRepository(r.pg.PoolHandle())
	dispatcher := events.NewInMemoryDispatcher(nil)
	service.NewAuditService(dispatcher, r.logger).RegisterHandlers()
	return service.NewAdminService(repo, auth.NewArgon2Hasher(r.cfg.Auth.Argon2), dispatcher, r.logger)
}

func setup(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return nil, errNoDatabase
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &session{cfg: cfg, logger: logger, pg: pg}, nil
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "user-admin",
		Short:         "Operator tooling for the user service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newCreateSuperuserCommand())
	cmd.AddCommand(newHardDeleteCommand())
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()
			return persistence.RunMigrations(cmd.Context(), rt.pg.PoolHandle(), rt.logger)
		},
	}
}

func newCreateSuperuserCommand() *cobra.Command {
	var input service.NewAccount
	cmd := &cobra.Command{
		Use:   "create-superuser",
		Short: "Create a superuser, or promote the existing user with that username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			user, created, err := rt.adminService().EnsureSuperuser(cmd.Context(), input)
			if err != nil {
				return err
			}
			verb := "promoted"
			if created {
				verb = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s superuser %s (%s)\n", verb, user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Email, "email", "", "Email for a new account")
	cmd.Flags().StringVar(&input.Username, "username", "", "Username to create or promote")
	cmd.Flags().StringVar(&input.FullName, "full-name", "", "Full name for a new account")
	cmd.Flags().StringVar(&input.Password, "password", "", "Password for a new account")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newHardDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hard-delete <id>",
		Short: "Permanently remove a user row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			user, err := rt.adminService().HardDelete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%s)\n", user.Username, user.ID)
			return nil
		},
	}
}
