package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	domainuser "github.com/servora/servora/internal/domain/user"
	"github.com/servora/servora/internal/infrastructure/auth"
	"github.com/servora/servora/internal/infrastructure/config"
	"github.com/servora/servora/internal/infrastructure/database"
	"github.com/servora/servora/internal/infrastructure/repository"
	"github.com/servora/servora/internal/shared/authorization"
	"github.com/servora/servora/internal/shared/constants"
	"github.com/servora/servora/internal/shared/logger"
)

var (
	env        string
	configPath string

	userName   string
	email      string
	role       string
	department string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the user directory",
		Long:  `Create directory users and issue bearer tokens for them.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", constants.EnvDevelopment, "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	cmd.AddCommand(newCreateCommand(), newTokenCommand())
	return cmd
}

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE:  runCreate,
	}

	cmd.Flags().StringVar(&userName, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&role, "role", authorization.RoleUser.String(), "Role (user, agent, manager, admin)")
	cmd.Flags().StringVar(&department, "department", "", "Department")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE:  runToken,
	}
}

func initEnv() (*config.Config, *repository.UserRepository, error) {
	cfg, err := config.Load(env, configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger, cfg.Server.IsDebug()); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := database.Init(&cfg.Database); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return cfg, repository.NewUserRepository(database.Get(), logger.NewLogger()), nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	parsedRole, err := authorization.ParseUserRole(role)
	if err != nil {
		return err
	}

	_, users, err := initEnv()
	if err != nil {
		return err
	}
	defer database.Close()

	u, err := domainuser.NewUser(uuid.NewString(), userName, email, parsedRole, department)
	if err != nil {
		return err
	}
	if err := users.Create(context.Background(), u); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), u.ID())
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, users, err := initEnv()
	if err != nil {
		return err
	}
	defer database.Close()

	u, err := users.GetByID(context.Background(), args[0])
	if err != nil {
		return err
	}
	if !u.IsActive() {
		return fmt.Errorf("user %s is inactive", u.ID())
	}

	jwtService := auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer, cfg.Auth.JWT.TTL())
	token, err := jwtService.Generate(u.AsActor())
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
