package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/warenvoyage/apiserver/config"
	"github.com/warenvoyage/apiserver/internal/credential"
	"github.com/warenvoyage/apiserver/internal/db"
	"github.com/warenvoyage/apiserver/internal/logging"
	"github.com/warenvoyage/apiserver/internal/services"
	"github.com/warenvoyage/apiserver/internal/store"
	"github.com/warenvoyage/apiserver/internal/token"
	"github.com/warenvoyage/apiserver/types"
)

var adminFlags struct {
	phone    string
	password string
	email    string
	fullName string
	role     string
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage platform operators",
}

// Operators are never created over HTTP; this command is the bootstrap path.
var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin or superadmin identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		role, err := types.ParseRole(adminFlags.role)
		if err != nil {
			return err
		}
		logger := logging.New(cfg.LogLevel)

		conn, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer conn.Close()

		auth := services.NewAuthService(
			store.NewUserRepository(conn),
			credential.NewHasher(cfg.Auth.BcryptCost),
			token.NewService(cfg.Auth, logger),
			nil,
			logger,
		)

		in := services.OperatorInput{
			RegisterInput: services.RegisterInput{
				Phone:    adminFlags.phone,
				Password: adminFlags.password,
				Email:    optionalFlag(adminFlags.email),
				FullName: optionalFlag(adminFlags.fullName),
			},
			Role: role,
		}
		user, err := auth.RegisterOperator(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Phone, user.ID)
		return nil
	},
}

func optionalFlag(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	flags := adminCreateCmd.Flags()
	flags.StringVar(&adminFlags.phone, "phone", "", "phone number, +225 followed by 8 digits")
	flags.StringVar(&adminFlags.password, "password", "", "initial password")
	flags.StringVar(&adminFlags.email, "email", "", "optional email address")
	flags.StringVar(&adminFlags.fullName, "full-name", "", "optional display name")
	flags.StringVar(&adminFlags.role, "role", types.RoleAdmin.String(), "admin or superadmin")
	_ = adminCreateCmd.MarkFlagRequired("phone")
	_ = adminCreateCmd.MarkFlagRequired("password")
}
