package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/monitoria-simple/config"
	"github.com/monitoria-simple/database"
	"github.com/monitoria-simple/dto"
	"github.com/monitoria-simple/models"
	"github.com/monitoria-simple/services"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StorageDriver != config.DriverPostgres {
				return errors.New("migrate needs STORAGE_DRIVER=postgres")
			}
			db, err := database.Open(cfg, log)
			if err != nil {
				return err
			}
			return database.Migrate(db, log)
		},
	}
}

func newTokenCommand() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			r := models.Role(role)
			if ttl <= 0 {
				ttl = cfg.TokenTTL
			}

			token, expiresAt, err := services.NewAuthService(cfg.JWTSecret, ttl).GenerateToken(userID, r)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(dto.TokenResponse{
					Token:     token,
					UserID:    userID,
					Role:      string(r),
					ExpiresAt: expiresAt,
				})
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendRow(table.Row{"User", userID})
			tw.AppendRow(table.Row{"Role", r})
			tw.AppendRow(table.Row{"Expires", expiresAt.Format(time.RFC3339)})
			tw.Render()
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id placed in the token subject")
	cmd.Flags().StringVar(&role, "role", string(models.RoleProfessor), "Role: admin, professor or student")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the token as JSON")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
