package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/rpupo63/blog-cms-backend/config"
	"github.com/rpupo63/blog-cms-backend/database"
	"github.com/rpupo63/blog-cms-backend/errs"
	"github.com/rpupo63/blog-cms-backend/models"
)

func newMigrateCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and seed the default roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cmd.Context(), v, "DB_TYPE")
			if err != nil {
				return err
			}
			db, err := database.Open(c)
			if err != nil {
				return err
			}
			if err := models.Migrate(db); err != nil {
				return err
			}
			if err := models.SeedRoles(db); err != nil {
				return err
			}
			log.Info().Msg("migration complete")
			return nil
		},
	}
}

func newSeedCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the admin user from ADMIN_USERNAME and ADMIN_PASSWORD",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cmd.Context(), v, "DB_TYPE")
			if err != nil {
				return err
			}
			db, err := database.Open(c)
			if err != nil {
				return err
			}
			if err := models.Migrate(db); err != nil {
				return err
			}
			if err := models.SeedRoles(db); err != nil {
				return err
			}

			created, err := seedAdmin(cmd.Context(), database.New(db), c)
			if err != nil {
				return err
			}
			if created {
				log.Info().Str("username", config.GetString(c, "ADMIN_USERNAME", "")).Msg("admin user created")
			} else {
				log.Info().Msg("admin user already exists, nothing to do")
			}
			return nil
		},
	}
}

// seedAdmin creates the configured admin account unless a user with that
// name already exists.
func seedAdmin(ctx context.Context, db database.Database, c map[string]string) (bool, error) {
	username := config.GetString(c, "ADMIN_USERNAME", "")
	if username == "" {
		return false, errs.NewEnvironmentVariableError("ADMIN_USERNAME")
	}
	password := config.GetString(c, "ADMIN_PASSWORD", "")
	if len(password) < 8 {
		return false, errs.NewConfigError("ADMIN_PASSWORD", errors.New("must be at least 8 characters"))
	}

	_, err := db.UserRepo().FindByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errs.IsNotFound(err) {
		return false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	user := &models.User{
		Username:     username,
		Name:         username,
		Email:        config.GetString(c, "ADMIN_EMAIL", ""),
		PasswordHash: string(hash),
		RoleName:     models.RoleAdmin,
	}
	if err := db.UserRepo().Create(ctx, user); err != nil {
		// A concurrent seed run created the same user first.
		if errs.IsAlreadyExists(err) {
			return false, nil
		}
		return false, errs.NewDatabaseError("create", "admin user", err)
	}
	return true, nil
}

func newGenerateCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate typed query helpers and report unmapped columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cmd.Context(), v, "DB_TYPE")
			if err != nil {
				return err
			}
			db, err := database.Open(c)
			if err != nil {
				return err
			}

			if v.GetBool("report-only") {
				n, err := models.ColumnMismatchReport(db, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if n > 0 {
					return fmt.Errorf("%d unmapped columns", n)
				}
				return nil
			}

			out := strings.TrimSpace(v.GetString("out"))
			if out == "" {
				return errs.NewConfigError("out", errors.New("output directory is required"))
			}
			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			return models.GenerateModels(db, out, cmd.OutOrStdout())
		},
	}
	cmd.Flags().String("out", "./query", "Directory for the generated query package")
	cmd.Flags().Bool("report-only", false, "Only print the column mismatch report")
	_ = v.BindPFlag("out", cmd.Flags().Lookup("out"))
	_ = v.BindPFlag("report-only", cmd.Flags().Lookup("report-only"))
	return cmd
}
