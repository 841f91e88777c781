package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rpupo63/blog-cms-backend/api"
	"github.com/rpupo63/blog-cms-backend/config"
	"github.com/rpupo63/blog-cms-backend/database"
	"github.com/rpupo63/blog-cms-backend/models"
	"github.com/rpupo63/blog-cms-backend/services"
)

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), v)
		},
	}
	cmd.Flags().String("port", "8080", "Port to listen on")
	cmd.Flags().String("db-type", "postgres", "Database type (postgres, supa or sqlite)")
	_ = v.BindPFlag("PORT", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("DB_TYPE", cmd.Flags().Lookup("db-type"))
	return cmd
}

func serve(ctx context.Context, v *viper.Viper) error {
	log.Info().Msg("Initializing app...")

	c, err := loadConfig(ctx, v, "PORT", "DB_TYPE")
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
	currentDB := database.New(db)

	server, err := api.NewServer(currentDB, c)
	if err != nil {
		return fmt.Errorf("error initializing server: %w", err)
	}

	stopPublisher := services.StartPublisher(
		context.Background(),
		currentDB.PostRepo(),
		clock.New(),
		config.GetDuration(c, "PUBLISH_INTERVAL_SECONDS", time.Minute),
	)
	defer stopPublisher()

	errChannel := make(chan error, 2)
	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Msgf("Closing server: %v", fatalErr)

	server.ShutdownGracefully(30 * time.Second)
	return nil
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
