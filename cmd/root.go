package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/psds-microservice/cityfix/internal/application"
	"github.com/psds-microservice/cityfix/internal/config"
	"github.com/psds-microservice/cityfix/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "cityfix",
	Short:         "CityFix: API gateway and backend services for civic issue reporting",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runGateway,
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the public API gateway (default)",
	RunE:  runGateway,
}

// serviceCmd — подкоманда запуска одного backend-сервиса.
func serviceCmd(f config.Facade, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(f),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd.Context(), f)
		},
	}
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(serviceCmd(config.FacadeIdentity, "Run the identity service (register, login, token check)"))
	rootCmd.AddCommand(serviceCmd(config.FacadeAdmin, "Run the admin service (municipalities, statistics)"))
	rootCmd.AddCommand(serviceCmd(config.FacadeTicket, "Run the ticket service"))
	rootCmd.AddCommand(serviceCmd(config.FacadeMedia, "Run the media service (image uploads)"))
	rootCmd.AddCommand(serviceCmd(config.FacadeGeo, "Run the geo service (geocoding, map tiles)"))
	rootCmd.AddCommand(serviceCmd(config.FacadeNotification, "Run the notification service"))
	rootCmd.AddCommand(migrateCmd)
}

func loadConfig(service string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logging.Init(service, cfg.AppEnv, cfg.LogLevel)
	return cfg, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig("gateway")
	if err != nil {
		return err
	}
	app, err := application.NewGateway(cfg)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd.Context())
	defer stop()
	return app.Run(ctx)
}

func runService(parent context.Context, f config.Facade) error {
	cfg, err := loadConfig(string(f))
	if err != nil {
		return err
	}
	ctx, stop := signalContext(parent)
	defer stop()
	app, err := application.NewService(ctx, cfg, f)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
