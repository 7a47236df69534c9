package mentoria

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mentoria-ai/mentoria/api"
	"github.com/mentoria-ai/mentoria/internal/config"
	"github.com/mentoria-ai/mentoria/pkg/log"
)

var (
	serveHost   string
	servePort   int
	serveAPIKey string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveHost == "" {
			serveHost = cfg.Server.Host
		}
		if servePort == 0 {
			servePort = cfg.Server.Port
		}

		app, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		server := api.New(
			config.ServerConfig{Host: serveHost, Port: servePort},
			app.handlerDeps(),
			app.websocketConfig(),
			serveAPIKey,
		)

		errCh := make(chan error, 1)
		go func() {
			log.Info("server listening", "host", serveHost, "port", servePort)
			errCh <- server.Start()
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-quit:
		}

		fmt.Println("\nShutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		fmt.Println("Server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "bind address (defaults to config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (defaults to config)")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "require this API key on /api routes")
}
