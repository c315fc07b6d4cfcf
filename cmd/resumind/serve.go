package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/resumind/internal/config"
	"github.com/jonathan/resumind/internal/llm"
	"github.com/jonathan/resumind/internal/server"
	"github.com/jonathan/resumind/internal/server/ratelimit"
)

var (
	servePort int
	serveTier string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long:  `Start the HTTP server that renders the pages and exposes the JSON API.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().StringVar(&serveTier, "tier", string(llm.TierStandard), "Model tier: lite, standard or advanced")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if servePort != 0 {
		a.Config.Port = servePort
	}
	if err := a.EnableAnalysis(ctx, llm.ModelTier(serveTier)); err != nil {
		return err
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}

	srv, err := server.New(server.Deps{
		Config:      a.Config,
		Logger:      a.Logger.Named("http"),
		Users:       a.Users,
		JWT:         server.NewJWTService(jwtConfig),
		Resumes:     a.Resumes,
		Analyzer:    a.Analyzer,
		Files:       a.Files,
		Docs:        a.Docs,
		RateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		Ping:        a.Ping,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}
