// main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"voisss-backend/chains"
	"voisss-backend/config"
	"voisss-backend/database"
	"voisss-backend/handlers"
	"voisss-backend/ipfs"
	"voisss-backend/middleware"
	"voisss-backend/services"
	"voisss-backend/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var rootCmd = &cobra.Command{
	Use:           "voisss",
	Short:         "Missions, rewards and audio pinning for VOISSS",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          func(cmd *cobra.Command, args []string) error { return serve(cmd.Context()) },
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background workers",
	RunE:  func(cmd *cobra.Command, args []string) error { return serve(cmd.Context()) },
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.AddCommand(serveCmd, sweepCmd, seedCmd)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

// app holds everything the commands share.
type app struct {
	cfg        *config.Config
	db         database.Store
	missions   *services.MissionService
	rewards    *services.RewardService
	ipfs       *services.IPFSService
	staging    *services.TempStorage
	security   *services.SecurityService
	recordings *services.RecordingService
}

func build(ctx context.Context) (*app, error) {
	cfg := config.Load()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	staging, err := services.NewTempStorage(cfg.Staging)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare staging dir: %w", err)
	}

	// Without a primary every upload is staged until the provider is configured.
	primary, fallbacks, err := ipfs.NewProviders(ctx, cfg.IPFS)
	if err != nil {
		log.Printf("⚠️ [IPFS] %v", err)
	}

	missions := services.NewMissionService(db)
	a := &app{
		cfg:        cfg,
		db:         db,
		missions:   missions,
		rewards:    services.NewRewardService(db, missions),
		ipfs:       services.NewIPFSService(cfg.IPFS, primary, fallbacks, staging),
		staging:    staging,
		security:   services.NewSecurityService(cfg.Security),
		recordings: services.NewRecordingService(chains.NewRecorders(ctx, cfg.Chains)...),
	}
	return a, nil
}

func serve(ctx context.Context) error {
	a, err := build(ctx)
	if err != nil {
		return err
	}
	defer a.db.Close()
	cfg := a.cfg

	if cfg.ServiceToken == "" {
		return errors.New("SERVICE_TOKEN environment variable not set")
	}

	if err := a.missions.Init(ctx); err != nil {
		return fmt.Errorf("failed to seed missions: %w", err)
	}

	worker := workers.NewStagingWorker(a.staging, a.ipfs, cfg.Staging.SweepInterval)
	a.ipfs.OnStaged = worker.Trigger

	sched, err := services.StartMaintenanceScheduler(a.security, a.missions, cfg.Security.CleanupInterval, cfg.Security.MissionExpiryInterval)
	if err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Shutdown()

	app := fiber.New(fiber.Config{
		BodyLimit: int(handlers.MaxAudioBytes) + 1<<20,
		// Agent ids and route params outlive the request in the security maps.
		Immutable: true,
	})

	// Bait paths are scored before the gateway check so scanners never see a 401.
	handlers.SetupHoneypots(app, a.security, cfg.Security.HoneypotPaths)

	// 🔐 Every other request must come through the gateway.
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Agent-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupMissionRoutes(app, a.missions)
	handlers.SetupRewardRoutes(app, a.rewards, services.NewAuthClient(cfg.AuthServiceURL, cfg.ServiceToken))
	handlers.SetupRecordingRoutes(app, a.ipfs, a.recordings)
	handlers.SetupAgentRoutes(app, a.security, a.missions, a.ipfs)
	handlers.SetupAdminRoutes(app, handlers.AdminDeps{
		Missions: a.missions,
		Rewards:  a.rewards,
		IPFS:     a.ipfs,
		Staging:  a.staging,
		Security: a.security,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error {
		log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
		log.Printf("✅ CORS configured for origins: %s", strings.Join(cfg.AllowedOrigins, ","))
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})
	return g.Wait()
}
