package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"casevault/internal/config"
	"casevault/internal/database"
	"casevault/internal/domain/claim"
	"casevault/internal/domain/push"
	"casevault/internal/domain/staff"
	"casevault/internal/middleware"
	jwtsvc "casevault/internal/pkg/jwt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrate(&claim.Claim{}, &staff.Staff{}); err != nil {
		log.Fatal(err)
	}

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	hub := push.NewHub()

	// With Redis configured, events fan out across instances; otherwise the
	// local hub is the whole channel.
	var publisher push.Publisher = hub
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.RedisURL != "" {
		bridge, err := push.NewBridge(cfg.RedisURL, hub)
		if err != nil {
			log.Fatal(err)
		}
		defer bridge.Close()
		go bridge.Run(ctx)
		publisher = bridge
	}

	claimRepo := claim.NewRepository(db)
	claimService := claim.NewService(claimRepo, publisher, cfg.ClaimTimeout)
	claimHandler := claim.NewHandler(claimService)

	staffRepo := staff.NewRepository(db)
	staffService := staff.NewService(staffRepo, j)
	staffHandler := staff.NewHandler(staffService)

	wsHandler := push.NewWSHandler(hub, j)

	expiryJob := claim.NewExpiryJob(claimService, cfg.ExpirySweepSchedule)
	if err := expiryJob.SetupAndStart(); err != nil {
		log.Fatal(err)
	}
	defer expiryJob.Stop()

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())

	v1 := r.Group("/api/v1")
	{
		// public
		staffHandler.RegisterRoutes(v1)

		// game backend
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalTokenAuth(cfg.InternalToken))
		{
			claimHandler.RegisterInternalRoutes(internal)
		}

		// staff dashboard
		protected := v1.Group("/")
		protected.Use(middleware.Auth(j))
		{
			claimHandler.RegisterStaffRoutes(protected, middleware.RateLimit(rate.Limit(5), 10))
		}
	}

	// WebSocket authenticates via query token, outside the header middleware.
	wsHandler.RegisterRoutes(r)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()
	log.Printf("casevault api listening on %s", cfg.HTTPAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
