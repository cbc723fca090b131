package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/config"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/controllers"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/logging"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/middlewares"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/routes"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/services"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/utils"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/websocket"
)

func main() {
	configPath := flag.String("config", "./config/config.yml", "path to the YAML configuration")
	flag.Parse()

	// Load the configuration from the specified YAML file
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.String("path", *configPath), zap.Error(err))
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app, err := services.NewApp(ctx, cfg, logger, reg)
	if err != nil {
		logger.Fatal("failed to initialize services", zap.Error(err))
	}
	defer app.Close()

	router := setupRouter(app, reg)
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func setupRouter(app *services.App, gatherer prometheus.Gatherer) *gin.Engine {
	cfg := app.Config
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middlewares.RequestLogger(app.Logger.Named("http")))

	// Set trusted proxies (adjust as needed)
	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "provider": app.Backend.Name()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	tokens := utils.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.Expiry)*time.Minute)
	if tokens == nil {
		app.Logger.Warn("JWT secret not configured; essay routes are unauthenticated")
	}

	ec := controllers.NewEssayController(app.Grading, app.Logger.Named("controller"))
	limit := middlewares.RateLimitMiddleware(app.Limiter)
	api := router.Group("/")
	api.Use(middlewares.AuthMiddleware(tokens))
	{
		routes.SetupEssayRoutes(api, ec, websocket.ProgressHandler(app.Grading, app.Logger.Named("progress")), limit)
		routes.SetupToolRoutes(api, ec, limit)
	}

	return router
}
