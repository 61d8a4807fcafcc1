package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"krypton/internal/config"
	"krypton/internal/handler"
	"krypton/internal/infrastructure/cache"
	"krypton/internal/infrastructure/database"
	"krypton/internal/infrastructure/lock"
	"krypton/internal/infrastructure/market"
	"krypton/internal/infrastructure/mq"
	"krypton/internal/job"
	"krypton/internal/logger"
	"krypton/internal/service"
	"krypton/pkg/idgen"
)

const defaultConfigPath = "config/config.yaml"

func main() {
	configPath := pflag.StringP("config", "c", defaultConfigPath, "path to the yaml config file")
	pflag.Parse()

	// 加载配置，缺少必填项直接退出
	cfg, err := config.LoadConfig(resolveConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

// resolveConfigPath 默认配置文件不存在时只读环境变量
func resolveConfigPath(path string) string {
	if path != defaultConfigPath {
		return path
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func run(cfg *config.Config, log *zap.Logger) error {
	idgen.Init(cfg.Server.NodeID)

	db, err := database.Open(&cfg.Database)
	if errors.Is(err, database.ErrAuthentication) {
		log.Error("database rejected credentials, check KRYPTON_DATABASE_TOKEN", zap.Error(err))
		return err
	}
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	redisClient, err := cache.InitRedis(&cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	producer, err := mq.InitKafka(&cfg.Kafka)
	if err != nil {
		return err
	}
	defer producer.Close()

	locker := lock.NewBalanceLocker(redisClient, 10*time.Second, 50*time.Millisecond, 100)
	quoteCache := cache.NewQuoteCache(redisClient, 3*cfg.Market.PollInterval)

	creds := service.NewCredentialService(db, cfg, log)
	balances := service.NewBalanceService(db, locker, cfg, log)
	marketSvc := service.NewMarketService(market.NewClient(&cfg.Market, log), quoteCache, &cfg.Market, log)
	services := handler.Services{
		Auth:          service.NewAuthService(creds, balances, cache.NewSessionStore(redisClient), &cfg.Auth, log),
		Credentials:   creds,
		Balances:      balances,
		KYC:           service.NewKYCService(db, cfg, log),
		PasswordReset: service.NewPasswordResetService(db, creds, cfg, log),
		Admin:         service.NewAdminService(creds, balances, marketSvc),
		Market:        marketSvc,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if admin, created, err := creds.EnsureAdmin(ctx, cfg.Admin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	} else if created {
		log.Info("admin account created", zap.String("email", admin.Email))
	}

	// 后台任务
	go job.NewOutboxSender(db, producer, cfg, log).Start(ctx)
	go job.NewPendingEntrySweeper(db, cfg, log).Start(ctx)
	go job.NewQuotePoller(marketSvc, cfg.Market.PollInterval, cfg.Market.Timeout, log).Start(ctx)

	router := handler.SetupRouter(handler.NewHandler(services, log), cfg.Server.Mode, log)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	// 先停后台任务，再等待 HTTP 请求处理完（最多 5 秒）
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
