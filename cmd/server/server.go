package main

import (
	"context"
	stderrors "errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"go.uber.org/zap"

	cfgpkg "WeddingRSVP/config"
	"WeddingRSVP/internal/cache"
	"WeddingRSVP/internal/middleware"
	"WeddingRSVP/internal/router"
	"WeddingRSVP/internal/rsvp"
	"WeddingRSVP/internal/service"
	"WeddingRSVP/internal/submit"
	"WeddingRSVP/pkg/cms"
	"WeddingRSVP/pkg/errors"
	"WeddingRSVP/pkg/logger"
	"WeddingRSVP/pkg/metrics"
	pkgotel "WeddingRSVP/pkg/otel"
	"WeddingRSVP/pkg/postal"
	"WeddingRSVP/pkg/snowflake"
	"WeddingRSVP/storage"
	"WeddingRSVP/storage/mq"
	"WeddingRSVP/storage/redis"
)

var version = "dev"

func main() {
	logger.Init()
	defer logger.Sync()

	cfg := &cfgpkg.Cfg

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	// OpenTelemetry 在存储之前初始化，redis / amqp 的埋点才能拿到全局 provider
	var tracing app.HandlerFunc
	var serverOpts []config.Option
	if cfg.OTelEnabled {
		shutdown, err := pkgotel.InitOpenTelemetry(ctx, pkgotel.Config{
			ServiceName:    cfg.ServiceName,
			ServiceVersion: version,
			Environment:    cfg.Environment,
			OTLPEndpoint:   cfg.OTelEndpoint,
			SampleRatio:    cfg.OTelSampleRatio,
			Attributes: map[string]string{
				"rsvp.submit_transport": cfg.SubmitTransport,
			},
		})
		if err != nil {
			logger.Logger.Warn("Failed to initialize OpenTelemetry, continuing without it", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
				defer c()
				_ = shutdown(shutdownCtx)
			}()
			tracerOpt, mw := middleware.NewServerTracerConfig()
			serverOpts = append(serverOpts, tracerOpt)
			tracing = mw
		}
	}
	if err := metrics.InitMetrics(); err != nil {
		logger.Logger.Warn("Failed to initialize metrics", zap.Error(err))
	}

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(cfg.SnowflakeMachineID, cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}
	ids, err := snowflake.NewGenerator()
	if err != nil {
		logger.Logger.Fatal("Failed to create attendee id generator", zap.Error(err))
	}

	if err := wireServices(cfg, ids); err != nil {
		logger.Logger.Fatal("Failed to wire services", zap.Error(err))
	}

	if err := middleware.Init(redis.Client()); err != nil {
		logger.Logger.Fatal("Failed to initialize middlewares", zap.Error(err))
	}

	logger.Logger.Info("Server starting",
		zap.String("service", cfg.ServiceName),
		zap.String("version", version),
		zap.String("port", cfg.ServerPort),
		zap.String("environment", cfg.Environment),
		zap.String("submit_transport", cfg.SubmitTransport),
	)

	addr := net.JoinHostPort(cfg.ServerHost, cfg.ServerPort)
	serverOpts = append(serverOpts, server.WithHostPorts(addr))
	h := server.Default(serverOpts...)

	router.Register(h, tracing)

	// 优雅关闭
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	logger.Logger.Info("Server shutting down gracefully")
}

// wireServices 组装 CMS、邮编、提交通道和表单存储，注入到 service 包
func wireServices(cfg *cfgpkg.Config, ids rsvp.IDSource) error {
	rc := redis.Client()

	guests, err := cms.NewClient(cfg.CMSEndpoint, cfg.CMSAPIKey, cfg.CMSTimeout(),
		cms.WithCache(cache.NewProtectedCache(rc, "cms:guest", cfg.CMSCacheTTL())),
		cms.WithBreaker(cache.CMSBreaker),
	)
	if err != nil {
		return err
	}

	postalClient, err := postal.NewClient(cfg.PostalAPIURL, cfg.PostalTimeout())
	if err != nil {
		return err
	}
	// 查不到住所是正常回答，不计入熔断
	cache.PostalBreaker.IsFailure = func(err error) bool {
		return !stderrors.Is(err, errors.AddressNotFound)
	}

	var submitter submit.Submitter
	switch cfg.SubmitTransport {
	case "amqp":
		submitter = submit.NewAMQPSubmitter(mq.Publisher{}, cfg.SubmitExchange, cfg.SubmitRoutingKey, cfg.SubmitTimeout())
	default:
		httpSubmitter, err := submit.NewHTTPSubmitter(cfg.SubmitEndpoint, cfg.SubmitTimeout())
		if err != nil {
			logger.Logger.Warn("Failed to create HTTP submitter, submissions will fail", zap.Error(err))
		} else {
			submitter = httpSubmitter
		}
	}

	service.SetInvitation(service.NewInvitationService(guests))
	service.SetRSVP(service.NewRSVPService(service.RSVPDeps{
		Forms: cache.NewFormStore(rc, cfg.FormTTL()),
		// 锁要覆盖整个提交过程
		Locker:        cache.NewFormLocker(rc, cfg.SubmitTimeout()+5*time.Second),
		Guard:         rsvp.NewGuard(cache.NewRedisKV(rc)),
		Guests:        guests,
		Postal:        postalClient,
		PostalBreaker: cache.PostalBreaker,
		Submitter:     submitter,
		IDs:           ids,
		Now:           time.Now,
	}))
	return nil
}
