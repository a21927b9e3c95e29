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

	https_server "MarketMind/api/http"
	"MarketMind/internal/config"
	"MarketMind/internal/initial"
	"MarketMind/internal/modules/ai/infrastructure/persistence"
	"MarketMind/internal/modules/ai/infrastructure/queue"
	"MarketMind/pkg/redis"
	"MarketMind/pkg/zlog"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Globals struct {
	Config string `help:"Path to the TOML config file." default:"${config_path}" type:"path"`
}

type cli struct {
	Globals

	Serve   ServeCmd   `cmd:"" default:"withargs" help:"Run the HTTP API (and MCP endpoint when enabled)."`
	Worker  WorkerCmd  `cmd:"" help:"Consume profile ingest events and replay stale ones."`
	Migrate MigrateCmd `cmd:"" help:"Create relational tables and the vector collection, then exit."`
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("marketmind"),
		kong.Description("Marketing assistant retrieval and generation service."),
		kong.Vars{"config_path": config.DefaultConfigPath},
	)
	err := kctx.Run(&c.Globals)
	_ = zlog.Sync()
	kctx.FatalIfErrorf(err)
}

// bootstrap 加载配置并初始化日志
func bootstrap(g *Globals) *config.Config {
	if err := config.LoadConfig(g.Config); err != nil {
		fmt.Fprintf(os.Stderr, "config %s not loaded, using defaults: %v\n", g.Config, err)
	}
	conf := config.GetConfig()
	zlog.Init(zlog.Options{
		LogPath:    conf.LogConfig.LogPath,
		Level:      conf.LogConfig.Level,
		MaxSizeMB:  conf.LogConfig.MaxSizeMB,
		MaxBackups: conf.LogConfig.MaxBackups,
		MaxAgeDays: conf.LogConfig.MaxAgeDays,
	})
	return conf
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

type ServeCmd struct {
	SkipMigrate bool `help:"Do not auto-migrate relational tables on start."`
}

func (s *ServeCmd) Run(g *Globals) error {
	// 1. 加载配置
	conf := bootstrap(g)
	ctx, stop := signalContext()
	defer stop()

	// 2. 初始化外部依赖
	db, err := initial.NewGormDB(conf)
	if err != nil {
		return fmt.Errorf("connect mysql: %w", err)
	}
	if !s.SkipMigrate {
		if err := initial.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	initial.InitRedis(ctx, conf)
	defer func() { _ = redis.Close() }()

	ai, err := initial.NewAIComponents(ctx, conf)
	if err != nil {
		return err
	}
	defer func() { _ = ai.Close() }()

	pub, err := initial.NewIngestPublisher(conf)
	if err != nil {
		zlog.Warn("kafka publisher unavailable, profile ingest runs inline", zap.Error(err))
		pub = nil
	}
	if pub != nil {
		defer func() { _ = pub.Close() }()
	}

	// 3. 启动 HTTP 服务
	router := https_server.NewRouter(conf, https_server.Dependencies{DB: db, AI: ai, Publisher: pub})
	addr := fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port)
	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// 4. 优雅关闭
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server start failed: %w", err)
		}
	case <-ctx.Done():
	}
	zlog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	zlog.Info("server stopped")
	return nil
}

type WorkerCmd struct {
	MetricsAddr string `help:"Expose Prometheus metrics on this address (empty disables)." default:""`
}

func (w *WorkerCmd) Run(g *Globals) error {
	conf := bootstrap(g)
	if !initial.KafkaEnabled(conf) {
		return errors.New("worker requires kafkaConfig.brokers")
	}
	ctx, stop := signalContext()
	defer stop()

	db, err := initial.NewGormDB(conf)
	if err != nil {
		return fmt.Errorf("connect mysql: %w", err)
	}
	initial.InitRedis(ctx, conf)
	defer func() { _ = redis.Close() }()

	ai, err := initial.NewAIComponents(ctx, conf)
	if err != nil {
		return err
	}
	defer func() { _ = ai.Close() }()

	pub, err := initial.NewIngestPublisher(conf)
	if err != nil {
		return fmt.Errorf("kafka publisher: %w", err)
	}
	defer func() { _ = pub.Close() }()
	consumer, err := initial.NewIngestConsumer(conf)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	defer func() { _ = consumer.Close() }()

	eventRepo := persistence.NewIngestEventRepository(db)
	profileRepo := persistence.NewBusinessProfileRepository(db)
	worker := queue.NewIngestConsumerWorker(consumer, eventRepo, profileRepo, ai.Ingest, ai.Store)
	replayer := queue.NewEventReplayer(eventRepo, pub, conf.KafkaConfig.IngestTopic, queue.ReplayerOptions{})

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return worker.Run(egCtx) })
	eg.Go(func() error { return replayer.Run(egCtx) })
	if w.MetricsAddr != "" {
		ms := &http.Server{Addr: w.MetricsAddr, Handler: ai.Metrics.Handler(), ReadHeaderTimeout: 10 * time.Second}
		eg.Go(func() error {
			if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-egCtx.Done()
			return ms.Close()
		})
	}

	zlog.Info("ingest worker started", zap.String("topic", conf.KafkaConfig.IngestTopic), zap.String("group", conf.KafkaConfig.ConsumerGroupID))
	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	zlog.Info("ingest worker stopped")
	return nil
}

type MigrateCmd struct {
	SkipVector bool `help:"Only migrate relational tables."`
}

func (m *MigrateCmd) Run(g *Globals) error {
	conf := bootstrap(g)
	ctx, stop := signalContext()
	defer stop()

	db, err := initial.NewGormDB(conf)
	if err != nil {
		return fmt.Errorf("connect mysql: %w", err)
	}
	if err := initial.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	zlog.Info("relational tables migrated")
	if m.SkipVector {
		return nil
	}

	// 构造向量库时会创建缺失的 collection 与索引
	ai, err := initial.NewAIComponents(ctx, conf)
	if err != nil {
		return err
	}
	zlog.Info("vector collection ready", zap.String("backend", conf.VectorStoreConfig.Backend))
	return ai.Close()
}
