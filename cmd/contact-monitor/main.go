package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"contact-monitor/internal/alert"
	"contact-monitor/internal/config"
	"contact-monitor/internal/engine"
	"contact-monitor/internal/ledger"
	"contact-monitor/internal/risk"
	"contact-monitor/internal/source"
	logpkg "contact-monitor/pkg/logger"
	"contact-monitor/pkg/mqtt"
	redispkg "contact-monitor/pkg/redis"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化Logger
	logger, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "contact-monitor")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting contact-monitor service",
		zap.String("version", "1.0.0"),
		zap.String("source_backend", cfg.Source.Backend),
		zap.String("ledger_backend", cfg.Ledger.Backend),
		zap.Bool("require_both_cameras", cfg.Collision.RequireBothCameras),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 接触台账存储
	store, err := newLedgerStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create ledger store", zap.Error(err))
	}
	defer store.Close()

	// 检测帧来源
	frontSource, sideSource, cleanup, err := newFrameSources(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create frame sources", zap.Error(err))
	}
	defer cleanup()

	// 告警通道
	alertLog, err := alert.NewLog(cfg.Collision.AlertLogDir, logger)
	if err != nil {
		logger.Fatal("Failed to create alert log", zap.Error(err))
	}
	notifiers, mqttCleanup := newNotifiers(cfg, logger)
	defer mqttCleanup()

	alerts := alert.NewSystem(alert.Options{
		MinRisk:           cfg.Collision.MinRiskForAlert,
		DurationThreshold: secondsToDuration(cfg.Collision.AlertDurationSec),
		Cooldown:          secondsToDuration(cfg.Collision.AlertCooldownSec),
		EnableAudio:       cfg.Collision.EnableAudio,
	}, alertLog, notifiers, logger)

	// 风险累计
	masks := risk.NewMaskMemory(secondsToDuration(cfg.Contact.MaskDecaySec))
	accumulator := risk.NewPairRiskAccumulator(
		cfg.Contact.BaseRate,
		cfg.Contact.EventPenalty,
		cfg.Contact.MaskEffect,
		masks, store, logger,
	)

	session := engine.NewSession(engine.Options{
		IOUThreshold:       cfg.Collision.IOUThreshold,
		DistanceThreshold:  cfg.Collision.DistanceThreshold,
		OverlapThreshold:   cfg.Contact.OverlapThreshold,
		PairSyncWindow:     secondsToDuration(cfg.Contact.PairSyncWindow),
		FrameInterval:      cfg.Engine.FrameInterval,
		RequireBothCameras: cfg.Collision.RequireBothCameras,
		FrontView:          cfg.Engine.FrontView,
		SideView:           cfg.Engine.SideView,
	}, frontSource, sideSource, accumulator, masks, alerts, logger)

	// 在 goroutine 中启动会话
	done := make(chan error, 1)
	go func() {
		done <- session.Run(ctx)
	}()

	// 等待中断信号或会话结束
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		<-done
	case err := <-done:
		if err != nil {
			logger.Error("Session ended with error", zap.Error(err))
		}
	}

	logger.Info("Service stopped")
}

// newLedgerStore 按配置选择台账后端
func newLedgerStore(cfg *config.Config, logger *zap.Logger) (ledger.Store, error) {
	if cfg.Ledger.Backend == "postgres" {
		return ledger.NewPostgresStore(cfg.GetDSN(), logger)
	}
	return ledger.NewFileStore(cfg.Contact.LedgerDir, logger)
}

// newFrameSources 按配置选择帧来源后端
func newFrameSources(ctx context.Context, cfg *config.Config, logger *zap.Logger) (source.FrameSource, source.FrameSource, func(), error) {
	if cfg.Source.Backend == "replay" {
		front, err := source.NewReplaySource(cfg.Source.FrontReplay, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		side, err := source.NewReplaySource(cfg.Source.SideReplay, logger)
		if err != nil {
			front.Close()
			return nil, nil, nil, err
		}
		return front, side, func() {
			front.Close()
			side.Close()
		}, nil
	}

	client := redispkg.NewClient(redispkg.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redispkg.Ping(ctx, client); err != nil {
		redispkg.Close(client)
		return nil, nil, nil, err
	}
	front, err := source.NewRedisSource(ctx, client, cfg.Source.FrontStream, cfg.Source.ConsumerGroup, cfg.Source.ConsumerName+"-front", cfg.Source.BatchSize, logger)
	if err != nil {
		redispkg.Close(client)
		return nil, nil, nil, err
	}
	side, err := source.NewRedisSource(ctx, client, cfg.Source.SideStream, cfg.Source.ConsumerGroup, cfg.Source.ConsumerName+"-side", cfg.Source.BatchSize, logger)
	if err != nil {
		redispkg.Close(client)
		return nil, nil, nil, err
	}
	return front, side, func() { redispkg.Close(client) }, nil
}

// newNotifiers 创建可选的 MQTT 告警通道，Broker 为空时禁用
func newNotifiers(cfg *config.Config, logger *zap.Logger) ([]alert.Notifier, func()) {
	if cfg.MQTT.Broker == "" {
		return nil, func() {}
	}
	client, err := mqtt.NewClient(mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		QoS:      cfg.MQTT.QoS,
	})
	if err != nil {
		// 告警推送是尽力而为的通道，连接失败不阻止启动
		logger.Warn("mqtt_connect_failed_alerts_disabled", zap.Error(err))
		return nil, func() {}
	}
	return []alert.Notifier{alert.NewMQTTNotifier(client, cfg.MQTT.Topic, logger)}, func() { client.Disconnect() }
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
