package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"grid-bot-go/config"
	"grid-bot-go/gateway"
	"grid-bot-go/grid"
	"grid-bot-go/infrastructure/alert"
	"grid-bot-go/infrastructure/logger"
	"grid-bot-go/internal/engine"
	"grid-bot-go/logs"
	"grid-bot-go/metrics"
	"grid-bot-go/posttrade"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，覆盖配置文件")
	alertWebhook := flag.String("alertWebhook", "", "告警 webhook 地址，留空只写日志")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	appLog, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Outputs:    cfg.Logger.Outputs,
		OutputFile: cfg.Logger.OutputFile,
		Format:     cfg.Logger.Format,
		MaxSize:    cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer appLog.Close()
	logs.DefaultLogger = appLog.KV()

	printBanner(cfg)

	addr := cfg.MetricsAddr
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	metrics.StartMetricsServer(addr)

	signer, err := gateway.NewSigner(cfg.Gateway.PrivateKey)
	if err != nil {
		log.Fatalf("解析私钥失败: %v", err)
	}
	if cfg.Gateway.WalletAddress != "" && !strings.EqualFold(signer.Address(), cfg.Gateway.WalletAddress) {
		// 地址对不上多半是 key 配错，宁可拦在启动期
		log.Fatalf("私钥推导地址 %s 与配置 walletAddress %s 不一致", signer.Address(), cfg.Gateway.WalletAddress)
	}

	rest := &gateway.RESTClient{
		BaseURL:    cfg.Gateway.BaseURL,
		Signer:     signer,
		HTTPClient: gateway.NewDefaultHTTPClient(),
		Limiter:    gateway.NewTokenBucketLimiter(cfg.Gateway.RestRate, cfg.Gateway.RestBurst),
	}
	ws := gateway.NewWSClient(cfg.Gateway.WSEndpoint, signer.Address(), cfg.Asset)
	ws.OnConnect(func() {
		appLog.Info("WS connected", zap.String("asset", cfg.Asset))
	})
	ws.OnDisconnect(func(err error) {
		appLog.LogCycle("ws_disconnect", map[string]interface{}{"error": errString(err)})
	})
	client := &gateway.Client{
		Asset:        cfg.Asset,
		QuoteReserve: cfg.Grid.QuoteReserve,
		REST:         rest,
		WS:           ws,
	}

	channels := []alert.Channel{alert.NewLogChannel(appLog)}
	if *alertWebhook != "" {
		channels = append(channels, alert.NewWebhookChannel(*alertWebhook))
	}
	alerts := alert.NewManager(channels, 10*time.Minute)

	planner, err := engine.New(engine.Config{
		Asset:             cfg.Asset,
		Bounds:            grid.Bounds{Lower: cfg.Grid.LowerBound, Upper: cfg.Grid.UpperBound},
		MaxLevels:         cfg.Grid.MaxLevels,
		MinOrderSize:      cfg.Grid.MinOrderSize,
		CompoundThreshold: cfg.Grid.CompoundThreshold,
		PlanInterval:      cfg.Grid.PlanInterval(),
		FillQueueSize:     cfg.Grid.FillQueueSize,
	}, engine.Components{
		Gateway: client,
		Logger:  appLog,
		Alerts:  alerts,
		Fills:   posttrade.NewLedger(),
	})
	if err != nil {
		log.Fatalf("初始化规划器失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := planner.Start(ctx); err != nil {
		log.Fatalf("启动规划器失败: %v", err)
	}

	// 配置文件只在启动时生效：磁盘上的改动提醒重启，不热加载
	go func() {
		w := config.Watcher{Path: *cfgPath}
		_ = w.Start(ctx, func(path string, loadErr error) {
			if loadErr != nil {
				appLog.Warn("Config file changed but fails validation",
					zap.String("path", path), zap.Error(loadErr))
				return
			}
			appLog.Warn("Config file changed on disk, restart to apply",
				zap.String("path", path))
		})
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	appLog.Info("Grid bot ready",
		zap.String("env", cfg.Env),
		zap.String("asset", cfg.Asset),
		zap.String("metrics", addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	appLog.Info("Signal received, shutting down", zap.String("signal", sig.String()))

	if err := planner.Stop(); err != nil {
		appLog.Error("Planner stop failed", zap.Error(err))
	}
	cancel()
	appLog.Info("Grid bot exited")
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func printBanner(cfg config.AppConfig) {
	fmt.Printf("############################################\n")
	fmt.Printf("# %s GRID BOT (%s)\n", cfg.Asset, cfg.Env)
	fmt.Printf("# range [%.4f, %.4f]  max levels %d\n",
		cfg.Grid.LowerBound, cfg.Grid.UpperBound, cfg.Grid.MaxLevels)
	fmt.Printf("# min order %.2f  reserve %.0f%%  replan every %s\n",
		cfg.Grid.MinOrderSize, cfg.Grid.QuoteReserve*100, cfg.Grid.PlanInterval())
	fmt.Printf("############################################\n")
}
