package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/config"
	"github.com/tdex-network/tdex-escrow/internal/core/application"
	"github.com/tdex-network/tdex-escrow/internal/core/application/dispute"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	esplorawallet "github.com/tdex-network/tdex-escrow/internal/infrastructure/esplora-wallet"
	httpmailbox "github.com/tdex-network/tdex-escrow/internal/infrastructure/http-mailbox"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/metrics"
	webhookpubsub "github.com/tdex-network/tdex-escrow/internal/infrastructure/pubsub"
	grpcinterface "github.com/tdex-network/tdex-escrow/internal/interfaces/grpc"
	httpinterface "github.com/tdex-network/tdex-escrow/internal/interfaces/http"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFile = "escrowd.log"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	datadir := config.GetDatadir()
	log.SetLevel(config.GetLogLevel())
	if config.GetBool(config.LogToFileKey) {
		rotated := &lumberjack.Logger{
			Filename:   filepath.Join(datadir, config.LogsLocation, logFile),
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     30,
		}
		defer rotated.Close()
		log.SetOutput(io.MultiWriter(os.Stdout, rotated))
	}

	nodeKey, err := config.GetPrivateKey()
	if err != nil {
		log.WithError(err).Fatal("invalid node key")
	}
	net := config.GetNetwork()
	role := config.GetNodeRole()

	walletSvc, err := esplorawallet.NewService(esplorawallet.Opts{
		ExplorerURL:       config.GetString(config.ExplorerURLKey),
		RequestsPerSecond: config.GetInt(config.ExplorerRPSKey),
		PollInterval:      config.GetDuration(config.ConfirmationPollIntervalKey),
		PrivateKey:        nodeKey,
		Network:           net,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to init wallet service")
	}
	defer walletSvc.Close()

	networkSvc, err := httpmailbox.NewService(
		config.GetNodeAddress(), nodeKey, !config.GetBool(config.NoTLSKey),
	)
	if err != nil {
		log.WithError(err).Fatal("failed to init network service")
	}
	defer networkSvc.Close()

	var webhookPubSub ports.PubSub
	if !config.GetBool(config.NoWebhooksKey) {
		webhookPubSub, err = webhookpubsub.NewService(
			config.GetWebhookDatadir(), config.GetInt(config.WebhookRPSKey),
		)
		if err != nil {
			log.WithError(err).Fatal("failed to init webhook pubsub")
		}
	}

	appConfig := &application.Config{
		DBType:                   config.GetString(config.DBTypeKey),
		DBConfig:                 config.GetDBConfig(),
		NodeRole:                 role,
		NodeKey:                  nodeKey,
		Network:                  net,
		WalletSvc:                walletSvc,
		NetworkSvc:               networkSvc,
		WebhookPubSub:            webhookPubSub,
		TradePeriodCheckInterval: config.GetDuration(config.TradePeriodCheckIntervalKey),
		DisputeResultRetryDelay:  config.GetDuration(config.DisputeResultRetryDelayKey),
	}
	if err := appConfig.Validate(); err != nil {
		log.WithError(err).Fatal("invalid application config")
	}

	repoManager := appConfig.RepoManager()
	defer repoManager.Close()
	pubsubSvc := appConfig.PubSubService()
	defer pubsubSvc.Close()
	tradeSvc := appConfig.TradeService()
	disputeSvc := appConfig.DisputeService()
	coordinator := appConfig.Coordinator()
	defer coordinator.Stop()

	ctx := context.Background()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	var fundsLockedIn metrics.FundsLockedInFunc
	if tradeSvc != nil {
		fundsLockedIn = tradeSvc.FundsLockedIn
	}
	collector, err := metrics.NewCollector(registry, fundsLockedIn)
	if err != nil {
		log.WithError(err).Fatal("failed to init metrics")
	}
	trades, err := repoManager.TradeRepository().GetAllTrades(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to load trades")
	}
	collector.Seed(trades)
	subId := pubsubSvc.Subscribe(collector.Handle)
	defer pubsubSvc.Unsubscribe(subId)

	opts := httpinterface.Opts{
		Coordinator:  coordinator,
		Disputes:     disputeSvc,
		PubSub:       pubsubSvc,
		OfferManager: appConfig.OpenOfferManager(),
		Network:      networkSvc,
		Gatherer:     registry,
	}
	if tradeSvc != nil {
		opts.Trades = tradeSvc
	}
	handler, err := httpinterface.NewHandler(opts)
	if err != nil {
		log.WithError(err).Fatal("failed to init http handler")
	}

	if tradeSvc != nil {
		if err := tradeSvc.Start(ctx); err != nil {
			log.WithError(err).Fatal("failed to start trade service")
		}
		defer tradeSvc.Stop()
	}

	svc, err := grpcinterface.NewService(grpcinterface.ServiceOpts{
		Datadir:     datadir,
		TLSLocation: config.TLSLocation,
		NoTls:       config.GetBool(config.NoTLSKey),
		Address:     config.GetListenAddress(),
		HTTPHandler: handler,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to init interface")
	}

	if err := svc.Start(); err != nil {
		log.WithError(err).Fatal("failed to start interface")
	}
	defer svc.Stop()

	log.Infof("escrow %s node started on %s network", role, net.Name)
	if role == dispute.RoleAgent {
		log.Info("trading is disabled on agent nodes")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutting down")
}
