package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tdex-network/tdex-escrow/internal/core/application"
	"github.com/tdex-network/tdex-escrow/internal/core/application/dispute"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

const (
	// DatadirKey is the local data directory to store the internal state of
	// the daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the
	// values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// LogToFileKey enables writing logs also to a rotated file in datadir
	LogToFileKey = "LOG_TO_FILE"
	// ListenPortKey is the port where the HTTP and gRPC interface listens on
	ListenPortKey = "LISTEN_PORT"
	// NoTLSKey disables TLS over the node interface
	NoTLSKey = "NO_TLS"
	// DBTypeKey is the type of repositories, either badger or inmemory
	DBTypeKey = "DB_TYPE"
	// NodeRoleKey is either trader or agent
	NodeRoleKey = "NODE_ROLE"
	// NodeAddressKey is the address peers reach this node at
	NodeAddressKey = "NODE_ADDRESS"
	// PrivateKeyKey is the WIF encoded key of the node. It signs payouts and
	// mailbox messages
	PrivateKeyKey = "PRIVATE_KEY"
	// NetworkKey is the bitcoin network, one of mainnet, testnet or regtest
	NetworkKey = "NETWORK"
	// ExplorerURLKey is the endpoint of the esplora REST API
	ExplorerURLKey = "EXPLORER_URL"
	// ExplorerRPSKey is the max number of requests per second to the explorer
	ExplorerRPSKey = "EXPLORER_RPS"
	// ConfirmationPollIntervalKey is the period of the deposit confirmation
	// checks
	ConfirmationPollIntervalKey = "CONFIRMATION_POLL_INTERVAL"
	// TradePeriodCheckIntervalKey is the period of the trade period checks
	TradePeriodCheckIntervalKey = "TRADE_PERIOD_CHECK_INTERVAL"
	// DisputeResultRetryDelayKey is how long a dispute result received before
	// its dispute waits to be handled again
	DisputeResultRetryDelayKey = "DISPUTE_RESULT_RETRY_DELAY"
	// WebhookRPSKey is the max number of webhook requests per second
	WebhookRPSKey = "WEBHOOK_RPS"
	// NoWebhooksKey disables webhook notifications
	NoWebhooksKey = "NO_WEBHOOKS"

	DbLocation      = "db"
	LogsLocation    = "logs"
	TLSLocation     = "tls"
	WebhookLocation = "webhooks"

	networkMainnet = "mainnet"
	networkTestnet = "testnet"
	networkRegtest = "regtest"
)

var (
	vip            *viper.Viper
	defaultDatadir = btcutil.AppDataDir("tdex-escrow", false)

	networks = map[string]*chaincfg.Params{
		networkMainnet: &chaincfg.MainNetParams,
		networkTestnet: &chaincfg.TestNet3Params,
		networkRegtest: &chaincfg.RegressionNetParams,
	}
)

// InitConfig loads the .env file of the working directory, if any, then
// reads the configuration from the ESCROW_ prefixed environment.
func InitConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %s", err)
	}

	vip = viper.New()
	vip.SetEnvPrefix("ESCROW")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, int(log.InfoLevel))
	vip.SetDefault(LogToFileKey, false)
	vip.SetDefault(ListenPortKey, 9950)
	vip.SetDefault(NoTLSKey, true)
	vip.SetDefault(DBTypeKey, application.DBBadger)
	vip.SetDefault(NodeRoleKey, dispute.RoleTrader.String())
	vip.SetDefault(NodeAddressKey, "localhost:9950")
	vip.SetDefault(NetworkKey, networkMainnet)
	vip.SetDefault(ExplorerURLKey, "https://blockstream.info/api")
	vip.SetDefault(ExplorerRPSKey, 5)
	vip.SetDefault(ConfirmationPollIntervalKey, 30*time.Second)
	vip.SetDefault(TradePeriodCheckIntervalKey, time.Minute)
	vip.SetDefault(DisputeResultRetryDelayKey, 2*time.Second)
	vip.SetDefault(WebhookRPSKey, 10)
	vip.SetDefault(NoWebhooksKey, false)

	if err := validate(); err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}
	return initDatadir()
}

//GetString ...
func GetString(key string) string {
	return vip.GetString(key)
}

//GetInt ...
func GetInt(key string) int {
	return vip.GetInt(key)
}

//GetDuration ...
func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

//GetBool ...
func GetBool(key string) bool {
	return vip.GetBool(key)
}

// Set a value for the given key
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func GetLogLevel() log.Level {
	return log.Level(GetInt(LogLevelKey))
}

func GetListenAddress() string {
	return fmt.Sprintf(":%d", GetInt(ListenPortKey))
}

func GetNodeAddress() domain.NodeAddress {
	return domain.NodeAddress(GetString(NodeAddressKey))
}

func GetNodeRole() dispute.NodeRole {
	role, _ := dispute.ParseNodeRole(GetString(NodeRoleKey))
	return role
}

func GetNetwork() *chaincfg.Params {
	return networks[strings.ToLower(GetString(NetworkKey))]
}

// GetPrivateKey decodes the WIF key of the node.
func GetPrivateKey() (*btcec.PrivateKey, error) {
	wif, err := btcutil.DecodeWIF(GetString(PrivateKeyKey))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %s", err)
	}
	if !wif.IsForNet(GetNetwork()) {
		return nil, fmt.Errorf(
			"private key is not for network %s", GetString(NetworkKey),
		)
	}
	return wif.PrivKey, nil
}

// GetDBConfig returns the db directory for badger, nil otherwise.
func GetDBConfig() interface{} {
	if GetString(DBTypeKey) == application.DBBadger {
		return filepath.Join(GetDatadir(), DbLocation)
	}
	return nil
}

// GetWebhookDatadir returns the directory of the webhook subscriptions, empty
// for in-memory storage.
func GetWebhookDatadir() string {
	if GetString(DBTypeKey) == application.DBBadger {
		return filepath.Join(GetDatadir(), WebhookLocation)
	}
	return ""
}

func validate() error {
	if len(GetDatadir()) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	if lvl := GetInt(LogLevelKey); lvl < int(log.PanicLevel) || lvl > int(log.TraceLevel) {
		return fmt.Errorf("log level must be in range [0, 6]")
	}

	if port := GetInt(ListenPortKey); port <= 1024 || port > 65535 {
		return fmt.Errorf("listen port must be in range (1024, 65535]")
	}

	if _, ok := application.SupportedDBType[GetString(DBTypeKey)]; !ok {
		return fmt.Errorf(
			"db type must be either '%s' or '%s'",
			application.DBBadger, application.DBInMemory,
		)
	}

	if _, err := dispute.ParseNodeRole(GetString(NodeRoleKey)); err != nil {
		return err
	}

	if len(GetString(NodeAddressKey)) <= 0 {
		return fmt.Errorf("node address must not be null")
	}

	if GetNetwork() == nil {
		return fmt.Errorf(
			"network must be one of '%s', '%s' or '%s'",
			networkMainnet, networkTestnet, networkRegtest,
		)
	}

	if len(GetString(PrivateKeyKey)) <= 0 {
		return fmt.Errorf("private key must not be null")
	}
	if _, err := GetPrivateKey(); err != nil {
		return err
	}

	explorerURL, err := url.Parse(GetString(ExplorerURLKey))
	if err != nil || !explorerURL.IsAbs() {
		return fmt.Errorf("explorer url must be an absolute url")
	}

	positiveInts := []string{ExplorerRPSKey, WebhookRPSKey}
	for _, key := range positiveInts {
		if GetInt(key) <= 0 {
			return fmt.Errorf("%s must be a positive number", strings.ToLower(key))
		}
	}

	positiveDurations := []string{
		ConfirmationPollIntervalKey, TradePeriodCheckIntervalKey,
		DisputeResultRetryDelayKey,
	}
	for _, key := range positiveDurations {
		if GetDuration(key) <= 0 {
			return fmt.Errorf("%s must be a positive duration", strings.ToLower(key))
		}
	}
	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	dirs := []string{datadir}
	if GetString(DBTypeKey) == application.DBBadger {
		dirs = append(dirs, filepath.Join(datadir, DbLocation))
	}
	if GetBool(LogToFileKey) {
		dirs = append(dirs, filepath.Join(datadir, LogsLocation))
	}
	if !GetBool(NoTLSKey) {
		dirs = append(dirs, filepath.Join(datadir, TLSLocation))
	}
	for _, dir := range dirs {
		if err := makeDirectoryIfNotExists(dir); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
