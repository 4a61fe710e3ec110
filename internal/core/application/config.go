package application

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/application/dispute"
	"github.com/tdex-network/tdex-escrow/internal/core/application/tradelock"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/offerbook"
	dbbadger "github.com/tdex-network/tdex-escrow/internal/infrastructure/storage/db/badger"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/storage/db/inmemory"
)

const (
	DBBadger   = "badger"
	DBInMemory = "inmemory"
)

var (
	SupportedDBType = map[string]struct{}{
		DBBadger:   {},
		DBInMemory: {},
	}
)

// Config lazily builds the application services and shares them, so that
// every service works on the same repositories, notifier and trade locks.
type Config struct {
	DBType   string
	DBConfig interface{}

	NodeRole      dispute.NodeRole
	NodeKey       *btcec.PrivateKey
	Network       *chaincfg.Params
	WalletSvc     ports.WalletService
	NetworkSvc    ports.NetworkService
	WebhookPubSub ports.PubSub

	TradePeriodCheckInterval time.Duration
	DisputeResultRetryDelay  time.Duration

	repo        ports.RepoManager
	locker      *tradelock.Locker
	pubsub      PubSubService
	offers      ports.OpenOfferManager
	trade       TradeService
	dispute     DisputeService
	coordinator *Coordinator
}

func (c *Config) Validate() error {
	if _, ok := SupportedDBType[c.DBType]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDBType, c.DBType)
	}
	if c.NodeKey == nil {
		return fmt.Errorf("missing node key")
	}
	if c.Network == nil {
		return fmt.Errorf("missing network params")
	}
	if c.WalletSvc == nil {
		return fmt.Errorf("missing wallet service")
	}
	if c.NetworkSvc == nil {
		return fmt.Errorf("missing network service")
	}
	if c.TradePeriodCheckInterval <= 0 {
		return fmt.Errorf("trade period check interval must be positive")
	}
	if c.DisputeResultRetryDelay <= 0 {
		return fmt.Errorf("dispute result retry delay must be positive")
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}
	if _, err := c.coordinatorService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) RepoManager() ports.RepoManager {
	svc, _ := c.repoManager()
	return svc
}

func (c *Config) PubSubService() PubSubService {
	return c.pubsubService()
}

func (c *Config) OpenOfferManager() ports.OpenOfferManager {
	svc, _ := c.openOfferManager()
	return svc
}

// TradeService returns nil for agent nodes.
func (c *Config) TradeService() TradeService {
	svc, _ := c.tradeService()
	return svc
}

func (c *Config) DisputeService() DisputeService {
	svc, _ := c.disputeService()
	return svc
}

func (c *Config) Coordinator() *Coordinator {
	svc, _ := c.coordinatorService()
	return svc
}

func (c *Config) repoManager() (ports.RepoManager, error) {
	if c.repo == nil {
		switch c.DBType {
		case DBBadger:
			datadir, _ := c.DBConfig.(string)
			repoManager, err := dbbadger.NewRepoManager(datadir, log.New())
			if err != nil {
				return nil, err
			}
			c.repo = repoManager
		case DBInMemory:
			c.repo = inmemory.NewRepoManager()
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownDBType, c.DBType)
		}
	}
	return c.repo, nil
}

func (c *Config) tradeLocker() *tradelock.Locker {
	if c.locker == nil {
		c.locker = tradelock.New()
	}
	return c.locker
}

func (c *Config) pubsubService() PubSubService {
	if c.pubsub == nil {
		c.pubsub = NewPubSubService(c.WebhookPubSub)
	}
	return c.pubsub
}

func (c *Config) openOfferManager() (ports.OpenOfferManager, error) {
	if c.offers == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}
		offers, err := offerbook.NewService(repo.OpenOfferRepository())
		if err != nil {
			return nil, err
		}
		c.offers = offers
	}
	return c.offers, nil
}

func (c *Config) tradeService() (TradeService, error) {
	if c.NodeRole != dispute.RoleTrader {
		return nil, nil
	}
	if c.trade == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}
		trade, err := NewTradeService(
			c.WalletSvc, c.pubsubService(), repo, c.tradeLocker(),
			c.TradePeriodCheckInterval,
		)
		if err != nil {
			return nil, err
		}
		c.trade = trade
	}
	return c.trade, nil
}

func (c *Config) disputeService() (DisputeService, error) {
	if c.dispute == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}
		trade, err := c.tradeService()
		if err != nil {
			return nil, err
		}
		offers, err := c.openOfferManager()
		if err != nil {
			return nil, err
		}
		dispute, err := NewDisputeService(
			c.NodeRole, c.NodeKey, trade, c.WalletSvc, c.NetworkSvc, offers,
			c.pubsubService(), repo, c.tradeLocker(), c.Network,
		)
		if err != nil {
			return nil, err
		}
		c.dispute = dispute
	}
	return c.dispute, nil
}

func (c *Config) coordinatorService() (*Coordinator, error) {
	if c.coordinator == nil {
		trade, err := c.tradeService()
		if err != nil {
			return nil, err
		}
		dispute, err := c.disputeService()
		if err != nil {
			return nil, err
		}
		coordinator, err := NewCoordinator(
			trade, dispute, c.tradeLocker(), c.DisputeResultRetryDelay,
		)
		if err != nil {
			return nil, err
		}
		c.coordinator = coordinator
	}
	return c.coordinator, nil
}
