package esplorawallet

import (
	"bytes"
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/pkg/escrowtx"
)

// Opts is the struct given to NewService.
type Opts struct {
	ExplorerURL string
	// RequestsPerSecond throttles the calls to the explorer.
	RequestsPerSecond int
	// PollInterval is the period of the confirmation checks.
	PollInterval time.Duration
	PrivateKey   *btcec.PrivateKey
	Network      *chaincfg.Params
}

func (o Opts) validate() error {
	if len(o.ExplorerURL) <= 0 {
		return ErrMissingExplorerURL
	}
	if o.RequestsPerSecond <= 0 {
		return ErrInvalidRateLimit
	}
	if o.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if o.PrivateKey == nil {
		return ErrMissingKey
	}
	if o.Network == nil {
		return ErrMissingNetwork
	}
	return nil
}

// service is a single-key wallet: the node key signs the escrow inputs and
// its native segwit address receives every payout. Chain data comes from
// an esplora explorer.
type service struct {
	client       *client
	key          *btcec.PrivateKey
	net          *chaincfg.Params
	address      string
	pollInterval time.Duration

	lock    sync.RWMutex
	txCache map[string]*wire.MsgTx

	wg       sync.WaitGroup
	quit     chan struct{}
	stopOnce sync.Once
}

func NewService(opts Opts) (ports.WalletService, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	pubkey := opts.PrivateKey.PubKey().SerializeCompressed()
	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(pubkey), opts.Network,
	)
	if err != nil {
		return nil, err
	}

	return &service{
		client:       newClient(opts.ExplorerURL, opts.RequestsPerSecond),
		key:          opts.PrivateKey,
		net:          opts.Network,
		address:      addr.EncodeAddress(),
		pollInterval: opts.PollInterval,
		txCache:      make(map[string]*wire.MsgTx),
		quit:         make(chan struct{}),
	}, nil
}

func (s *service) GetTransaction(
	ctx context.Context, txid string,
) (*wire.MsgTx, error) {
	if tx, ok := s.cachedTx(txid); ok {
		return tx, nil
	}

	txHex, err := s.client.getTransactionHex(ctx, txid)
	if err != nil {
		return nil, err
	}
	buf, err := hex.DecodeString(txHex)
	if err != nil {
		return nil, err
	}
	tx, err := escrowtx.DecodeTx(buf)
	if err != nil {
		return nil, err
	}
	s.cacheTx(tx)
	return tx, nil
}

func (s *service) SignAndFinalizeDisputedPayoutTx(
	_ context.Context, args ports.DisputedPayoutTxArgs,
) (*wire.MsgTx, error) {
	if err := s.checkEntry(args.MyAddressEntry); err != nil {
		return nil, err
	}
	payout, err := s.payoutTx(args)
	if err != nil {
		return nil, err
	}
	if err := payout.AddSignature(
		args.ArbitratorPubKey, args.ArbitratorSignature,
	); err != nil {
		return nil, err
	}
	if _, err := payout.Sign(s.key); err != nil {
		return nil, err
	}
	return payout.Finalize()
}

func (s *service) ArbitratorSignDisputedPayoutTx(
	_ context.Context, args ports.DisputedPayoutTxArgs,
) ([]byte, error) {
	if !bytes.Equal(args.ArbitratorPubKey, s.MultiSigPubKey()) {
		return nil, ErrNotMyEntry
	}
	payout, err := s.payoutTx(args)
	if err != nil {
		return nil, err
	}
	return payout.Sign(s.key)
}

func (s *service) AddTransactionToWallet(
	_ context.Context, tx *wire.MsgTx,
) (*wire.MsgTx, error) {
	s.cacheTx(tx)
	return tx, nil
}

func (s *service) BroadcastTx(ctx context.Context, tx *wire.MsgTx) (string, error) {
	buf, err := escrowtx.SerializeTx(tx)
	if err != nil {
		return "", err
	}
	txid, err := s.client.broadcastTransaction(ctx, hex.EncodeToString(buf))
	if err != nil {
		return "", err
	}
	s.cacheTx(tx)
	log.Debugf("broadcasted tx %s", txid)
	return txid, nil
}

func (s *service) GetAddressEntry(
	_ context.Context, tradeId string,
) (ports.AddressEntry, error) {
	return ports.AddressEntry{
		TradeId: tradeId,
		Address: s.address,
		PubKey:  s.MultiSigPubKey(),
	}, nil
}

func (s *service) MultiSigPubKey() []byte {
	return s.key.PubKey().SerializeCompressed()
}

// Close stops the confidence watchers.
func (s *service) Close() {
	s.stopOnce.Do(func() {
		close(s.quit)
	})
	s.wg.Wait()
}

func (s *service) checkEntry(entry ports.AddressEntry) error {
	if !bytes.Equal(entry.PubKey, s.MultiSigPubKey()) {
		return ErrNotMyEntry
	}
	return nil
}

func (s *service) payoutTx(args ports.DisputedPayoutTxArgs) (*escrowtx.PayoutTx, error) {
	depositTx, err := escrowtx.DecodeTx(args.DepositTx)
	if err != nil {
		return nil, err
	}
	return escrowtx.NewPayoutTx(escrowtx.PayoutTxOpts{
		DepositTx:         depositTx,
		BuyerPubKey:       args.BuyerPubKey,
		SellerPubKey:      args.SellerPubKey,
		ArbitratorPubKey:  args.ArbitratorPubKey,
		BuyerAmount:       args.BuyerPayoutAmount,
		SellerAmount:      args.SellerPayoutAmount,
		ArbitratorAmount:  args.ArbitratorPayoutAmount,
		BuyerAddress:      args.BuyerAddress,
		SellerAddress:     args.SellerAddress,
		ArbitratorAddress: args.ArbitratorAddress,
		Network:           s.net,
	})
}

func (s *service) cachedTx(txid string) (*wire.MsgTx, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	tx, ok := s.txCache[txid]
	return tx, ok
}

func (s *service) cacheTx(tx *wire.MsgTx) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.txCache[tx.TxHash().String()] = tx
}
