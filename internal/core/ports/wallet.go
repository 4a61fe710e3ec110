package ports

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// WalletService is the wallet collaborator of the escrow core. Keys, utxo
// selection and the actual signing primitives live behind it.
type WalletService interface {
	// GetTransaction returns the tx with the given id, either from the local
	// wallet view or from the network.
	GetTransaction(ctx context.Context, txid string) (*wire.MsgTx, error)
	// SignAndFinalizeDisputedPayoutTx builds the payout tx spending the
	// multisig output of the deposit, adds the wallet signature to the one of
	// the arbitrator and returns the finalized tx.
	SignAndFinalizeDisputedPayoutTx(
		ctx context.Context, args DisputedPayoutTxArgs,
	) (*wire.MsgTx, error)
	// ArbitratorSignDisputedPayoutTx is the agent counterpart of the above:
	// it returns the DER signature of the agent key over the payout tx.
	ArbitratorSignDisputedPayoutTx(
		ctx context.Context, args DisputedPayoutTxArgs,
	) ([]byte, error)
	// AddTransactionToWallet imports a tx published by someone else.
	AddTransactionToWallet(ctx context.Context, tx *wire.MsgTx) (*wire.MsgTx, error)
	// BroadcastTx publishes the tx and returns its id.
	BroadcastTx(ctx context.Context, tx *wire.MsgTx) (string, error)
	// OnConfidenceChanged returns a one-shot channel that receives the
	// confidence of the tx once it reaches the given depth. The channel is
	// closed without value if the context is canceled first.
	OnConfidenceChanged(
		ctx context.Context, txid string, depth int,
	) (<-chan TxConfidence, error)
	// GetAddressEntry returns the wallet entry reserved for the trade, whose
	// key signs the escrow and whose address receives the payout.
	GetAddressEntry(ctx context.Context, tradeId string) (AddressEntry, error)
	// MultiSigPubKey is the compressed pubkey the wallet uses in escrow
	// scripts.
	MultiSigPubKey() []byte
	Close()
}

// DisputedPayoutTxArgs carries everything needed to rebuild and sign the
// payout of a disputed trade.
type DisputedPayoutTxArgs struct {
	DepositTx              []byte
	ArbitratorSignature    []byte
	BuyerPayoutAmount      btcutil.Amount
	SellerPayoutAmount     btcutil.Amount
	ArbitratorPayoutAmount btcutil.Amount
	BuyerAddress           string
	SellerAddress          string
	ArbitratorAddress      string
	MyAddressEntry         AddressEntry
	BuyerPubKey            []byte
	SellerPubKey           []byte
	ArbitratorPubKey       []byte
}

// AddressEntry is the wallet entry reserved for a trade.
type AddressEntry struct {
	TradeId string
	Address string
	PubKey  []byte
}

// TxConfidence is the status of a tx in the chain.
type TxConfidence struct {
	TxId        string
	Depth       int
	BlockHash   string
	BlockHeight uint64
	BlockTime   int64
}

func (c TxConfidence) IsConfirmed() bool {
	return c.Depth > 0
}
