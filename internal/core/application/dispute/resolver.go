package dispute

import (
	"bytes"
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	"github.com/tdex-network/tdex-escrow/pkg/escrowtx"
)

// PayoutResolver turns a signed arbitration result into the finalized payout
// tx of the disputed trade. Failures are never retried automatically.
type PayoutResolver struct {
	wallet ports.WalletService
	net    *chaincfg.Params
}

func NewPayoutResolver(wallet ports.WalletService, net *chaincfg.Params) *PayoutResolver {
	return &PayoutResolver{wallet, net}
}

// Resolve verifies the arbitrator signature against the payout template
// built from the deposit tx and the result allocation, then has the wallet
// add its own signature and finalize the tx.
func (r *PayoutResolver) Resolve(
	ctx context.Context, dispute *domain.Dispute, t *domain.Trade,
	result *domain.DisputeResult,
) (*wire.MsgTx, error) {
	if len(result.ArbitratorSignature) <= 0 {
		return nil, ErrMissingArbitratorSignature
	}
	if t != nil && len(t.ArbitratorBtcPubKey) > 0 &&
		!bytes.Equal(t.ArbitratorBtcPubKey, result.ArbitratorPubKey) {
		return nil, ErrArbitratorKeyMismatch
	}

	depositTx, err := r.depositTx(ctx, dispute, t)
	if err != nil {
		return nil, err
	}
	args, err := r.PayoutArgs(dispute.Contract, depositTx, result)
	if err != nil {
		return nil, err
	}

	template, err := escrowtx.NewPayoutTx(r.payoutTxOpts(args, depositTx))
	if err != nil {
		return nil, err
	}
	if err := template.VerifySignature(
		args.ArbitratorPubKey, args.ArbitratorSignature,
	); err != nil {
		return nil, fmt.Errorf("arbitrator signature: %w", err)
	}

	entry, err := r.wallet.GetAddressEntry(ctx, dispute.TradeId)
	if err != nil {
		return nil, err
	}
	args.MyAddressEntry = entry

	return r.wallet.SignAndFinalizeDisputedPayoutTx(ctx, args)
}

// VerifyPeerPayout checks the payout tx finalized by the peer against the
// one expected from the result: it must spend the escrow output of the
// deposit to the allocated outputs with valid signatures.
func (r *PayoutResolver) VerifyPeerPayout(
	ctx context.Context, dispute *domain.Dispute, t *domain.Trade,
	result *domain.DisputeResult, tx *wire.MsgTx,
) error {
	if t != nil && len(t.ArbitratorBtcPubKey) > 0 &&
		!bytes.Equal(t.ArbitratorBtcPubKey, result.ArbitratorPubKey) {
		return ErrArbitratorKeyMismatch
	}
	depositTx, err := r.depositTx(ctx, dispute, t)
	if err != nil {
		return err
	}
	args, err := r.PayoutArgs(dispute.Contract, depositTx, result)
	if err != nil {
		return err
	}
	expected, err := escrowtx.NewPayoutTx(r.payoutTxOpts(args, depositTx))
	if err != nil {
		return err
	}
	return expected.VerifyFinalizedTx(tx)
}

// PayoutArgs validates the allocation of the result against the contract
// and returns the arguments to sign the payout with.
func (r *PayoutResolver) PayoutArgs(
	contract *domain.Contract, depositTx *wire.MsgTx, result *domain.DisputeResult,
) (ports.DisputedPayoutTxArgs, error) {
	if contract == nil {
		return ports.DisputedPayoutTxArgs{}, domain.ErrTradeMissingContract
	}
	if depositTx == nil {
		return ports.DisputedPayoutTxArgs{}, ErrMissingDepositTx
	}
	if err := result.Validate(); err != nil {
		return ports.DisputedPayoutTxArgs{}, err
	}

	buyerAddress := contract.BuyerPayoutAddressString()
	sellerAddress := contract.SellerPayoutAddressString()
	outputs := []struct {
		address string
		amount  btcutil.Amount
	}{
		{buyerAddress, result.BuyerPayoutAmount},
		{sellerAddress, result.SellerPayoutAmount},
		{result.ArbitratorAddressString, result.ArbitratorPayoutAmount},
	}
	for _, out := range outputs {
		if out.amount <= 0 {
			continue
		}
		if err := r.validateAddress(out.address); err != nil {
			return ports.DisputedPayoutTxArgs{}, err
		}
	}

	rawDepositTx, err := escrowtx.SerializeTx(depositTx)
	if err != nil {
		return ports.DisputedPayoutTxArgs{}, err
	}

	return ports.DisputedPayoutTxArgs{
		DepositTx:              rawDepositTx,
		ArbitratorSignature:    result.ArbitratorSignature,
		BuyerPayoutAmount:      result.BuyerPayoutAmount,
		SellerPayoutAmount:     result.SellerPayoutAmount,
		ArbitratorPayoutAmount: result.ArbitratorPayoutAmount,
		BuyerAddress:           buyerAddress,
		SellerAddress:          sellerAddress,
		ArbitratorAddress:      result.ArbitratorAddressString,
		BuyerPubKey:            contract.BuyerMultiSigPubKey(),
		SellerPubKey:           contract.SellerMultiSigPubKey(),
		ArbitratorPubKey:       result.ArbitratorPubKey,
	}, nil
}

func (r *PayoutResolver) payoutTxOpts(
	args ports.DisputedPayoutTxArgs, depositTx *wire.MsgTx,
) escrowtx.PayoutTxOpts {
	return escrowtx.PayoutTxOpts{
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
		Network:           r.net,
	}
}

// depositTx looks for the deposit in the dispute, then in the trade, and
// finally asks the wallet for it.
func (r *PayoutResolver) depositTx(
	ctx context.Context, dispute *domain.Dispute, t *domain.Trade,
) (*wire.MsgTx, error) {
	raw := dispute.DepositTxSerialized
	if len(raw) <= 0 && t != nil {
		raw = t.DepositTx
	}
	if len(raw) > 0 {
		return escrowtx.DecodeTx(raw)
	}

	txid := dispute.DepositTxId
	if len(txid) <= 0 && t != nil {
		txid = t.DepositTxId
	}
	if len(txid) <= 0 {
		return nil, ErrMissingDepositTx
	}
	tx, err := r.wallet.GetTransaction(ctx, txid)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingDepositTx, err)
	}
	return tx, nil
}

func (r *PayoutResolver) validateAddress(address string) error {
	addr, err := btcutil.DecodeAddress(address, r.net)
	if err != nil || !addr.IsForNet(r.net) {
		return fmt.Errorf("%w: %s", escrowtx.ErrInvalidAddress, address)
	}
	return nil
}
