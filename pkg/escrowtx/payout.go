package escrowtx

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// PayoutTxOpts is the struct given to NewPayoutTx.
type PayoutTxOpts struct {
	DepositTx        *wire.MsgTx
	BuyerPubKey      []byte
	SellerPubKey     []byte
	ArbitratorPubKey []byte

	BuyerAmount       btcutil.Amount
	SellerAmount      btcutil.Amount
	ArbitratorAmount  btcutil.Amount
	BuyerAddress      string
	SellerAddress     string
	ArbitratorAddress string

	Network *chaincfg.Params
}

func (o PayoutTxOpts) validate() error {
	if o.DepositTx == nil {
		return ErrNullDepositTx
	}
	if o.Network == nil {
		return ErrNullNetwork
	}
	if o.BuyerAmount < 0 || o.SellerAmount < 0 || o.ArbitratorAmount < 0 {
		return ErrNegativeAmount
	}
	if o.BuyerAmount+o.SellerAmount+o.ArbitratorAmount <= 0 {
		return ErrEmptyPayout
	}
	return nil
}

// PayoutTx is an unsigned tx spending the escrow output of a deposit.
type PayoutTx struct {
	Tx           *wire.MsgTx
	RedeemScript []byte
	PkScript     []byte
	InputAmount  int64

	pubKeys [][]byte
	sigs    [][]byte
}

// NewPayoutTx builds the payout tx spending the escrow output of the deposit
// to the given allocations. Zero amounts produce no output. Whatever is left
// of the escrow output goes to miners.
func NewPayoutTx(opts PayoutTxOpts) (*PayoutTx, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	redeemScript, err := MultiSigRedeemScript(
		opts.BuyerPubKey, opts.SellerPubKey, opts.ArbitratorPubKey,
	)
	if err != nil {
		return nil, err
	}
	index, prevout, err := FindMultiSigOutput(opts.DepositTx, redeemScript)
	if err != nil {
		return nil, err
	}

	total := opts.BuyerAmount + opts.SellerAmount + opts.ArbitratorAmount
	if int64(total) > prevout.Value {
		return nil, fmt.Errorf(
			"%w: payout %d, deposit %d", ErrPayoutExceedsDeposit, total, prevout.Value,
		)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	depositHash := opts.DepositTx.TxHash()
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&depositHash, index), nil, nil))

	outputs := []struct {
		address string
		amount  btcutil.Amount
	}{
		{opts.BuyerAddress, opts.BuyerAmount},
		{opts.SellerAddress, opts.SellerAmount},
		{opts.ArbitratorAddress, opts.ArbitratorAmount},
	}
	for _, out := range outputs {
		if out.amount == 0 {
			continue
		}
		script, err := payToAddress(out.address, opts.Network)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(int64(out.amount), script))
	}

	return &PayoutTx{
		Tx:           tx,
		RedeemScript: redeemScript,
		PkScript:     prevout.PkScript,
		InputAmount:  prevout.Value,
		pubKeys: [][]byte{
			opts.BuyerPubKey, opts.SellerPubKey, opts.ArbitratorPubKey,
		},
		sigs: make([][]byte, 3),
	}, nil
}

func payToAddress(address string, net *chaincfg.Params) ([]byte, error) {
	addr, err := btcutil.DecodeAddress(address, net)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}
	if !addr.IsForNet(net) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}
	return txscript.PayToAddrScript(addr)
}

func (p *PayoutTx) prevOutFetcher() txscript.PrevOutputFetcher {
	return txscript.NewCannedPrevOutputFetcher(p.PkScript, p.InputAmount)
}

// SigHash returns the BIP143 sighash of the escrow input.
func (p *PayoutTx) SigHash() ([]byte, error) {
	sigHashes := txscript.NewTxSigHashes(p.Tx, p.prevOutFetcher())
	return txscript.CalcWitnessSigHash(
		p.RedeemScript, sigHashes, txscript.SigHashAll, p.Tx, 0, p.InputAmount,
	)
}

// Sign returns the DER signature of the given key over the escrow input and
// keeps it for finalization.
func (p *PayoutTx) Sign(key *btcec.PrivateKey) ([]byte, error) {
	hash, err := p.SigHash()
	if err != nil {
		return nil, err
	}
	sig := ecdsa.Sign(key, hash).Serialize()
	if err := p.AddSignature(key.PubKey().SerializeCompressed(), sig); err != nil {
		return nil, err
	}
	return sig, nil
}

// VerifySignature checks the DER signature against the given escrow pubkey.
func (p *PayoutTx) VerifySignature(pubKey, sig []byte) error {
	if p.keyIndex(pubKey) < 0 {
		return ErrUnknownSigner
	}
	hash, err := p.SigHash()
	if err != nil {
		return err
	}
	key, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return ErrInvalidPubKey
	}
	signature, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	if !signature.Verify(hash, key) {
		return ErrInvalidSignature
	}
	return nil
}

// AddSignature verifies and stores the signature of one of the escrow keys.
func (p *PayoutTx) AddSignature(pubKey, sig []byte) error {
	if err := p.VerifySignature(pubKey, sig); err != nil {
		return err
	}
	p.sigs[p.keyIndex(pubKey)] = sig
	return nil
}

// Finalize sets the witness of the escrow input from the collected
// signatures, in the order of the keys in the script, and returns the tx.
func (p *PayoutTx) Finalize() (*wire.MsgTx, error) {
	witness := wire.TxWitness{nil}
	for _, sig := range p.sigs {
		if sig == nil {
			continue
		}
		witness = append(witness, append(append([]byte{}, sig...), byte(txscript.SigHashAll)))
		if len(witness) == requiredSigs+1 {
			break
		}
	}
	if len(witness) != requiredSigs+1 {
		return nil, ErrNotEnoughSignatures
	}
	witness = append(witness, p.RedeemScript)

	p.Tx.TxIn[0].Witness = witness
	if err := p.Verify(); err != nil {
		return nil, err
	}
	return p.Tx, nil
}

// Verify executes the escrow script against the finalized input.
func (p *PayoutTx) Verify() error {
	return p.verifyEscrowInput(p.Tx)
}

// VerifyFinalizedTx checks that tx is this payout finalized by someone else:
// it must spend the escrow output only, pay the same outputs and carry a
// witness satisfying the escrow script.
func (p *PayoutTx) VerifyFinalizedTx(tx *wire.MsgTx) error {
	if tx == nil {
		return ErrPayoutMismatch
	}
	if len(tx.TxIn) != 1 ||
		tx.TxIn[0].PreviousOutPoint != p.Tx.TxIn[0].PreviousOutPoint {
		return fmt.Errorf("%w: escrow output is not spent", ErrPayoutMismatch)
	}
	if len(tx.TxOut) != len(p.Tx.TxOut) {
		return fmt.Errorf(
			"%w: expected %d outputs, got %d",
			ErrPayoutMismatch, len(p.Tx.TxOut), len(tx.TxOut),
		)
	}
	for i, out := range p.Tx.TxOut {
		if tx.TxOut[i].Value != out.Value ||
			!bytes.Equal(tx.TxOut[i].PkScript, out.PkScript) {
			return fmt.Errorf("%w: output %d differs", ErrPayoutMismatch, i)
		}
	}
	return p.verifyEscrowInput(tx)
}

func (p *PayoutTx) verifyEscrowInput(tx *wire.MsgTx) error {
	sigHashes := txscript.NewTxSigHashes(tx, p.prevOutFetcher())
	engine, err := txscript.NewEngine(
		p.PkScript, tx, 0, txscript.StandardVerifyFlags, nil,
		sigHashes, p.InputAmount, p.prevOutFetcher(),
	)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	if err := engine.Execute(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	return nil
}

// Fee is what is left of the escrow output to miners.
func (p *PayoutTx) Fee() btcutil.Amount {
	fee := p.InputAmount
	for _, out := range p.Tx.TxOut {
		fee -= out.Value
	}
	return btcutil.Amount(fee)
}

func (p *PayoutTx) keyIndex(pubKey []byte) int {
	for i, key := range p.pubKeys {
		if bytes.Equal(key, pubKey) {
			return i
		}
	}
	return -1
}
