// Package escrowtx builds and signs the transactions spending the 2-of-3
// escrow output of a trade. The escrow keys are ordered buyer, seller,
// arbitrator.
package escrowtx

import (
	"bytes"
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

const requiredSigs = 2

// MultiSigRedeemScript returns the 2-of-3 witness script of the escrow.
func MultiSigRedeemScript(buyerPubKey, sellerPubKey, arbitratorPubKey []byte) ([]byte, error) {
	builder := txscript.NewScriptBuilder().AddOp(txscript.OP_2)
	for _, key := range [][]byte{buyerPubKey, sellerPubKey, arbitratorPubKey} {
		if _, err := btcec.ParsePubKey(key); err != nil || len(key) != 33 {
			return nil, ErrInvalidPubKey
		}
		builder.AddData(key)
	}
	return builder.
		AddOp(txscript.OP_3).
		AddOp(txscript.OP_CHECKMULTISIG).
		Script()
}

// MultiSigOutputScript returns the P2WSH script locking the deposit.
func MultiSigOutputScript(redeemScript []byte) ([]byte, error) {
	h := sha256.Sum256(redeemScript)
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(h[:]).
		Script()
}

// MultiSigAddress returns the P2WSH address of the escrow for the network.
func MultiSigAddress(redeemScript []byte, net *chaincfg.Params) (string, error) {
	if net == nil {
		return "", ErrNullNetwork
	}
	h := sha256.Sum256(redeemScript)
	addr, err := btcutil.NewAddressWitnessScriptHash(h[:], net)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

// FindMultiSigOutput returns the index and the output of the deposit tx
// locked to the given escrow script.
func FindMultiSigOutput(depositTx *wire.MsgTx, redeemScript []byte) (uint32, *wire.TxOut, error) {
	if depositTx == nil {
		return 0, nil, ErrNullDepositTx
	}
	script, err := MultiSigOutputScript(redeemScript)
	if err != nil {
		return 0, nil, err
	}
	for i, out := range depositTx.TxOut {
		if bytes.Equal(out.PkScript, script) {
			return uint32(i), out, nil
		}
	}
	return 0, nil, ErrMultiSigOutputNotFound
}

// DecodeTx deserializes a raw tx.
func DecodeTx(raw []byte) (*wire.MsgTx, error) {
	if len(raw) <= 0 {
		return nil, ErrNullDepositTx
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return tx, nil
}

// SerializeTx serializes the tx including the witness.
func SerializeTx(tx *wire.MsgTx) ([]byte, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
