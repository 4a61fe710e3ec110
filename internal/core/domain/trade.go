package domain

import (
	"bytes"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const shortIdLen = 8

// Trade is the aggregate holding the progress of an escrow trade. It is
// owned by the trade service; disputes only reference it by id.
type Trade struct {
	Id     string
	Role   TradeRole
	Offer  Offer
	Amount btcutil.Amount
	// Price is persisted as long, see Offer.PriceFromLong.
	Price    int64
	TxFee    btcutil.Amount
	TakerFee btcutil.Amount
	// Date is the unix time the trade was created.
	Date int64

	State                State
	DisputeState         DisputeState
	TradePeriodState     TradePeriodState
	MediationResultState MediationResultState
	RefundResultState    RefundResultState

	TakerFeeTxId string
	DepositTxId  string
	// DepositTx is the serialized deposit transaction.
	DepositTx []byte
	// DepositBlockTime is the unix time of the block that confirmed the
	// deposit, zero until confirmed.
	DepositBlockTime  int64
	PayoutTxId        string
	DelayedPayoutTxId string

	Contract               *Contract
	ContractAsJson         string
	ContractHash           []byte
	MakerContractSignature string
	TakerContractSignature string

	PeerNodeAddress        NodeAddress
	ArbitratorNodeAddress  NodeAddress
	ArbitratorPubKeyRing   PubKeyRing
	ArbitratorBtcPubKey    []byte
	MediatorNodeAddress    NodeAddress
	MediatorPubKeyRing     PubKeyRing
	RefundAgentNodeAddress NodeAddress
	RefundAgentPubKeyRing  PubKeyRing

	BuyerPayoutAmountFromMediation  btcutil.Amount
	SellerPayoutAmountFromMediation btcutil.Amount

	ChatMessages []ChatMessage
	ErrorMessage string
	// ClosedAt is the unix time the trade left the set of open trades.
	ClosedAt int64
}

// NewTrade returns a trade in PREPARATION for the given role and terms.
func NewTrade(
	id string, role TradeRole, offer Offer,
	amount btcutil.Amount, price int64, txFee, takerFee btcutil.Amount,
) (*Trade, error) {
	if len(id) <= 0 {
		return nil, ErrTradeMissingId
	}
	if amount <= 0 {
		return nil, ErrInvalidTradeAmount
	}
	if price <= 0 {
		return nil, ErrInvalidTradePrice
	}
	if err := role.Validate(); err != nil {
		return nil, err
	}
	return &Trade{
		Id:       id,
		Role:     role,
		Offer:    offer,
		Amount:   amount,
		Price:    price,
		TxFee:    txFee,
		TakerFee: takerFee,
		Date:     time.Now().Unix(),
		State:    StatePreparation,
	}, nil
}

func (t *Trade) ShortId() string {
	if len(t.Id) <= shortIdLen {
		return t.Id
	}
	return t.Id[:shortIdLen]
}

// Phase is derived from the current state.
func (t *Trade) Phase() Phase {
	return t.State.Phase()
}

func (t *Trade) IsInPreparation() bool {
	return t.Phase() == PhaseInit
}

func (t *Trade) IsTakerFeePublished() bool {
	return t.Phase().AtLeast(PhaseTakerFeePublished)
}

func (t *Trade) IsDepositPublished() bool {
	return t.Phase().AtLeast(PhaseDepositPublished)
}

func (t *Trade) IsDepositConfirmed() bool {
	return t.Phase().AtLeast(PhaseDepositConfirmed)
}

func (t *Trade) IsFiatSent() bool {
	return t.Phase().AtLeast(PhaseFiatSent)
}

func (t *Trade) IsFiatReceived() bool {
	return t.Phase().AtLeast(PhaseFiatReceived)
}

func (t *Trade) IsPayoutPublished() bool {
	return t.Phase().AtLeast(PhasePayoutPublished) || t.IsWithdrawn()
}

func (t *Trade) IsWithdrawn() bool {
	return t.Phase() == PhaseWithdrawn
}

func (t *Trade) IsCompleted() bool {
	return t.IsWithdrawn()
}

func (t *Trade) IsClosed() bool {
	return t.ClosedAt > 0
}

func (t *Trade) HasFailed() bool {
	return len(t.ErrorMessage) > 0
}

// IsFundsLockedIn returns whether the deposit is confirmed and not yet spent
// by a payout. A mediated payout on chain or any refund agent sub-state
// (funds spent by the time locked path) mean no funds are locked.
func (t *Trade) IsFundsLockedIn() bool {
	if !t.IsDepositConfirmed() {
		return false
	}
	if t.IsPayoutPublished() {
		return false
	}
	if t.DisputeState == DisputeStateMediationClosed &&
		t.MediationResultState.IsPayoutPublished() {
		return false
	}
	return !t.DisputeState.IsRefund()
}

// DepositTxIdIfPublished returns the deposit tx id, only meaningful from the
// DEPOSIT_PUBLISHED phase onward.
func (t *Trade) DepositTxIdIfPublished() (string, bool) {
	if !t.IsDepositPublished() || len(t.DepositTxId) <= 0 {
		return "", false
	}
	return t.DepositTxId, true
}

// PayoutTxIdIfPublished returns the payout tx id, only meaningful from the
// PAYOUT_PUBLISHED phase onward or once a disputed payout is known.
func (t *Trade) PayoutTxIdIfPublished() (string, bool) {
	if len(t.PayoutTxId) <= 0 {
		return "", false
	}
	return t.PayoutTxId, true
}

// SetState applies the given state even if it moves the trade to a previous
// phase. A regression is logged as a warning since message redelivery can
// produce it.
func (t *Trade) SetState(state State) {
	log.Infof("set new state for trade %s: %s", t.ShortId(), state)
	if state.Phase() < t.State.Phase() {
		log.Warnf(
			"trade %s got a state change to a previous phase: old state %s, "+
				"new state %s", t.ShortId(), t.State, state,
		)
	}
	t.State = state
}

// SetStateIfValidTransitionTo applies the given state only if it does not
// move the trade to a previous phase and returns whether it was applied.
func (t *Trade) SetStateIfValidTransitionTo(state State) bool {
	if !t.State.IsValidTransitionTo(state) {
		log.Warnf(
			"state change not applied to trade %s because it would cause an "+
				"invalid transition: state %s, intended state %s",
			t.ShortId(), t.State, state,
		)
		return false
	}
	t.SetState(state)
	return true
}

// AcceptContract attaches the signed contract to the trade. Replacing a
// contract is allowed only before the deposit is published.
func (t *Trade) AcceptContract(
	contract *Contract, makerSig, takerSig string,
) (bool, error) {
	if contract == nil {
		return false, ErrTradeMissingContract
	}
	hash, err := contract.Hash()
	if err != nil {
		return false, err
	}
	if t.Contract != nil && bytes.Equal(t.ContractHash, hash) {
		return true, nil
	}
	if t.IsDepositPublished() {
		return false, ErrInvalidTransition
	}
	contractJson, err := contract.JSON()
	if err != nil {
		return false, err
	}

	t.Contract = contract
	t.ContractAsJson = contractJson
	t.ContractHash = hash
	t.MakerContractSignature = makerSig
	t.TakerContractSignature = takerSig
	if len(contract.TakerFeeTxId) > 0 {
		t.TakerFeeTxId = contract.TakerFeeTxId
	}
	return true, nil
}

func (t *Trade) TakerFeePublished(txid string) (bool, error) {
	if t.IsTakerFeePublished() {
		return true, nil
	}
	if len(txid) <= 0 {
		return false, ErrTradeMissingTxId
	}
	if t.IsClosed() {
		return false, ErrTradeClosed
	}

	t.TakerFeeTxId = txid
	t.SetStateIfValidTransitionTo(StateTakerPublishedTakerFeeTx)
	return true, nil
}

// DepositPublished records the deposit tx. The seller publishes it, the
// buyer only sees it in the network.
func (t *Trade) DepositPublished(txid string, tx []byte) (bool, error) {
	if t.IsDepositPublished() {
		return true, nil
	}
	if len(txid) <= 0 || len(tx) <= 0 {
		return false, ErrTradeMissingTxId
	}
	if t.IsClosed() {
		return false, ErrTradeClosed
	}

	next := StateSellerPublishedDepositTx
	if t.Role.IsBuyer() {
		next = StateBuyerSawDepositTxInNetwork
	}
	if !t.SetStateIfValidTransitionTo(next) {
		return false, ErrInvalidTransition
	}
	t.DepositTxId = txid
	t.DepositTx = tx
	return true, nil
}

func (t *Trade) DepositConfirmed(blockTime int64) (bool, error) {
	if t.IsDepositConfirmed() {
		return true, nil
	}
	if !t.IsDepositPublished() {
		return false, ErrDepositNotPublished
	}
	if !t.SetStateIfValidTransitionTo(StateDepositConfirmedInBlockChain) {
		return false, ErrInvalidTransition
	}
	t.DepositBlockTime = blockTime
	return true, nil
}

// ConfirmPaymentSent is the buyer confirming the fiat payment was started.
func (t *Trade) ConfirmPaymentSent() (bool, error) {
	if !t.Role.IsBuyer() {
		return false, ErrTradeMustBeBuyer
	}
	if t.IsFiatSent() {
		return true, nil
	}
	if !t.IsDepositConfirmed() {
		return false, ErrDepositNotConfirmed
	}
	if t.IsClosed() {
		return false, ErrTradeClosed
	}
	if !t.ConfirmPermitted() {
		return false, ErrConfirmNotPermitted
	}
	if !t.SetStateIfValidTransitionTo(StateBuyerConfirmedInUIFiatPaymentInitiated) {
		return false, ErrInvalidTransition
	}
	return true, nil
}

// PaymentSentMessageReceived is the seller being notified by the buyer that
// the fiat payment was started. The message may arrive before the seller's
// wallet sees the deposit confirmation, so only a published deposit is
// required.
func (t *Trade) PaymentSentMessageReceived() (bool, error) {
	if !t.Role.IsSeller() {
		return false, ErrTradeMustBeSeller
	}
	if t.IsFiatSent() {
		return true, nil
	}
	if !t.IsDepositPublished() {
		return false, ErrDepositNotPublished
	}
	if !t.SetStateIfValidTransitionTo(StateSellerReceivedFiatPaymentInitiatedMsg) {
		return false, ErrInvalidTransition
	}
	return true, nil
}

// ConfirmPaymentReceived is the seller confirming the receipt of the fiat
// payment.
func (t *Trade) ConfirmPaymentReceived() (bool, error) {
	if !t.Role.IsSeller() {
		return false, ErrTradeMustBeSeller
	}
	if t.IsFiatReceived() {
		return true, nil
	}
	if !t.IsFiatSent() {
		return false, ErrFiatNotSent
	}
	if t.IsClosed() {
		return false, ErrTradeClosed
	}
	if !t.ConfirmPermitted() {
		return false, ErrConfirmNotPermitted
	}
	if !t.SetStateIfValidTransitionTo(StateSellerConfirmedInUIFiatPaymentReceipt) {
		return false, ErrInvalidTransition
	}
	return true, nil
}

// PayoutPublished records the payout tx spending the deposit. The seller
// publishes it, the buyer only sees it in the network.
func (t *Trade) PayoutPublished(txid string) (bool, error) {
	if t.IsPayoutPublished() {
		return true, nil
	}
	if len(txid) <= 0 {
		return false, ErrTradeMissingTxId
	}
	if !t.IsDepositConfirmed() {
		return false, ErrDepositNotConfirmed
	}

	next := StateSellerPublishedPayoutTx
	if t.Role.IsBuyer() {
		next = StateBuyerSawPayoutTxInNetwork
	}
	if !t.SetStateIfValidTransitionTo(next) {
		return false, ErrInvalidTransition
	}
	t.PayoutTxId = txid
	return true, nil
}

func (t *Trade) Withdraw() (bool, error) {
	if t.IsWithdrawn() {
		return true, nil
	}
	if !t.IsPayoutPublished() {
		return false, ErrPayoutNotPublished
	}
	if !t.SetStateIfValidTransitionTo(StateWithdrawCompleted) {
		return false, ErrInvalidTransition
	}
	return true, nil
}

// Close moves the trade out of the set of open trades and returns whether
// it was still open.
func (t *Trade) Close() bool {
	if t.IsClosed() {
		return false
	}
	t.ClosedAt = time.Now().Unix()
	return true
}

// CloseDisputed sets the final dispute state and closes the trade. Only the
// first call has effect.
func (t *Trade) CloseDisputed(disputeState DisputeState) bool {
	if t.IsClosed() {
		return false
	}
	t.DisputeState = disputeState
	return t.Close()
}

// ApplyMediationResult records the payouts suggested by the mediator and
// moves the dispute state to MEDIATION_CLOSED. It returns false if the same
// result was already applied.
func (t *Trade) ApplyMediationResult(buyerPayout, sellerPayout btcutil.Amount) bool {
	if t.DisputeState == DisputeStateMediationClosed &&
		t.BuyerPayoutAmountFromMediation == buyerPayout &&
		t.SellerPayoutAmountFromMediation == sellerPayout {
		return false
	}
	t.BuyerPayoutAmountFromMediation = buyerPayout
	t.SellerPayoutAmountFromMediation = sellerPayout
	t.DisputeState = DisputeStateMediationClosed
	return true
}

// PayoutAmount is the amount this trader receives in the normal payout.
func (t *Trade) PayoutAmount() btcutil.Amount {
	return t.Role.rules().payoutAmount(t)
}

// ConfirmPermitted returns whether the trader is allowed to confirm the
// payment step of the protocol given the current dispute state.
func (t *Trade) ConfirmPermitted() bool {
	return t.Role.rules().confirmPermitted(t)
}

// MediationResultAppliedPenaltyToSeller returns whether the mediated seller
// payout is lower than the nominal seller security deposit.
func (t *Trade) MediationResultAppliedPenaltyToSeller() bool {
	return t.SellerPayoutAmountFromMediation < t.Offer.SellerSecurityDeposit
}

func (t *Trade) PriceDecimal() decimal.Decimal {
	return t.Offer.PriceFromLong(t.Price)
}

func (t *Trade) Volume() decimal.Decimal {
	return t.Offer.Volume(t.Amount, t.PriceDecimal())
}

// TradeStartTime is the time the trade period starts counting from: the
// deposit block time, clamped to the trade date, or now if the deposit is
// unconfirmed or its block time lies in the future.
func (t *Trade) TradeStartTime(now time.Time) time.Time {
	if t.DepositBlockTime <= 0 || len(t.DepositTxId) <= 0 {
		return now
	}
	blockTime := time.Unix(t.DepositBlockTime, 0)
	if blockTime.After(now) {
		return now
	}
	tradeTime := time.Unix(t.Date, 0)
	if blockTime.Before(tradeTime) {
		return tradeTime
	}
	return blockTime
}

func (t *Trade) HalfTradePeriodDate(now time.Time) time.Time {
	return t.TradeStartTime(now).Add(t.Offer.MaxTradePeriod / 2)
}

func (t *Trade) MaxTradePeriodDate(now time.Time) time.Time {
	return t.TradeStartTime(now).Add(t.Offer.MaxTradePeriod)
}

// UpdateTradePeriodState moves the trade period state forward according to
// the given time and returns whether it changed. The period runs from the
// deposit confirmation until the payout is published.
func (t *Trade) UpdateTradePeriodState(now time.Time) bool {
	if !t.IsDepositConfirmed() || t.IsPayoutPublished() {
		return false
	}

	next := TradePeriodFirstHalf
	switch {
	case !now.Before(t.MaxTradePeriodDate(now)):
		next = TradePeriodOver
	case !now.Before(t.HalfTradePeriodDate(now)):
		next = TradePeriodSecondHalf
	}
	if next <= t.TradePeriodState {
		return false
	}
	t.TradePeriodState = next
	return true
}

// IsTxChainInvalid returns whether any of the txs the trade relies on is
// missing once the deposit is published.
func (t *Trade) IsTxChainInvalid() bool {
	return len(t.Offer.OfferFeePaymentTxId) <= 0 ||
		len(t.TakerFeeTxId) <= 0 ||
		len(t.DepositTxId) <= 0 ||
		len(t.DepositTx) <= 0
}

// Fail records the error of the last failed operation.
func (t *Trade) Fail(err error) {
	if err == nil {
		return
	}
	t.ErrorMessage = err.Error()
}

// AddChatMessage appends the message unless one with the same uid exists.
func (t *Trade) AddChatMessage(msg ChatMessage) bool {
	for _, m := range t.ChatMessages {
		if m.Uid == msg.Uid {
			return false
		}
	}
	t.ChatMessages = append(t.ChatMessages, msg)
	return true
}

func (t *Trade) RemoveAllChatMessages() bool {
	if len(t.ChatMessages) <= 0 {
		return false
	}
	t.ChatMessages = nil
	return true
}

// MaybeClearSensitiveData drops payment account details and chat messages
// of the trade and returns a description of what was cleared.
func (t *Trade) MaybeClearSensitiveData() string {
	change := ""
	if t.Contract != nil && t.Contract.MaybeClearSensitiveData() {
		change += "contract;"
	}
	if len(t.ContractAsJson) > 0 {
		edited, err := SanitizeContractAsJSON(t.ContractAsJson)
		if err != nil {
			log.WithError(err).Warnf(
				"unable to sanitize contract json of trade %s", t.ShortId(),
			)
		} else if edited != t.ContractAsJson {
			t.ContractAsJson = edited
			change += "contractAsJson;"
		}
	}
	if t.RemoveAllChatMessages() {
		change += "chat messages;"
	}
	if len(change) > 0 {
		log.Infof("cleared sensitive data from %s of trade %s", change, t.ShortId())
	}
	return change
}
