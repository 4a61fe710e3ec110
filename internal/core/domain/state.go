package domain

// State is the fine-grained protocol step of a trade. Each state belongs to
// exactly one Phase. Names are persisted, never rename a constant.
type State int

const (
	StatePreparation State = iota

	StateTakerPublishedTakerFeeTx
	StateMakerSentPublishDepositTxRequest
	StateMakerSawArrivedPublishDepositTxRequest
	StateMakerStoredInMailboxPublishDepositTxRequest
	StateMakerSendFailedPublishDepositTxRequest
	StateTakerReceivedPublishDepositTxRequest

	StateSellerPublishedDepositTx
	// Deprecated: the deposit is sent to the peer before being published.
	StateSellerSentDepositTxPublishedMsg
	// Deprecated: the deposit is sent to the peer before being published.
	StateSellerSawArrivedDepositTxPublishedMsg
	// Deprecated: the deposit is sent to the peer before being published.
	StateSellerStoredInMailboxDepositTxPublishedMsg
	// Deprecated: the deposit is sent to the peer before being published.
	StateSellerSendFailedDepositTxPublishedMsg
	StateBuyerReceivedDepositTxPublishedMsg
	StateBuyerSawDepositTxInNetwork

	StateDepositConfirmedInBlockChain

	StateBuyerConfirmedInUIFiatPaymentInitiated
	StateBuyerSentFiatPaymentInitiatedMsg
	StateBuyerSawArrivedFiatPaymentInitiatedMsg
	StateBuyerStoredInMailboxFiatPaymentInitiatedMsg
	StateBuyerSendFailedFiatPaymentInitiatedMsg
	StateSellerReceivedFiatPaymentInitiatedMsg

	StateSellerConfirmedInUIFiatPaymentReceipt

	StateSellerPublishedPayoutTx
	StateSellerSentPayoutTxPublishedMsg
	StateSellerSawArrivedPayoutTxPublishedMsg
	StateSellerStoredInMailboxPayoutTxPublishedMsg
	StateSellerSendFailedPayoutTxPublishedMsg
	StateBuyerReceivedPayoutTxPublishedMsg
	StateBuyerSawPayoutTxInNetwork

	StateWithdrawCompleted
)

var stateInfo = []struct {
	name  string
	phase Phase
}{
	{"PREPARATION", PhaseInit},

	{"TAKER_PUBLISHED_TAKER_FEE_TX", PhaseTakerFeePublished},
	{"MAKER_SENT_PUBLISH_DEPOSIT_TX_REQUEST", PhaseTakerFeePublished},
	{"MAKER_SAW_ARRIVED_PUBLISH_DEPOSIT_TX_REQUEST", PhaseTakerFeePublished},
	{"MAKER_STORED_IN_MAILBOX_PUBLISH_DEPOSIT_TX_REQUEST", PhaseTakerFeePublished},
	{"MAKER_SEND_FAILED_PUBLISH_DEPOSIT_TX_REQUEST", PhaseTakerFeePublished},
	{"TAKER_RECEIVED_PUBLISH_DEPOSIT_TX_REQUEST", PhaseTakerFeePublished},

	{"SELLER_PUBLISHED_DEPOSIT_TX", PhaseDepositPublished},
	{"SELLER_SENT_DEPOSIT_TX_PUBLISHED_MSG", PhaseDepositPublished},
	{"SELLER_SAW_ARRIVED_DEPOSIT_TX_PUBLISHED_MSG", PhaseDepositPublished},
	{"SELLER_STORED_IN_MAILBOX_DEPOSIT_TX_PUBLISHED_MSG", PhaseDepositPublished},
	{"SELLER_SEND_FAILED_DEPOSIT_TX_PUBLISHED_MSG", PhaseDepositPublished},
	{"BUYER_RECEIVED_DEPOSIT_TX_PUBLISHED_MSG", PhaseDepositPublished},
	{"BUYER_SAW_DEPOSIT_TX_IN_NETWORK", PhaseDepositPublished},

	{"DEPOSIT_CONFIRMED_IN_BLOCK_CHAIN", PhaseDepositConfirmed},

	{"BUYER_CONFIRMED_IN_UI_FIAT_PAYMENT_INITIATED", PhaseFiatSent},
	{"BUYER_SENT_FIAT_PAYMENT_INITIATED_MSG", PhaseFiatSent},
	{"BUYER_SAW_ARRIVED_FIAT_PAYMENT_INITIATED_MSG", PhaseFiatSent},
	{"BUYER_STORED_IN_MAILBOX_FIAT_PAYMENT_INITIATED_MSG", PhaseFiatSent},
	{"BUYER_SEND_FAILED_FIAT_PAYMENT_INITIATED_MSG", PhaseFiatSent},
	{"SELLER_RECEIVED_FIAT_PAYMENT_INITIATED_MSG", PhaseFiatSent},

	{"SELLER_CONFIRMED_IN_UI_FIAT_PAYMENT_RECEIPT", PhaseFiatReceived},

	{"SELLER_PUBLISHED_PAYOUT_TX", PhasePayoutPublished},
	{"SELLER_SENT_PAYOUT_TX_PUBLISHED_MSG", PhasePayoutPublished},
	{"SELLER_SAW_ARRIVED_PAYOUT_TX_PUBLISHED_MSG", PhasePayoutPublished},
	{"SELLER_STORED_IN_MAILBOX_PAYOUT_TX_PUBLISHED_MSG", PhasePayoutPublished},
	{"SELLER_SEND_FAILED_PAYOUT_TX_PUBLISHED_MSG", PhasePayoutPublished},
	{"BUYER_RECEIVED_PAYOUT_TX_PUBLISHED_MSG", PhasePayoutPublished},
	{"BUYER_SAW_PAYOUT_TX_IN_NETWORK", PhasePayoutPublished},

	{"WITHDRAW_COMPLETED", PhaseWithdrawn},
}

var stateNames = func() []string {
	names := make([]string, 0, len(stateInfo))
	for _, info := range stateInfo {
		names = append(names, info.name)
	}
	return names
}()

// AllStates returns every known state in declaration order.
func AllStates() []State {
	states := make([]State, 0, len(stateInfo))
	for i := range stateInfo {
		states = append(states, State(i))
	}
	return states
}

func (s State) IsValid() bool {
	return int(s) >= 0 && int(s) < len(stateInfo)
}

func (s State) String() string {
	return enumName(stateNames, int(s))
}

// Phase returns the milestone the state belongs to.
func (s State) Phase() Phase {
	if !s.IsValid() {
		return PhaseInit
	}
	return stateInfo[s].phase
}

// IsValidTransitionTo returns true if next belongs to a later phase or to the
// same phase of s.
func (s State) IsValidTransitionTo(next State) bool {
	current, target := s.Phase(), next.Phase()
	return current.IsValidTransitionTo(target) || current == target
}

func (s State) MarshalText() ([]byte, error) {
	return marshalEnum(stateNames, int(s), "state")
}

func (s *State) UnmarshalText(text []byte) error {
	i, err := parseEnum(stateNames, string(text))
	if err != nil {
		return err
	}
	*s = State(i)
	return nil
}
