package db_test

import (
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
	"github.com/tdex-network/tdex-escrow/internal/core/ports"
	dbbadger "github.com/tdex-network/tdex-escrow/internal/infrastructure/storage/db/badger"
	"github.com/tdex-network/tdex-escrow/internal/infrastructure/storage/db/inmemory"
)

type repoManager struct {
	ports.RepoManager
	Name string
}

func createRepoManagers(t *testing.T) []repoManager {
	badgerRepoManager, err := dbbadger.NewRepoManager(t.TempDir(), nil)
	require.NoError(t, err)
	badgerInMemoryRepoManager, err := dbbadger.NewRepoManager("", nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		badgerRepoManager.Close()
		badgerInMemoryRepoManager.Close()
	})

	return []repoManager{
		{inmemory.NewRepoManager(), "inmemory"},
		{badgerRepoManager, "badger"},
		{badgerInMemoryRepoManager, "badger_inmemory"},
	}
}

func makeRandomOffer() domain.Offer {
	return domain.Offer{
		Id:                    randomId(),
		Direction:             domain.DirectionBuy,
		PaymentMethodId:       domain.PaymentMethodSepa,
		CurrencyCode:          "EUR",
		BuyerSecurityDeposit:  150000,
		SellerSecurityDeposit: 150000,
		MakerFee:              5000,
		MaxTradePeriod:        8 * 24 * time.Hour,
		OfferFeePaymentTxId:   randomHex(32),
		Date:                  time.Now().Unix(),
	}
}

func makeRandomTrade(t *testing.T) *domain.Trade {
	trade, err := domain.NewTrade(
		randomId(), domain.TradeRole{Direction: domain.Buyer, Initiator: domain.Taker},
		makeRandomOffer(), 1000000, 250000000, 2000, 7000,
	)
	require.NoError(t, err)
	trade.PeerNodeAddress = "peer.onion:9999"
	trade.ArbitratorNodeAddress = "arbitrator.onion:9999"
	trade.ChatMessages = []domain.ChatMessage{
		domain.NewChatMessage(
			domain.SupportTypeTrade, trade.Id, 1, true, "hello", "me.onion:9999",
		),
	}
	return trade
}

func makeRandomDispute(t *testing.T, tradeId string) *domain.Dispute {
	dispute := domain.NewDispute(
		tradeId, makeRandomPubKeyRing(t), domain.SupportTypeArbitration,
		true, false,
	)
	dispute.AgentPubKeyRing = makeRandomPubKeyRing(t)
	dispute.AgentNodeAddress = "arbitrator.onion:9999"
	dispute.SetExtraData("signed_witness", randomHex(16))
	dispute.AddChatMessage(domain.NewSystemMessage(
		dispute.SupportType, tradeId, dispute.TraderId, "dispute opened",
		"me.onion:9999",
	))
	return dispute
}

func makeRandomPubKeyRing(t *testing.T) domain.PubKeyRing {
	signKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	encKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return domain.PubKeyRing{
		SignaturePubKey:  signKey.PubKey().SerializeCompressed(),
		EncryptionPubKey: encKey.PubKey().SerializeCompressed(),
	}
}

func randomHex(len int) string {
	return hex.EncodeToString(randomBytes(len))
}

func randomId() string {
	return uuid.New().String()
}

func randomBytes(len int) []byte {
	b := make([]byte, len)
	//nolint
	rand.Read(b)
	return b
}
