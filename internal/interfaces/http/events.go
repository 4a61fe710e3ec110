package httpinterface

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/domain"
)

const (
	eventBufferSize = 64
	writeWait       = 10 * time.Second
	pingPeriod      = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type eventMessage struct {
	Event   string       `json:"event"`
	TradeId string       `json:"tradeId"`
	Data    domain.Event `json:"data"`
}

// streamEvents pushes the domain events to a websocket client, optionally
// filtered by topic and trade. Events are dropped for clients too slow to
// keep up.
func (h *handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	tradeId := r.URL.Query().Get("tradeId")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events := make(chan domain.Event, eventBufferSize)
	subId := h.PubSub.Subscribe(func(e domain.Event) {
		if len(topic) > 0 && e.Topic() != topic {
			return
		}
		if len(tradeId) > 0 && e.TradeId() != tradeId {
			return
		}
		select {
		case events <- e:
		default:
			log.Warnf("dropping %s event for slow websocket client", e.Topic())
		}
	})
	defer h.PubSub.Unsubscribe(subId)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case e := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(eventMessage{
				Event: e.Topic(), TradeId: e.TradeId(), Data: e,
			}); err != nil {
				log.WithError(err).Debug("websocket write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(
				websocket.PingMessage, nil, time.Now().Add(writeWait),
			); err != nil {
				return
			}
		}
	}
}
