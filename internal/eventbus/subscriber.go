package eventbus

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Subscriber listens for catalog change events and hands them to a
// handler, typically the searcher's pattern cache invalidation.
type Subscriber struct {
	conn         *nats.Conn
	subscription *nats.Subscription
	handler      func(CatalogChangedEvent)
}

func NewSubscriber(natsURL string, handler func(CatalogChangedEvent)) (*Subscriber, error) {
	conn, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)

	if err != nil {
		return nil, err
	}

	log.Printf("Catalog subscriber connected to NATS at %s", natsURL)

	return &Subscriber{
		conn:    conn,
		handler: handler,
	}, nil
}

// Start begins listening for catalog change events
func (s *Subscriber) Start() error {
	var err error

	s.subscription, err = s.conn.Subscribe(CatalogChangedSubject, func(msg *nats.Msg) {
		s.handleCatalogChanged(msg)
	})

	if err != nil {
		return err
	}

	log.Printf("Subscribed to '%s'", CatalogChangedSubject)

	return nil
}

func (s *Subscriber) handleCatalogChanged(msg *nats.Msg) {
	var event CatalogChangedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Printf("Failed to unmarshal catalog change: %v", err)
		return
	}

	log.Printf("Catalog change received: %s record %s", event.ChangeType, event.RecordID)

	s.handler(event)
}

func (s *Subscriber) Close() {
	if s.subscription != nil {
		s.subscription.Unsubscribe()
	}

	if s.conn != nil {
		s.conn.Close()
		log.Printf("Catalog subscriber disconnected from NATS")
	}
}

func (s *Subscriber) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}
