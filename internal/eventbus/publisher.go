package eventbus

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

const CatalogChangedSubject = "catalog.changed"

// CatalogChangedEvent announces a tech message write so every instance
// can drop its compiled pattern and category caches for that record.
type CatalogChangedEvent struct {
	RecordID   string `json:"record_id"`
	Pattern    string `json:"pattern"`
	ChangeType string `json:"change_type"` // created | updated | deleted
	Timestamp  int64  `json:"timestamp"`
}

// Publisher publishes events to NATS
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher creates a new event bus publisher
func NewPublisher(natsURL string) (*Publisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	log.Printf("Catalog publisher connected to NATS at %s", natsURL)

	return &Publisher{
		conn: conn,
	}, nil
}

// PublishCatalogChanged publishes a catalog change to the
// "catalog.changed" topic
func (p *Publisher) PublishCatalogChanged(event CatalogChangedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(CatalogChangedSubject, data); err != nil {
		return err
	}

	log.Printf("Published catalog change: %s record %s", event.ChangeType, event.RecordID)

	return nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
		log.Println("Catalog publisher disconnected from NATS")
	}
}

// IsConnected returns true if connected to NATS
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}
