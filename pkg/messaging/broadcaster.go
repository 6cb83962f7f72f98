package messaging

import (
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/matst80/slask-browser/pkg/types"
)

// Broadcaster publishes dataset changes so peer instances pick them up. The
// exchanges are declared once up front; each publish opens its own channel.
type Broadcaster struct {
	conn   *amqp.Connection
	prefix string
}

func NewBroadcaster(conn *amqp.Connection, prefix string) (*Broadcaster, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	defer ch.Close()
	for _, topic := range []ChangeTopic{RecordsUpserted, RecordsReloaded} {
		if err := DefineTopic(ch, prefix, topic); err != nil {
			return nil, err
		}
	}
	return &Broadcaster{conn: conn, prefix: prefix}, nil
}

// RecordsChanged announces an upsert batch. The publisher receives its own
// message back; re-applying the batch is harmless since upserts key on the
// record path.
func (b *Broadcaster) RecordsChanged(records []types.Record) error {
	return SendChange(b.conn, b.prefix, RecordsUpserted, records)
}

// Reloaded tells peers to re-read the shared snapshot from disk.
func (b *Broadcaster) Reloaded() error {
	return SendChange(b.conn, b.prefix, RecordsReloaded, struct{}{})
}
