package postgres

import (
	"context"
	"fmt"
)

// Notifier publishes NOTIFY events on a fixed channel. Inside a transaction
// the event is delivered to listeners only when the transaction commits.
type Notifier struct {
	txManager *TxManager
	channel   string
}

// NewNotifier creates a notifier for channel.
func NewNotifier(txManager *TxManager, channel string) *Notifier {
	return &Notifier{txManager: txManager, channel: channel}
}

// Notify sends payload on the notifier's channel.
func (n *Notifier) Notify(ctx context.Context, payload string) error {
	if _, err := n.txManager.GetQuerier(ctx).Exec(ctx, "SELECT pg_notify($1, $2)", n.channel, payload); err != nil {
		return fmt.Errorf("notify %s: %w", n.channel, err)
	}
	return nil
}
