package workflow

import (
	"context"

	"cloud.google.com/go/pubsub"
	"github.com/mmdatafocus/invoice_audit/config"
)

type Notifier interface {
	Notify(ctx context.Context, msg config.AuditEventMessage) error
}

type PubSubNotifier struct {
	Topic *pubsub.Topic
}

func (n *PubSubNotifier) Notify(ctx context.Context, msg config.AuditEventMessage) error {
	_, err := config.PublishAuditEvent(ctx, n.Topic, msg)
	return err
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, config.AuditEventMessage) error { return nil }
