package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/invoice_audit/config"
	"github.com/mmdatafocus/invoice_audit/models"
	"github.com/mmdatafocus/invoice_audit/utils"
	"github.com/sirupsen/logrus"
)

// PubSubPushMessage is the envelope of a Pub/Sub push delivery.
type PubSubPushMessage struct {
	Message struct {
		Attributes map[string]string `json:"attributes,omitempty"`
		Data       []byte            `json:"data,omitempty"`
		MessageID  string            `json:"messageId"`
		ID         string            `json:"message_id"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

func (m PubSubPushMessage) id() string {
	if m.Message.MessageID != "" {
		return m.Message.MessageID
	}
	return m.Message.ID
}

// GCS object notifications carry these attributes.
const (
	attrBucketId        = "bucketId"
	attrObjectId        = "objectId"
	attrEventType       = "eventType"
	eventObjectFinalize = "OBJECT_FINALIZE"
)

var errDuplicateDelivery = errors.New("duplicate delivery")

func deliveryKey(messageId string) string {
	return "pubsub:invoice-exports:" + messageId
}

// processInvoiceMessage handles one delivery: a GCS notification about a new export
// object, or the invoice JSON itself in the message data.
func (s *server) processInvoiceMessage(ctx context.Context, messageId string, attrs map[string]string, data []byte) error {
	entry := s.logger.WithFields(logrus.Fields{"message_id": messageId})

	if messageId != "" {
		claimed, err := config.ClaimOnce(ctx, s.redis, deliveryKey(messageId), config.DeliveryClaimTTL)
		if err != nil {
			entry.WithError(err).Warn("delivery dedupe unavailable; processing anyway")
		} else if !claimed {
			entry.Info("duplicate delivery skipped")
			return errDuplicateDelivery
		}
	}

	var err error
	if objectId := attrs[attrObjectId]; objectId != "" {
		if eventType := attrs[attrEventType]; eventType != "" && eventType != eventObjectFinalize {
			entry.WithField("event_type", eventType).Debug("ignoring non-finalize storage event")
			return nil
		}
		bucket := attrs[attrBucketId]
		if bucket == "" {
			bucket = s.cfg.ExportBucket
		}
		_, err = s.auditor.ProcessExportObject(ctx, bucket, objectId)
	} else {
		_, err = s.auditor.ProcessInvoiceEvent(ctx, data)
	}
	if err != nil && messageId != "" && s.shouldRetry(err) {
		if relErr := config.ReleaseClaim(ctx, s.redis, deliveryKey(messageId)); relErr != nil {
			entry.WithError(relErr).Warn("failed to release delivery claim")
		}
	}
	return err
}

func (s *server) shouldRetry(err error) bool {
	return s.cfg.Flags.PushRetryTransient && utils.IsTransientError(err)
}

func (s *server) logInvoiceFailure(ctx context.Context, funcName string, err error) {
	msgId, _ := utils.GetMessageIdFromContext(ctx)
	s.logger.WithFields(logrus.Fields{
		"module":     "pubsubHandlers.go",
		"funcName":   funcName,
		"message_id": msgId,
		"kind":       utils.ErrorKindOf(err),
	}).Error("invoice reconciliation failed: " + err.Error())
}

func (s *server) invoiceExportsPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var msg PubSubPushMessage

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			config.LogError(s.logger, "pubsubHandlers.go", "invoiceExportsPushHandler", "io.ReadAll", nil, err)
			// Malformed request body: ack/drop to avoid infinite retries.
			c.Status(http.StatusNoContent)
			return
		}

		// byte slice unmarshalling handles base64 decoding.
		if err := json.Unmarshal(body, &msg); err != nil {
			config.LogError(s.logger, "pubsubHandlers.go", "invoiceExportsPushHandler", "Unmarshal body", string(body), err)
			c.Status(http.StatusNoContent)
			return
		}

		messageId := msg.id()
		ctx := utils.SetMessageIdInContext(c.Request.Context(), messageId)
		ctx = utils.SetTriggerInContext(ctx, string(models.RunTriggerPush))

		err = s.processInvoiceMessage(ctx, messageId, msg.Message.Attributes, msg.Message.Data)
		switch {
		case err == nil, errors.Is(err, errDuplicateDelivery):
			c.Status(http.StatusNoContent)
		case s.shouldRetry(err):
			s.logInvoiceFailure(ctx, "invoiceExportsPushHandler", err)
			// Non-2xx tells Pub/Sub to redeliver.
			c.Status(http.StatusServiceUnavailable)
		default:
			s.logInvoiceFailure(ctx, "invoiceExportsPushHandler", err)
			c.Status(http.StatusNoContent)
		}
	}
}

// receiveInvoiceExports pulls from PUBSUB_INVOICE_SUBSCRIPTION until ctx is done.
func (s *server) receiveInvoiceExports(ctx context.Context, sub *pubsub.Subscription) {
	sub.ReceiveSettings.MaxOutstandingMessages = 4
	s.logger.WithField("subscription", sub.ID()).Info("pulling invoice exports")

	err := sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		ctx = utils.SetMessageIdInContext(ctx, m.ID)
		ctx = utils.SetCorrelationIdInContext(ctx, m.ID)
		ctx = utils.SetTriggerInContext(ctx, string(models.RunTriggerPull))

		err := s.processInvoiceMessage(ctx, m.ID, m.Attributes, m.Data)
		if err != nil && !errors.Is(err, errDuplicateDelivery) {
			s.logInvoiceFailure(ctx, "receiveInvoiceExports", err)
			if s.shouldRetry(err) {
				m.Nack()
				return
			}
		}
		m.Ack()
	})
	if err != nil && ctx.Err() == nil {
		config.LogError(s.logger, "pubsubHandlers.go", "receiveInvoiceExports", "Receive", sub.ID(), err)
	}
}
