package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// AuditEventMessage is published on PUBSUB_AUDIT_TOPIC for every anomaly report and
// every daily summary.
type AuditEventMessage struct {
	EventType     string    `json:"event_type"`
	InvoiceId     string    `json:"invoice_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	ReportBucket  string    `json:"report_bucket"`
	ReportName    string    `json:"report_name"`
	RowCount      int       `json:"row_count,omitempty"`
	AnomalyCount  int       `json:"anomaly_count,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
	CorrelationId string    `json:"correlation_id,omitempty"`
}

const (
	AuditEventAnomaly      = "invoice.anomaly"
	AuditEventDailySummary = "daily.summary"
)

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

const pubsubMaxAttempts = 5

func getPubSubProjectID() string {
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run sets this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

// GetPubSubClient returns the shared Pub/Sub client, creating it with bounded retries.
// Application Default Credentials are used unless credJSON is provided.
func GetPubSubClient(ctx context.Context, projectID, credJSON string) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()
	if pubsubClient != nil {
		return pubsubClient, nil
	}
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	logger := GetLogger()
	var lastErr error
	for attempt := 1; attempt <= pubsubMaxAttempts; attempt++ {
		var (
			c   *pubsub.Client
			err error
		)
		if credJSON != "" {
			c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
		} else {
			c, err = pubsub.NewClient(ctx, projectID)
		}
		if err == nil {
			pubsubClient = c
			logger.WithField("project_id", projectID).WithField("attempt", attempt).Info("pubsub client ready")
			return c, nil
		}
		lastErr = err

		sleep := backoff(attempt)
		logger.WithField("project_id", projectID).WithField("attempt", attempt).
			Warnf("failed to init pubsub client: %v; retrying in %s", err, sleep)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil, fmt.Errorf("pubsub client: %w", lastErr)
}

func ClosePubSub() {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()
	if pubsubClient != nil {
		_ = pubsubClient.Close()
		pubsubClient = nil
	}
}

func CreateTopicIfNotExists(ctx context.Context, c *pubsub.Client, topic string) (*pubsub.Topic, error) {
	if c == nil {
		return nil, errors.New("pubsub client is nil")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}

	t := c.Topic(topic)
	ok, err := t.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return t, nil
	}
	t, err = c.CreateTopic(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("create topic %q: %w", topic, err)
	}
	return t, nil
}

// PublishAuditEvent publishes msg and returns the server-assigned message ID.
func PublishAuditEvent(ctx context.Context, topic *pubsub.Topic, msg AuditEventMessage) (string, error) {
	if topic == nil {
		return "", errors.New("topic is nil")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	result := topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": msg.EventType,
		},
	})
	return result.Get(ctx)
}

func backoff(attempt int) time.Duration {
	sleep := time.Second * time.Duration(1<<min(attempt, 5))
	if sleep > 30*time.Second {
		sleep = 30 * time.Second
	}
	return sleep
}
