package billing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/abhilash2429/Artrix-AI/pkg/kafka"
	"github.com/abhilash2429/Artrix-AI/pkg/logging"
)

// UsageSummary is the billing record published per closed session.
type UsageSummary struct {
	TenantID     string    `json:"tenant_id"`
	SessionID    string    `json:"session_id"`
	EventType    string    `json:"event_type"`
	Turns        int64     `json:"turns"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	ClosedAt     time.Time `json:"closed_at"`
}

// PublisherConfig configures the Kafka usage publisher.
type PublisherConfig struct {
	Brokers   []string
	ClusterID string
	Topic     string
	Logger    logging.Logger
}

// Publisher sends usage summaries to the billing topic. A nil Publisher is
// valid and drops summaries, for deployments without Kafka.
type Publisher struct {
	producer *kafka.Producer
	topic    string
	logger   logging.Logger
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required for billing publisher")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = "billing.usage_reports"
	}
	clusterID := cfg.ClusterID
	if clusterID == "" {
		clusterID = "local"
	}
	producer, err := kafka.NewProducer(cfg.Brokers, "artrix-billing", clusterID, cfg.Logger)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		producer: producer,
		topic:    topic,
		logger:   cfg.Logger,
	}, nil
}

func (p *Publisher) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

// PublishUsageSummary sends one summary keyed by tenant.
func (p *Publisher) PublishUsageSummary(summary UsageSummary) error {
	if p == nil || p.producer == nil {
		return nil
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal usage summary: %w", err)
	}
	err = p.producer.ProduceMessage(
		p.topic,
		[]byte(summary.TenantID),
		payload,
		map[string]string{
			"source":    "artrix",
			"type":      "usage_summary",
			"tenant_id": summary.TenantID,
		},
	)
	if err != nil {
		return err
	}
	if p.logger != nil {
		p.logger.WithFields(logging.Fields{
			"tenant_id":  summary.TenantID,
			"session_id": summary.SessionID,
			"topic":      p.topic,
		}).Info("Published usage summary to billing")
	}
	return nil
}
