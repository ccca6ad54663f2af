package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/visionops/restaurant-analytics/internal/models"
)

// Producer publishes worker heartbeats and KPI alerts to their topics.
type Producer struct {
	producer       sarama.SyncProducer
	alertTopic     string
	heartbeatTopic string
}

func NewProducer(brokers []string, alertTopic, heartbeatTopic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &Producer{
		producer:       producer,
		alertTopic:     alertTopic,
		heartbeatTopic: heartbeatTopic,
	}, nil
}

func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

// SendHeartbeat publishes one worker liveness message, keyed by role so
// each worker's heartbeats land on one partition in order.
func (p *Producer) SendHeartbeat(hb models.Heartbeat) error {
	payload, err := json.Marshal(hb)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.heartbeatTopic,
		Key:   sarama.StringEncoder(hb.Role),
		Value: sarama.ByteEncoder(payload),
	}

	_, _, err = p.producer.SendMessage(msg)
	return err
}

// SendAlert publishes one threshold alert, keyed by alert type.
func (p *Producer) SendAlert(a models.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.alertTopic,
		Key:   sarama.StringEncoder(a.Type),
		Value: sarama.ByteEncoder(payload),
	}

	_, _, err = p.producer.SendMessage(msg)
	return err
}
