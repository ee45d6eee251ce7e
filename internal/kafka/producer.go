package kafka

import (
	"fmt"
	"time"

	"github.com/Shopify/sarama"
)

type IProducer interface {
	Push(messages [][]byte) error
	Close() error
}

type producer struct {
	topic  string
	conn   sarama.SyncProducer
	client sarama.Client
}

// NewProducer connects to brokers. A positive timeout bounds every network step of a
// push, and a failed send is not retried.
func NewProducer(brokers []string, topic string, timeout time.Duration) (IProducer, error) {
	client, err := sarama.NewClient(brokers, newConfig(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to kafka: %w", err)
	}

	conn, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &producer{conn: conn, topic: topic, client: client}, nil
}

func newConfig(timeout time.Duration) *sarama.Config {
	saramaConf := sarama.NewConfig()
	saramaConf.Producer.Return.Successes = true
	saramaConf.Producer.Return.Errors = true
	saramaConf.Producer.RequiredAcks = sarama.WaitForAll

	if timeout > 0 {
		saramaConf.Net.DialTimeout = timeout
		saramaConf.Net.ReadTimeout = timeout
		saramaConf.Net.WriteTimeout = timeout
		saramaConf.Producer.Timeout = timeout
		saramaConf.Producer.Retry.Max = 0
		saramaConf.Metadata.Retry.Max = 0
		saramaConf.Metadata.Timeout = timeout
	}
	return saramaConf
}

// NewProducerFromSync wraps an existing sync producer.
func NewProducerFromSync(conn sarama.SyncProducer, topic string) IProducer {
	return &producer{conn: conn, topic: topic}
}

func (p producer) Push(messages [][]byte) error {
	if len(messages) == 0 {
		return nil
	}
	return p.conn.SendMessages(toKafkaMessages(messages, p.topic))
}

// Close stops the producer and then the client it was built from.
func (p producer) Close() error {
	err := p.conn.Close()
	if p.client != nil {
		if cerr := p.client.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func toKafkaMessages(messages [][]byte, topic string) []*sarama.ProducerMessage {
	var res []*sarama.ProducerMessage
	for _, message := range messages {
		res = append(res, &sarama.ProducerMessage{
			Topic: topic,
			Value: sarama.ByteEncoder(message),
		})
	}
	return res
}
