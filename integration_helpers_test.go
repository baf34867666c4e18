// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

//go:build integration

package kafkaroute_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/xmidt-org/kafkaroute"
	"github.com/xmidt-org/wrp-go/v5"
)

const (
	messageConsumeWait = 10 * time.Second
)

// setupKafka starts Kafka using testcontainers and returns the broker address.
// The container is stopped when the test completes.
func setupKafka(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// confluent-local is built for testcontainers; the version tag is pinned
	// because testcontainers validates it for KRaft mode.
	kafkaContainer, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.8.0",
		kafka.WithClusterID("test-cluster"),
	)
	require.NoError(t, err, "Failed to start Kafka container")

	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "Failed to get Kafka brokers")
	require.NotEmpty(t, brokers, "No Kafka brokers available")

	broker := brokers[0]
	t.Logf("Kafka broker available at: %s", broker)

	require.NoError(t, waitForKafka(ctx, t, broker))
	return broker
}

// waitForKafka pings the broker until it responds or 30s pass.
func waitForKafka(ctx context.Context, t *testing.T, broker string) error {
	t.Helper()

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		client, err := kgo.NewClient(
			kgo.SeedBrokers(broker),
			kgo.RequestTimeoutOverhead(5*time.Second),
		)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := client.Ping(pingCtx)
			cancel()
			client.Close()

			if err == nil {
				return nil
			}
			t.Logf("Kafka not ready yet: %v", err)
		}

		time.Sleep(time.Second)
	}

	return context.DeadlineExceeded
}

func testTopics(prefix string) kafkaroute.TopicSet {
	return kafkaroute.TopicSet{
		Notification: prefix,
		Retry:        prefix + "-retry",
		DeadLetter:   prefix + "-dlt",
	}
}

// createTestRouter creates a Router for the broker that may create topics.
func createTestRouter(t *testing.T, broker string, topics kafkaroute.TopicSet) *kafkaroute.Router {
	t.Helper()

	return &kafkaroute.Router{
		Brokers:                []string{broker},
		AllowAutoTopicCreation: true,
		Retry: kafkaroute.RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   100 * time.Millisecond,
		},
		InitialDynamicConfig: kafkaroute.DynamicConfig{
			Topics: topics,
		},
	}
}

// createTopics makes sure every topic exists by publishing to it once.
func createTopics(t *testing.T, broker string, topics ...string) {
	t.Helper()

	client, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.AllowAutoTopicCreation(),
	)
	require.NoError(t, err)
	defer client.Close()

	for _, topic := range topics {
		results := client.ProduceSync(context.Background(), &kgo.Record{Topic: topic, Value: []byte("warmup")})
		require.NoError(t, results.FirstErr(), "failed to create topic %s", topic)
	}
}

// consumeMessages consumes messages from a Kafka topic until timeout.
func consumeMessages(t *testing.T, broker string, topic string, timeout time.Duration) []*kgo.Record {
	t.Helper()

	client, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err, "Failed to create Kafka consumer")
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var records []*kgo.Record
	for ctx.Err() == nil {
		fetches := client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			break
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			if ctx.Err() == nil {
				t.Logf("Fetch error on %s[%d]: %v", topic, partition, err)
			}
		})

		fetches.EachRecord(func(r *kgo.Record) {
			if string(r.Value) != "warmup" {
				records = append(records, r)
			}
		})

		if len(records) > 0 {
			break
		}
	}

	return records
}

// decodeWRPMessage decodes a msgpack-encoded WRP message from a Kafka record.
func decodeWRPMessage(t *testing.T, record *kgo.Record) *wrp.Message {
	t.Helper()

	var msg wrp.Message
	decoder := wrp.NewDecoderBytes(record.Value, wrp.Msgpack)
	require.NoError(t, decoder.Decode(&msg), "Failed to decode WRP message")

	return &msg
}

func recordHeader(record *kgo.Record, key string) (string, bool) {
	for _, h := range record.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}

// createTestMessage creates a WRP message for testing.
func createTestMessage(eventType string, deviceID string) *wrp.Message {
	return &wrp.Message{
		Type:        wrp.SimpleEventMessageType,
		Source:      deviceID,
		Destination: "event:" + eventType + "/" + deviceID,
		Payload:     []byte(`{"status":"online"}`),
	}
}
