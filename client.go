// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

import (
	"context"

	"github.com/twmb/franz-go/pkg/kgo"
)

// kafkaClient is the subset of the franz-go client the router needs, so the
// client can be mocked in tests.
type kafkaClient interface {
	// Produce produces a record asynchronously; promise is called once the
	// broker acknowledges or the record fails.
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))

	// Flush flushes all buffered records and waits for them to be sent.
	Flush(ctx context.Context) error

	// Close closes the Kafka client and releases resources.
	Close()

	// BufferedProduceRecords returns the current number of buffered records.
	BufferedProduceRecords() int64

	// BufferedProduceBytes returns the current number of buffered bytes.
	BufferedProduceBytes() int64
}

var _ kafkaClient = (*kgo.Client)(nil)

// clientFactory creates a Kafka client from options. Tests replace it.
type clientFactory func(opts ...kgo.Opt) (kafkaClient, error)

func defaultClientFactory(opts ...kgo.Opt) (kafkaClient, error) {
	return kgo.NewClient(opts...)
}
