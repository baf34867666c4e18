// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package kafkaroute provides a Kafka publisher that classifies delivery
// failures and parks undeliverable messages on retry or dead-letter topics
// instead of losing them.
//
// # Overview
//
// Every Publish call ends in one of four outcomes:
//
//   - Accepted: the intended topic acknowledged the message, possibly after
//     retries.
//   - RoutedRetry: the intended topic kept timing out and the message was
//     sent to the retry topic.
//   - RoutedDeadLetter: the message failed for a non-timeout reason, or
//     timed out with no retry topic configured, and was sent to the
//     dead-letter topic.
//   - Failed: nothing stored the message. The returned error says why.
//
// # Quick Start
//
//	router := &kafkaroute.Router{
//	    Brokers: []string{"localhost:9092"},
//	    Retry: kafkaroute.RetryPolicy{
//	        MaxAttempts: 3,
//	        BaseDelay:   time.Second,
//	    },
//	    InitialDynamicConfig: kafkaroute.DynamicConfig{
//	        Topics: kafkaroute.TopicSet{
//	            Notification: "orders",
//	            Retry:        "orders-retry",
//	            DeadLetter:   "orders-dlt",
//	        },
//	    },
//	}
//	if err := router.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer router.Stop(context.Background())
//
//	outcome, err := router.Publish(ctx, &kafkaroute.Message{
//	    Key:   []byte("order-42"),
//	    Value: order,
//	})
//
// # Failure Classification
//
// Broker errors are mapped onto a FailureKind. Timeouts and transaction
// timeouts are Transient and retried with exponential backoff; everything
// else is Fatal and rerouted at once. Senders other than the built-in
// franz-go one report failures as *BrokerError so they classify the same
// way.
//
// # Claim Check
//
// Payloads larger than Router.ClaimCheckThreshold are compressed and
// uploaded to an ObjectStore by the Offloader. A Reference carrying the
// object URL is published in their place, marked with the x-claim-check
// header. The blobstore/azblob package provides an Azure Blob Storage
// store.
//
// # Observability
//
// Logging uses franz-go's kgo.Logger interface. Every send is reported to
// PublishEvent listeners, and a Counters implementation receives
// increments for successes, failures, retries and reroutes.
//
// # Thread Safety
//
// Router is safe for concurrent use. Configuration reads are lock-free;
// UpdateConfig swaps the topics and headers used by later attempts.
package kafkaroute
