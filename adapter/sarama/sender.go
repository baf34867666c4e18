// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package sarama adapts a Shopify/sarama producer to kafkaroute.Sender.
//
// The producer must be created with Producer.Return.Successes enabled, as
// sarama requires for synchronous producers. The package shares its name
// with sarama, so import it under an alias:
//
//	import kafkasarama "github.com/xmidt-org/kafkaroute/adapter/sarama"
//
//	cfg := sarama.NewConfig()
//	cfg.Producer.Return.Successes = true
//	producer, err := sarama.NewSyncProducer(brokers, cfg)
//	...
//	router := &kafkaroute.Router{
//	    Brokers: brokers,
//	    Sender:  kafkasarama.NewSender(producer),
//	}
package sarama

import (
	"context"
	"errors"

	"github.com/Shopify/sarama"
	"github.com/xmidt-org/kafkaroute"
)

// messageSender is the part of sarama.SyncProducer the adapter uses.
type messageSender interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

var _ messageSender = sarama.SyncProducer(nil)

// Sender sends records through a sarama SyncProducer. Each send runs on its
// own goroutine so the caller gets a Delivery back immediately.
type Sender struct {
	producer messageSender
}

var _ kafkaroute.Sender = (*Sender)(nil)

// NewSender wraps producer.
func NewSender(producer sarama.SyncProducer) *Sender {
	return &Sender{producer: producer}
}

// Send submits r. Failures resolve with a *kafkaroute.BrokerError whose kind
// is derived from the sarama error.
func (s *Sender) Send(ctx context.Context, r *kafkaroute.Record) *kafkaroute.Delivery {
	d := kafkaroute.NewDelivery()

	if err := ctx.Err(); err != nil {
		d.Resolve(failure(r.Topic, err))
		return d
	}

	msg := toProducerMessage(r)
	go func() {
		partition, offset, err := s.producer.SendMessage(msg)
		if err != nil {
			d.Resolve(failure(r.Topic, err))
			return
		}

		d.Resolve(kafkaroute.Result{
			Topic:     r.Topic,
			Partition: partition,
			Offset:    offset,
		})
	}()

	return d
}

// Close closes the underlying producer.
func (s *Sender) Close() error {
	return s.producer.Close()
}

func failure(topic string, err error) kafkaroute.Result {
	return kafkaroute.Result{
		Topic: topic,
		Err: &kafkaroute.BrokerError{
			Kind: Kind(err),
			Err:  err,
		},
	}
}

// Kind translates a sarama error into a kafkaroute.FailureKind.
func Kind(err error) kafkaroute.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return kafkaroute.KindTimeout
	}

	var encErr sarama.PacketEncodingError
	if errors.As(err, &encErr) {
		return kafkaroute.KindSerialization
	}

	var cfgErr sarama.ConfigurationError
	if errors.As(err, &cfgErr) {
		return kafkaroute.KindValidation
	}

	var kErr sarama.KError
	if !errors.As(err, &kErr) {
		return kafkaroute.KindUnknown
	}

	switch kErr {
	case sarama.ErrRequestTimedOut:
		return kafkaroute.KindTimeout
	case sarama.ErrConcurrentTransactions:
		return kafkaroute.KindTransactionTimeout
	case sarama.ErrTopicAuthorizationFailed,
		sarama.ErrClusterAuthorizationFailed,
		sarama.ErrTransactionalIDAuthorizationFailed,
		sarama.ErrSASLAuthenticationFailed:
		return kafkaroute.KindAuthorization
	case sarama.ErrInvalidMessage:
		return kafkaroute.KindSerialization
	case sarama.ErrMessageSizeTooLarge,
		sarama.ErrInvalidTopic,
		sarama.ErrUnknownTopicOrPartition,
		sarama.ErrInvalidTransactionTimeout:
		return kafkaroute.KindValidation
	}

	return kafkaroute.KindUnknown
}

func toProducerMessage(r *kafkaroute.Record) *sarama.ProducerMessage {
	headers := make([]sarama.RecordHeader, len(r.Headers))
	for i, h := range r.Headers {
		headers[i] = sarama.RecordHeader{
			Key:   []byte(h.Key),
			Value: h.Value,
		}
	}

	msg := &sarama.ProducerMessage{
		Topic:   r.Topic,
		Headers: headers,
	}
	// A nil Encoder lets the partitioner pick the partition.
	if r.Key != nil {
		msg.Key = sarama.ByteEncoder(r.Key)
	}
	if r.Value != nil {
		msg.Value = sarama.ByteEncoder(r.Value)
	}
	return msg
}
