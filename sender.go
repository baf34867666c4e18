// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

import (
	"context"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Sender submits a record to the broker without waiting for it. The returned
// Delivery resolves once the broker acknowledged or rejected the record.
//
// Implementations must report failures as *BrokerError so the router can
// classify them; any other error is treated as KindUnknown. Send should
// always return a Delivery; a nil one is treated as a KindUnknown failure.
type Sender interface {
	Send(ctx context.Context, r *Record) *Delivery
}

// Result is the resolved state of one send.
type Result struct {
	// Topic the record was sent to.
	Topic string

	// Partition and Offset are assigned by the broker on success.
	Partition int32
	Offset    int64

	// Err is nil on success.
	Err error
}

// Succeeded reports whether the broker acknowledged the record.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Classification of the failure. Only meaningful when Err is not nil.
func (r Result) Classification() Classification {
	return classifyErr(r.Err)
}

// Delivery is a one-shot future for a Result.
type Delivery struct {
	once   sync.Once
	done   chan struct{}
	result Result
}

// NewDelivery returns an unresolved Delivery.
func NewDelivery() *Delivery {
	return &Delivery{
		done: make(chan struct{}),
	}
}

// Resolve sets the result. Only the first call has an effect.
func (d *Delivery) Resolve(r Result) {
	d.once.Do(func() {
		d.result = r
		close(d.done)
	})
}

// Done is closed once the delivery is resolved.
func (d *Delivery) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until the delivery resolves or ctx ends. The error is only
// set when ctx ended first.
func (d *Delivery) Wait(ctx context.Context) (Result, error) {
	select {
	case <-d.done:
		return d.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// kgoSender sends records through franz-go.
type kgoSender struct {
	client kafkaClient
}

func (s *kgoSender) Send(ctx context.Context, r *Record) *Delivery {
	d := NewDelivery()

	s.client.Produce(ctx, toKgoRecord(r), func(rec *kgo.Record, err error) {
		if err != nil {
			d.Resolve(Result{
				Topic: r.Topic,
				Err: &BrokerError{
					Kind: kgoKind(err),
					Err:  err,
				},
			})
			return
		}

		d.Resolve(Result{
			Topic:     rec.Topic,
			Partition: rec.Partition,
			Offset:    rec.Offset,
		})
	})

	return d
}

func toKgoRecord(r *Record) *kgo.Record {
	headers := make([]kgo.RecordHeader, 0, len(r.Headers))
	for _, h := range r.Headers {
		headers = append(headers, kgo.RecordHeader{
			Key:   h.Key,
			Value: h.Value,
		})
	}

	return &kgo.Record{
		Topic:   r.Topic,
		Key:     r.Key,
		Value:   r.Value,
		Headers: headers,
	}
}
