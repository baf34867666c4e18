// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/twmb/franz-go/pkg/kgo"
)

// mockKafkaClient is a mock implementation of kafkaClient for testing.
type mockKafkaClient struct {
	mock.Mock
}

func (m *mockKafkaClient) Produce(ctx context.Context, r *kgo.Record, cb func(*kgo.Record, error)) {
	m.Called(ctx, r, cb)
}

func (m *mockKafkaClient) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockKafkaClient) Close() {
	m.Called()
}

func (m *mockKafkaClient) BufferedProduceRecords() int64 {
	args := m.Called()
	return args.Get(0).(int64)
}

func (m *mockKafkaClient) BufferedProduceBytes() int64 {
	args := m.Called()
	return args.Get(0).(int64)
}

// mockSender is a mock implementation of Sender. Every record sent is also
// copied into sent, since the router reuses the record between attempts.
type mockSender struct {
	mock.Mock

	mu   sync.Mutex
	sent []Record
}

func (m *mockSender) Send(ctx context.Context, r *Record) *Delivery {
	m.mu.Lock()
	m.sent = append(m.sent, *r)
	m.mu.Unlock()

	args := m.Called(ctx, r)
	return args.Get(0).(*Delivery)
}

// topics returns the topics of all sends, in order.
func (m *mockSender) topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.sent))
	for _, r := range m.sent {
		out = append(out, r.Topic)
	}
	return out
}

func (m *mockSender) records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.sent...)
}

// onTopic matches records sent to topic.
func onTopic(topic string) any {
	return mock.MatchedBy(func(r *Record) bool {
		return r.Topic == topic
	})
}

// resolved returns a Delivery that already holds the outcome of a send.
func resolved(topic string, err error) *Delivery {
	d := NewDelivery()
	d.Resolve(Result{Topic: topic, Err: err})
	return d
}

// timeoutErr is a transient broker failure.
func timeoutErr() error {
	return &BrokerError{Kind: KindTimeout, Err: kgo.ErrRecordTimeout}
}

// authErr is a fatal broker failure.
func authErr() error {
	return &BrokerError{Kind: KindAuthorization}
}

// waitRecorder replaces the backoff sleep and remembers every delay.
type waitRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (w *waitRecorder) wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.delays = append(w.delays, d)
	w.mu.Unlock()
	return ctx.Err()
}

func (w *waitRecorder) recorded() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Duration(nil), w.delays...)
}

// countingCounters records increments per counter.
type countingCounters struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingCounters() *countingCounters {
	return &countingCounters{counts: make(map[string]int)}
}

func (c *countingCounters) inc(name string) {
	c.mu.Lock()
	c.counts[name]++
	c.mu.Unlock()
}

func (c *countingCounters) get(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[name]
}

func (c *countingCounters) PublishSucceeded(topic string) { c.inc("succeeded:" + topic) }
func (c *countingCounters) PublishFailed(topic string, kind FailureKind) {
	c.inc("failed:" + topic + ":" + kind.String())
}
func (c *countingCounters) Retried(topic string)     { c.inc("retried:" + topic) }
func (c *countingCounters) Rerouted(from, to string) { c.inc("rerouted:" + from + ">" + to) }
func (c *countingCounters) RouteFailed(topic string) { c.inc("route_failed:" + topic) }
func (c *countingCounters) Offloaded(topic string)   { c.inc("offloaded:" + topic) }

// memStore is an in-memory ObjectStore.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) PutObject(_ context.Context, data []byte, container, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return "", s.err
	}
	s.objects[container+"/"+key] = data
	return "mem://" + container + "/" + key, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// recordingPublisher is a Publisher that keeps every message it is given.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []*Message
	outcome  Outcome
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, msg *Message) (Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.messages = append(p.messages, msg)
	if p.err != nil {
		return Failed, p.err
	}
	return p.outcome, nil
}
