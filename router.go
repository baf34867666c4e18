// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/xmidt-org/eventor"
)

// Stages reported in PublishEvent.
const (
	// StagePrimary is a send to the intended topic.
	StagePrimary = "primary"

	// StageReroute is the single send to the retry or dead-letter topic.
	StageReroute = "reroute"
)

// PublishEvent describes one send attempt.
type PublishEvent struct {
	// Topic the record was sent to.
	Topic string

	// Stage is StagePrimary or StageReroute.
	Stage string

	// Attempt is the one-based number of this send within the Publish call.
	Attempt int

	// Partition and Offset are set on success.
	Partition int32
	Offset    int64

	// Error is the error that occurred during the send (nil on success).
	Error error

	// ErrorType is the error classification label (empty on success).
	ErrorType string

	// Duration is the time the send took to resolve.
	Duration time.Duration
}

// Router publishes messages to Kafka, retrying timeouts with exponential
// backoff and parking messages that cannot be delivered on a retry or
// dead-letter topic.
//
// Thread Safety: All methods are safe for concurrent use by multiple
// goroutines. Each Publish call owns its retry state; calls share only the
// client and the current DynamicConfig.
type Router struct {
	// --- STATIC CONFIGURATION (set before Start, immutable after) ---

	// Brokers is the list of Kafka broker addresses.
	// Required. Entries must not be empty or unresolved "${...}" values.
	Brokers []string

	// SASL configures SASL authentication.
	// Optional. If nil, no authentication is used.
	SASL sasl.Mechanism

	// TLS configures TLS encryption.
	// Optional. If nil, plaintext connections are used.
	TLS *tls.Config

	// MaxBufferedRecords sets the maximum number of records to buffer.
	// Zero or negative values disable this limit.
	MaxBufferedRecords int

	// MaxBufferedBytes sets the maximum bytes of records to buffer.
	// Zero or negative values disable this limit.
	MaxBufferedBytes int

	// RequestTimeout bounds how long the broker may take to answer a
	// produce request. Expired requests fail with a timeout and are retried
	// by the router.
	// Zero or negative values keep the franz-go default.
	RequestTimeout time.Duration

	// DeliveryTimeout bounds how long a record may stay buffered before it
	// fails with a timeout.
	// Zero or negative values mean no limit.
	DeliveryTimeout time.Duration

	// CleanupTimeout sets the maximum time to wait for buffered messages
	// to flush on shutdown. Zero or negative values mean no timeout.
	CleanupTimeout time.Duration

	// AllowAutoTopicCreation enables automatic topic creation when publishing to non-existent topics.
	// Default: false.
	AllowAutoTopicCreation bool

	// Retry bounds the attempts made for timeouts.
	Retry RetryPolicy

	// InitialDynamicConfig contains the initial values for dynamically updatable
	// configuration. Topics must be set before messages can be published.
	InitialDynamicConfig DynamicConfig

	// Sender replaces the franz-go client, for example with the sarama adapter.
	// Optional. The router does not close a provided Sender.
	Sender Sender

	// ClaimCheck offloads payloads larger than ClaimCheckThreshold.
	// Optional.
	ClaimCheck *Offloader

	// ClaimCheckThreshold is the encoded payload size in bytes above which
	// payloads are offloaded. Zero disables offloading.
	ClaimCheckThreshold int

	// Logger is the logger instance (same interface as franz-go).
	// Optional. If nil, a no-op logger will be used.
	Logger kgo.Logger

	// Counters receives metric increments.
	// Optional. If nil, increments are dropped.
	Counters Counters

	// InitialPublishEventListeners are event listeners registered when Start() is called.
	// For dynamic listener management after Start(), use AddPublishEventListener().
	InitialPublishEventListeners []func(*PublishEvent)

	// --- INTERNAL FIELDS ---

	logger   kgo.Logger
	counters Counters

	// clientFactory creates the franz-go client; tests override it.
	clientFactory clientFactory

	// wait blocks between attempts; tests override it to record delays.
	wait func(context.Context, time.Duration) error

	// clientMu protects client and sender during Start/Stop.
	clientMu sync.Mutex
	client   kafkaClient
	sender   Sender

	dynamicConfig atomic.Pointer[DynamicConfig]

	publishEventListeners        eventor.Eventor[func(*PublishEvent)]
	registerInitialListenersOnce sync.Once
}

// AddPublishEventListener adds a listener called after every send attempt.
// The returned function removes the listener.
//
// Listeners are called from the publishing goroutine and must be thread-safe.
func (r *Router) AddPublishEventListener(fn func(*PublishEvent)) func() {
	return r.publishEventListeners.Add(fn)
}

// Start validates the configuration and connects to Kafka, unless a Sender
// was provided.
//
// Returns an error if:
//   - Configuration is invalid
//   - The Kafka client cannot be created
//   - Already started
func (r *Router) Start() error {
	r.clientMu.Lock()
	defer r.clientMu.Unlock()

	if r.sender != nil {
		return ErrAlreadyStarted
	}

	if r.clientFactory == nil {
		r.clientFactory = defaultClientFactory
	}
	if r.wait == nil {
		r.wait = sleepContext
	}

	r.logger = orNop(r.Logger)
	r.counters = r.Counters
	if r.counters == nil {
		r.counters = nopCounters{}
	}

	r.registerInitialListenersOnce.Do(func() {
		for _, listener := range r.InitialPublishEventListeners {
			r.publishEventListeners.Add(listener)
		}
	})

	if err := r.validate(); err != nil {
		return err
	}

	if err := r.UpdateConfig(r.InitialDynamicConfig); err != nil {
		return err
	}

	if r.Sender != nil {
		r.sender = r.Sender
		r.logger.Log(kgo.LogLevelInfo, "router started with provided sender")
		return nil
	}

	client, err := r.clientFactory(r.toKgoOpts()...)
	if err != nil {
		return fmt.Errorf("failed to create Kafka client: %w", err)
	}

	r.client = client
	r.sender = &kgoSender{client: client}
	r.logger.Log(kgo.LogLevelInfo, "router started successfully")

	return nil
}

// Stop flushes buffered messages and closes the franz-go client.
// Safe to call multiple times.
func (r *Router) Stop(ctx context.Context) {
	r.clientMu.Lock()
	defer r.clientMu.Unlock()

	if r.sender == nil {
		return
	}
	r.sender = nil

	if r.client == nil {
		r.logger.Log(kgo.LogLevelInfo, "router stopped")
		return
	}

	r.logger.Log(kgo.LogLevelInfo, "stopping router, flushing buffered messages")

	// Only bound the flush when the caller did not.
	if r.CleanupTimeout > 0 {
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.CleanupTimeout)
			defer cancel()
		}
	}

	if err := r.client.Flush(ctx); err != nil {
		r.logger.Log(kgo.LogLevelWarn, "flush incomplete during shutdown", "error", err.Error())
	}

	r.client.Close()
	r.client = nil

	r.logger.Log(kgo.LogLevelInfo, "router stopped successfully")
}

// UpdateConfig atomically replaces the runtime configuration.
// In-flight Publish calls pick up the new topics on their next attempt.
func (r *Router) UpdateConfig(next DynamicConfig) error {
	if err := next.validate(); err != nil {
		return err
	}

	next.Headers = cloneHeaders(next.Headers)
	r.dynamicConfig.Store(&next)
	return nil
}

// Publish sends msg to its topic (msg.Topic, or the notification topic) and
// blocks until it is stored somewhere or cannot be.
//
// Timeouts are retried up to Retry.MaxAttempts sends. When those run out the
// message goes to the retry topic, or the dead-letter topic if there is no
// retry topic. Any other failure goes straight to the dead-letter topic. The
// reroute is a single send; if it fails, its error is returned. When neither
// topic is available the error of the last attempt is returned unchanged.
//
// Configuration errors (ErrInvalidTopic, ErrBrokerNotFound) are returned
// before anything is sent and are never retried.
func (r *Router) Publish(ctx context.Context, msg *Message) (Outcome, error) {
	if ctx.Err() != nil {
		return Failed, ctx.Err()
	}

	r.clientMu.Lock()
	sender := r.sender
	r.clientMu.Unlock()

	if sender == nil {
		return Failed, ErrNotStarted
	}
	if msg == nil {
		return Failed, errors.Join(ErrValidation, errors.New("message must not be nil"))
	}

	dc := r.dynamicConfig.Load()
	topic, err := r.validateFor(dc, msg)
	if err != nil {
		return Failed, err
	}

	value, err := encodeValue(msg.Value)
	if err != nil {
		return Failed, err
	}

	if r.offloads(value, msg) {
		_, outcome, err := r.ClaimCheck.offload(ctx, r, msg.Key, msg.Headers, topic, msg.Value)
		if err != nil {
			return Failed, err
		}
		r.counters.Offloaded(topic)
		return outcome, nil
	}

	headers := msg.Headers
	if codec := dc.PayloadCompression; codec != "" && codec != CompressionNone && !isReference(msg.Value) {
		compressed, err := Compressor{Codec: codec}.CompressPayload(msg.Value)
		if err != nil {
			return Failed, err
		}
		if compressed != nil {
			if value, err = encodeValue(compressed); err != nil {
				return Failed, err
			}
			headers = withHeader(headers, HeaderContentEncoding, string(codec))
		}
	}

	rec := &Record{
		Topic:   topic,
		Key:     msg.Key,
		Value:   value,
		Headers: buildHeaders(dc.Headers, &Message{Value: msg.Value, Headers: headers}),
	}

	return r.attempt(ctx, sender, msg, rec)
}

// attempt runs the retry loop for rec and reroutes when it gives up.
func (r *Router) attempt(ctx context.Context, sender Sender, msg *Message, rec *Record) (Outcome, error) {
	state := newRetryState(r.Retry)

	var cause error
	for {
		n := state.next()

		// The first attempt was validated by Publish.
		if n > 1 {
			topic, err := r.validateFor(r.dynamicConfig.Load(), msg)
			if err != nil {
				return Failed, err
			}
			rec.Topic = topic
		}

		result, err := r.send(ctx, sender, rec, StagePrimary, n)
		if err != nil {
			return Failed, err
		}
		if result.Succeeded() {
			return Accepted, nil
		}

		cause = result.Err
		if result.Classification() == Fatal || state.exhausted() {
			break
		}

		delay := state.delay()
		r.logger.Log(kgo.LogLevelWarn, "send timed out, retrying",
			"topic", rec.Topic,
			"attempt", n,
			"delay", delay.String(),
			"error", cause.Error(),
		)
		r.counters.Retried(rec.Topic)

		if err := r.wait(ctx, delay); err != nil {
			return Failed, err
		}
	}

	return r.reroute(ctx, sender, rec, cause, state.attempt)
}

// reroute sends rec once to the topic chosen for cause. The destination is
// picked from the current configuration: timeouts prefer the retry topic,
// everything else and timeouts without a retry topic use the dead-letter
// topic. With neither available cause is returned as is.
func (r *Router) reroute(ctx context.Context, sender Sender, rec *Record, cause error, attempts int) (Outcome, error) {
	topics := r.dynamicConfig.Load().Topics
	kind := kindOf(cause)

	var target string
	var outcome Outcome
	switch {
	case Classify(kind) == Transient && topics.hasRetry():
		target, outcome = topics.Retry, RoutedRetry
	case topics.hasDeadLetter():
		target, outcome = topics.DeadLetter, RoutedDeadLetter
	default:
		r.logger.Log(kgo.LogLevelError, "no retry or dead-letter topic available, message not stored",
			"topic", rec.Topic,
			"kind", kind.String(),
			"error", cause.Error(),
		)
		r.counters.RouteFailed(rec.Topic)
		return Failed, cause
	}

	if err := validateBrokers(r.Brokers); err != nil {
		return Failed, err
	}

	r.logger.Log(kgo.LogLevelWarn, "rerouting message",
		"from", rec.Topic,
		"to", target,
		"kind", kind.String(),
		"attempts", strconv.Itoa(attempts),
	)

	rerouted := &Record{
		Topic:   target,
		Key:     rec.Key,
		Value:   rec.Value,
		Headers: rec.Headers,
	}

	result, err := r.send(ctx, sender, rerouted, StageReroute, attempts+1)
	if err != nil {
		return Failed, err
	}
	if !result.Succeeded() {
		return Failed, result.Err
	}

	r.counters.Rerouted(rec.Topic, target)
	return outcome, nil
}

// send submits rec and waits for the broker.
func (r *Router) send(ctx context.Context, sender Sender, rec *Record, stage string, attempt int) (Result, error) {
	start := time.Now()
	event := PublishEvent{
		Topic:   rec.Topic,
		Stage:   stage,
		Attempt: attempt,
	}

	delivery := sender.Send(ctx, rec)
	if delivery == nil {
		delivery = NewDelivery()
		delivery.Resolve(Result{
			Topic: rec.Topic,
			Err:   &BrokerError{Kind: KindUnknown, Err: errors.New("sender returned no delivery")},
		})
	}

	result, err := delivery.Wait(ctx)
	if err != nil {
		r.dispatchEvent(&event, start, err)
		return result, err
	}

	if result.Succeeded() {
		event.Partition = result.Partition
		event.Offset = result.Offset
		r.counters.PublishSucceeded(rec.Topic)
	} else {
		r.counters.PublishFailed(rec.Topic, kindOf(result.Err))
	}

	r.dispatchEvent(&event, start, result.Err)
	return result, nil
}

// validateFor validates the configuration for msg and returns the topic it
// should be sent to.
func (r *Router) validateFor(dc *DynamicConfig, msg *Message) (string, error) {
	if err := Validate(dc.Topics, r.Brokers...); err != nil {
		return "", err
	}

	if msg.Topic == "" {
		return dc.Topics.Notification, nil
	}
	if !usable(msg.Topic) {
		return "", errors.Join(ErrInvalidTopic,
			fmt.Errorf("message topic '%s' is empty or unresolved", msg.Topic))
	}
	return msg.Topic, nil
}

// offloads reports whether the encoded value goes to the claim check.
func (r *Router) offloads(value []byte, msg *Message) bool {
	return r.ClaimCheck != nil &&
		r.ClaimCheckThreshold > 0 &&
		len(value) > r.ClaimCheckThreshold &&
		!isReference(msg.Value)
}

// dispatchEvent dispatches a PublishEvent to all registered listeners.
func (r *Router) dispatchEvent(event *PublishEvent, since time.Time, err error) {
	if err != nil {
		event.Error = err
		event.ErrorType = errorType(err)
	}
	event.Duration = time.Since(since)

	r.publishEventListeners.Visit(func(listener func(*PublishEvent)) {
		listener(event)
	})
}

// BufferedRecords returns the current and maximum buffer counts and bytes.
// Returns zeros when the router is not started or uses a provided Sender.
func (r *Router) BufferedRecords() (currentRecords, maxRecords int, currentBytes, maxBytes int64) {
	r.clientMu.Lock()
	client := r.client
	r.clientMu.Unlock()

	if client == nil {
		return 0, 0, 0, 0
	}

	return int(client.BufferedProduceRecords()), r.MaxBufferedRecords,
		client.BufferedProduceBytes(), int64(r.MaxBufferedBytes)
}

// validate validates the static configuration.
func (r *Router) validate() error {
	if len(r.Brokers) == 0 {
		return errors.Join(ErrValidation, fmt.Errorf("brokers list is required"))
	}
	if err := validateBrokers(r.Brokers); err != nil {
		return errors.Join(ErrValidation, err)
	}

	if err := r.Retry.validate(); err != nil {
		return err
	}

	if r.ClaimCheckThreshold < 0 {
		return errors.Join(ErrValidation, fmt.Errorf("claim check threshold must not be negative"))
	}
	if r.ClaimCheck != nil {
		if err := r.ClaimCheck.validate(); err != nil {
			return err
		}
	}

	return r.InitialDynamicConfig.validate()
}

// toKgoOpts converts the Router's configuration to franz-go client options.
func (r *Router) toKgoOpts() []kgo.Opt {
	dynCfg := r.dynamicConfig.Load()
	if dynCfg == nil {
		dynCfg = &r.InitialDynamicConfig
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(r.Brokers...),
	}

	if r.logger != nil {
		opts = append(opts, kgo.WithLogger(r.logger))
	}

	if r.AllowAutoTopicCreation {
		opts = append(opts, kgo.AllowAutoTopicCreation())
	}

	if r.SASL != nil {
		opts = append(opts, kgo.SASL(r.SASL))
	}

	if r.TLS != nil {
		opts = append(opts, kgo.DialTLSConfig(r.TLS))
	}

	if r.MaxBufferedRecords > 0 {
		opts = append(opts, kgo.MaxBufferedRecords(r.MaxBufferedRecords))
	}

	if r.MaxBufferedBytes > 0 {
		opts = append(opts, kgo.MaxBufferedBytes(r.MaxBufferedBytes))
	}

	if r.RequestTimeout > 0 {
		opts = append(opts, kgo.ProduceRequestTimeout(r.RequestTimeout))
	}

	if r.DeliveryTimeout > 0 {
		opts = append(opts, kgo.RecordDeliveryTimeout(r.DeliveryTimeout))
	}

	if dynCfg.Linger > 0 {
		opts = append(opts, kgo.ProducerLinger(dynCfg.Linger))
	}

	if acks, ok := dynCfg.Acks.kgoAcks(); ok {
		opts = append(opts, kgo.RequiredAcks(acks))
		if dynCfg.Acks != AcksAll {
			// Idempotent writes require acks=all.
			opts = append(opts, kgo.DisableIdempotentWrite())
		}
	}

	opts = append(opts, kgo.ProducerBatchCompression(dynCfg.CompressionCodec.kgoCodec()))

	return opts
}

func cloneHeaders(h map[string][]string) map[string][]string {
	if h == nil {
		return nil
	}
	out := make(map[string][]string, len(h))
	for k, v := range h {
		out[k] = slices.Clone(v)
	}
	return out
}
