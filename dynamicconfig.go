// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

import (
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Acks specifies the broker acknowledgment requirements.
type Acks string

const (
	// AcksAll requires all ISR replicas to acknowledge (strongest durability).
	AcksAll Acks = "all"

	// AcksLeader requires only the leader replica to acknowledge.
	AcksLeader Acks = "leader"

	// AcksNone requires no acknowledgment.
	AcksNone Acks = "none"
)

func validateAcks(acks Acks) error {
	switch acks {
	case "", AcksAll, AcksLeader, AcksNone:
		return nil
	}
	return errors.Join(ErrValidation,
		fmt.Errorf("acks '%s' is invalid: must be 'all', 'leader', 'none' or empty", acks))
}

// kgoAcks maps the setting onto franz-go. ok is false when unset.
func (a Acks) kgoAcks() (acks kgo.Acks, ok bool) {
	switch a {
	case AcksAll:
		return kgo.AllISRAcks(), true
	case AcksLeader:
		return kgo.LeaderAck(), true
	case AcksNone:
		return kgo.NoAck(), true
	}
	return kgo.Acks{}, false
}

// DynamicConfig is the runtime-updatable configuration subset.
// Can be modified via UpdateConfig() without restart.
type DynamicConfig struct {
	// Topics are the notification, retry and dead-letter topics. They are
	// validated on every publish attempt rather than here, so configuration
	// that still holds placeholders surfaces as ErrInvalidTopic when used.
	Topics TopicSet

	// Headers defines static record headers added to every message.
	// Values of the form "wrp.<Field>" or "wrp.Metadata.<key>" are resolved
	// from *wrp.Message payloads.
	// Optional. Empty map {} is valid.
	Headers map[string][]string

	// CompressionCodec selects Kafka batch compression.
	// Valid: "gzip", "snappy", "lz4", "zstd", "none".
	CompressionCodec Compression

	// PayloadCompression, when set, compresses each payload before it is
	// sent and records the codec in the Content-Encoding header.
	// Valid: "gzip", "snappy", "lz4", "zstd", "none".
	PayloadCompression Compression

	// Linger sets the batching delay.
	// Zero or negative values disable lingering.
	// Read only when the router starts.
	Linger time.Duration

	// Acks controls broker acknowledgments.
	// Valid: "all", "leader", "none".
	// Read only when the router starts.
	Acks Acks
}

func (dc *DynamicConfig) validate() error {
	if err := validateCompression(dc.CompressionCodec); err != nil {
		return err
	}

	if err := validateCompression(dc.PayloadCompression); err != nil {
		return err
	}

	if err := validateAcks(dc.Acks); err != nil {
		return err
	}

	for key, values := range dc.Headers {
		if key == "" {
			return errors.Join(ErrValidation, fmt.Errorf("header key must not be empty"))
		}
		if len(values) == 0 {
			return errors.Join(ErrValidation, fmt.Errorf("header %q must have at least one value", key))
		}
		for _, value := range values {
			if !isValidWRPFieldReference(value) {
				return errors.Join(ErrValidation, fmt.Errorf("header %q has invalid WRP field reference %q", key, value))
			}
		}
	}

	return nil
}
