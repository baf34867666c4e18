// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

import (
	"context"
	"errors"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// FailureKind is the broker-independent category of a send failure.
// Broker adapters translate their own error types into a FailureKind at the
// boundary so the routing engine never inspects client specific errors.
type FailureKind int

const (
	// KindUnknown is any failure the adapter could not categorize.
	KindUnknown FailureKind = iota

	// KindTimeout is a broker request timeout or record delivery timeout.
	KindTimeout

	// KindTransactionTimeout is a transaction or commit timeout.
	KindTransactionTimeout

	// KindSerialization is a failure to encode the record.
	KindSerialization

	// KindAuthorization is an authentication or ACL failure.
	KindAuthorization

	// KindValidation is a record the broker refuses to accept as sent
	// (too large, corrupt, unknown topic).
	KindValidation
)

// String returns the metric label of the kind.
func (k FailureKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindTransactionTimeout:
		return "transaction_timeout"
	case KindSerialization:
		return "serialization_error"
	case KindAuthorization:
		return "authorization_error"
	case KindValidation:
		return "validation_error"
	default:
		return "unknown"
	}
}

// Classification decides whether a failure is worth retrying.
type Classification int

const (
	// Fatal failures will not succeed on retry.
	Fatal Classification = iota

	// Transient failures are expected to succeed on retry.
	Transient
)

// String returns the string representation of the Classification.
func (c Classification) String() string {
	if c == Transient {
		return "Transient"
	}
	return "Fatal"
}

// Classify maps a failure kind to its retry classification. Only the
// timeout kinds are transient.
func Classify(kind FailureKind) Classification {
	switch kind {
	case KindTimeout, KindTransactionTimeout:
		return Transient
	default:
		return Fatal
	}
}

// BrokerError is a send failure tagged with its normalized kind.
type BrokerError struct {
	Kind FailureKind
	Err  error
}

func (e *BrokerError) Error() string {
	if e.Err == nil {
		return "broker error: " + e.Kind.String()
	}
	return "broker error: " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a BrokerError against the coarse sentinels.
func (e *BrokerError) Is(target error) bool {
	switch target {
	case ErrBroker:
		return true
	case ErrTimeout:
		return Classify(e.Kind) == Transient
	}
	return false
}

// kindOf extracts the failure kind carried by err. Errors that never
// crossed an adapter boundary are treated as unknown, except our own
// encoding and compression failures which are serialization problems.
func kindOf(err error) FailureKind {
	var be *BrokerError
	if errors.As(err, &be) {
		return be.Kind
	}

	if errors.Is(err, ErrEncoding) || errors.Is(err, ErrCompression) {
		return KindSerialization
	}

	return KindUnknown
}

// classifyErr is the classification of an arbitrary send error.
func classifyErr(err error) Classification {
	return Classify(kindOf(err))
}

// kgoKind translates franz-go errors into a FailureKind.
func kgoKind(err error) FailureKind {
	switch {
	case errors.Is(err, kgo.ErrRecordTimeout),
		errors.Is(err, kerr.RequestTimedOut),
		errors.Is(err, context.DeadlineExceeded):
		return KindTimeout

	case errors.Is(err, kerr.ConcurrentTransactions):
		return KindTransactionTimeout

	case errors.Is(err, kerr.TopicAuthorizationFailed),
		errors.Is(err, kerr.ClusterAuthorizationFailed),
		errors.Is(err, kerr.TransactionalIDAuthorizationFailed),
		errors.Is(err, kerr.SaslAuthenticationFailed):
		return KindAuthorization

	case errors.Is(err, kerr.CorruptMessage):
		return KindSerialization

	case errors.Is(err, kerr.MessageTooLarge),
		errors.Is(err, kerr.RecordListTooLarge),
		errors.Is(err, kerr.InvalidRecord),
		errors.Is(err, kerr.InvalidTopicException),
		errors.Is(err, kerr.InvalidTransactionTimeout),
		errors.Is(err, kerr.UnknownTopicOrPartition):
		return KindValidation
	}

	return KindUnknown
}
