// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

import "errors"

var (
	// ErrValidation indicates configuration validation failed.
	ErrValidation = &metricError{
		metric:  "validation_error",
		message: "validation error",
	}

	// ErrInvalidTopic indicates a required topic is missing or still holds
	// an unresolved placeholder.
	ErrInvalidTopic = &metricError{
		metric:  "invalid_topic",
		message: "invalid topic",
	}

	// ErrBrokerNotFound indicates the broker address is missing or unresolved.
	ErrBrokerNotFound = &metricError{
		metric:  "broker_not_found",
		message: "broker not found",
	}

	// ErrEncoding indicates the payload could not be serialized.
	ErrEncoding = &metricError{
		metric:  "encoding_error",
		message: "encoding failed",
	}

	// ErrCompression indicates the payload could not be compressed or
	// decompressed.
	ErrCompression = &metricError{
		metric:  "compression_error",
		message: "compression failed",
	}

	// ErrClaimCheckFailed indicates the claim-check offload could not be
	// completed. The original cause is joined to it.
	ErrClaimCheckFailed = &metricError{
		metric:  "claim_check_failed",
		message: "claim check failed",
	}

	// ErrBroker indicates Kafka broker rejected the message.
	ErrBroker = &metricError{
		metric:  "broker_error",
		message: "broker error",
	}

	// ErrTimeout indicates the broker did not acknowledge in time.
	ErrTimeout = &metricError{
		metric:  "timeout",
		message: "timeout",
	}

	// ErrNotStarted indicates the router has not been started.
	ErrNotStarted = &metricError{
		metric:  "not_started",
		message: "router not started",
	}

	// ErrAlreadyStarted indicates the router has already been started.
	ErrAlreadyStarted = &metricError{
		metric:  "already_started",
		message: "router already started",
	}
)

// metricError is an error with a stable label used to group failures in
// metrics and publish events.
type metricError struct {
	metric  string // label for metrics (e.g., "invalid_topic")
	message string
}

// Error implements the error interface.
func (e *metricError) Error() string {
	return e.message
}

func (e *metricError) Metric() string {
	return e.metric
}

func (e *metricError) Is(target error) bool {
	if t, ok := target.(*metricError); ok {
		return e.message == t.message
	}
	return false
}

// errorType returns the metric label for err. Broker errors report their
// failure kind; errors without a label report "unknown".
func errorType(err error) string {
	if err == nil {
		return ""
	}

	var me *metricError
	if errors.As(err, &me) {
		return me.Metric()
	}

	var be *BrokerError
	if errors.As(err, &be) {
		return be.Kind.String()
	}

	return "unknown"
}
