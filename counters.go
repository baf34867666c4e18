// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

// Counters receives increments for the router's notable events. It is
// observability only and never influences routing. Implementations must be
// safe for concurrent use.
type Counters interface {
	// PublishSucceeded counts an acknowledged send.
	PublishSucceeded(topic string)

	// PublishFailed counts a failed send and its failure kind.
	PublishFailed(topic string, kind FailureKind)

	// Retried counts a backoff before another attempt.
	Retried(topic string)

	// Rerouted counts a message sent to the retry or dead-letter topic.
	Rerouted(from, to string)

	// RouteFailed counts a message no topic could absorb.
	RouteFailed(topic string)

	// Offloaded counts a payload moved to the object store.
	Offloaded(topic string)
}

type nopCounters struct{}

func (nopCounters) PublishSucceeded(string)          {}
func (nopCounters) PublishFailed(string, FailureKind) {}
func (nopCounters) Retried(string)                   {}
func (nopCounters) Rerouted(string, string)          {}
func (nopCounters) RouteFailed(string)               {}
func (nopCounters) Offloaded(string)                 {}
