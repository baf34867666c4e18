// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

// Outcome is the terminal state of a Publish call.
type Outcome int

const (
	// Accepted indicates the message was acknowledged on its intended topic,
	// possibly after retries.
	Accepted Outcome = iota

	// RoutedRetry indicates the intended topic kept timing out and the
	// message was parked on the retry topic.
	RoutedRetry

	// RoutedDeadLetter indicates the message failed and was parked on the
	// dead-letter topic.
	RoutedDeadLetter

	// Failed indicates the message was not stored anywhere. The error
	// returned alongside says why.
	Failed
)

// String returns the string representation of the Outcome.
func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "Accepted"
	case RoutedRetry:
		return "RoutedRetry"
	case RoutedDeadLetter:
		return "RoutedDeadLetter"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}
