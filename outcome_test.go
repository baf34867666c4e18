// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestOutcome_String tests the String() method for all Outcome values.
func TestOutcome_String(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		outcome  Outcome
		expected string
	}{
		{"Accepted", Accepted, "Accepted"},
		{"RoutedRetry", RoutedRetry, "RoutedRetry"},
		{"RoutedDeadLetter", RoutedDeadLetter, "RoutedDeadLetter"},
		{"Failed", Failed, "Failed"},
		{"Unknown - invalid outcome value", Outcome(999), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.outcome.String())
		})
	}
}
