// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		topics  TopicSet
		brokers []string
		wantErr error
		wantMsg string
	}{
		{
			name:    "valid",
			topics:  ordersTopics(),
			brokers: []string{"kafka:9092"},
		},
		{
			name:    "missing notification",
			topics:  TopicSet{Retry: "r", DeadLetter: "d"},
			brokers: []string{"kafka:9092"},
			wantErr: ErrInvalidTopic,
			wantMsg: "notification topic missing",
		},
		{
			name:    "missing retry",
			topics:  TopicSet{Notification: "n", DeadLetter: "d"},
			brokers: []string{"kafka:9092"},
			wantErr: ErrInvalidTopic,
			wantMsg: "retry topic missing",
		},
		{
			name:    "missing dead letter",
			topics:  TopicSet{Notification: "n", Retry: "r"},
			brokers: []string{"kafka:9092"},
			wantErr: ErrInvalidTopic,
			wantMsg: "dead-letter topic missing",
		},
		{
			name:    "missing topics reported before brokers",
			topics:  TopicSet{},
			brokers: nil,
			wantErr: ErrInvalidTopic,
			wantMsg: "notification topic missing",
		},
		{
			name:    "placeholder topic",
			topics:  TopicSet{Notification: "${NOTIFY_TOPIC}", Retry: "r", DeadLetter: "d"},
			brokers: []string{"kafka:9092"},
			wantErr: ErrInvalidTopic,
		},
		{
			name:    "blank topic",
			topics:  TopicSet{Notification: "n", Retry: "  ", DeadLetter: "d"},
			brokers: []string{"kafka:9092"},
			wantErr: ErrInvalidTopic,
		},
		{
			name:    "no brokers",
			topics:  ordersTopics(),
			wantErr: ErrBrokerNotFound,
		},
		{
			name:    "empty broker",
			topics:  ordersTopics(),
			brokers: []string{"kafka:9092", ""},
			wantErr: ErrBrokerNotFound,
		},
		{
			name:    "placeholder broker",
			topics:  ordersTopics(),
			brokers: []string{"${KAFKA_BROKER}"},
			wantErr: ErrBrokerNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.topics, tt.brokers...)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestTopicSet_Usable(t *testing.T) {
	t.Parallel()

	assert.True(t, ordersTopics().hasRetry())
	assert.True(t, ordersTopics().hasDeadLetter())

	assert.False(t, TopicSet{Retry: "${RETRY}"}.hasRetry())
	assert.False(t, TopicSet{DeadLetter: ""}.hasDeadLetter())
	assert.False(t, TopicSet{DeadLetter: " ${DLT}"}.hasDeadLetter())
	assert.False(t, TopicSet{Retry: "   "}.hasRetry())
	assert.False(t, usable("\t"))
}
