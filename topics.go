// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

import (
	"errors"
	"fmt"
	"strings"
)

// placeholderMarker opens a configuration value that was never substituted.
const placeholderMarker = "${"

// TopicSet names the topics a message may end up in.
type TopicSet struct {
	// Notification is the primary topic messages are published to.
	Notification string

	// Retry receives messages whose sends kept timing out.
	Retry string

	// DeadLetter receives messages that failed for any other reason, or
	// timed out when no retry topic is available.
	DeadLetter string
}

// unresolved reports whether v still holds a configuration placeholder.
func unresolved(v string) bool {
	return strings.HasPrefix(strings.TrimSpace(v), placeholderMarker)
}

// usable reports whether a topic value is present and resolved.
func usable(v string) bool {
	return strings.TrimSpace(v) != "" && !unresolved(v)
}

// hasRetry reports whether the retry topic can absorb a message.
func (ts TopicSet) hasRetry() bool {
	return usable(ts.Retry)
}

// hasDeadLetter reports whether the dead-letter topic can absorb a message.
func (ts TopicSet) hasDeadLetter() bool {
	return usable(ts.DeadLetter)
}

// Validate checks the topic set and broker addresses without touching the
// network. Rules are applied in order and the first failure is returned:
//
//  1. the notification topic must be present
//  2. the retry topic must be present
//  3. the dead-letter topic must be present
//  4. no topic may be an unresolved placeholder
//  5. at least one broker must be given, and none may be empty or unresolved
//
// Topic failures match ErrInvalidTopic, broker failures ErrBrokerNotFound.
func Validate(topics TopicSet, brokers ...string) error {
	if topics.Notification == "" {
		return errors.Join(ErrInvalidTopic, errors.New("notification topic missing"))
	}
	if topics.Retry == "" {
		return errors.Join(ErrInvalidTopic, errors.New("retry topic missing"))
	}
	if topics.DeadLetter == "" {
		return errors.Join(ErrInvalidTopic, errors.New("dead-letter topic missing"))
	}

	for _, named := range []struct {
		name  string
		value string
	}{
		{"notification", topics.Notification},
		{"retry", topics.Retry},
		{"dead-letter", topics.DeadLetter},
	} {
		if strings.TrimSpace(named.value) == "" || unresolved(named.value) {
			return errors.Join(ErrInvalidTopic,
				fmt.Errorf("%s topic '%s' is empty or unresolved", named.name, named.value))
		}
	}

	return validateBrokers(brokers)
}

func validateBrokers(brokers []string) error {
	if len(brokers) == 0 {
		return errors.Join(ErrBrokerNotFound, errors.New("broker address missing"))
	}

	for i, broker := range brokers {
		if strings.TrimSpace(broker) == "" {
			return errors.Join(ErrBrokerNotFound, fmt.Errorf("broker %d is empty", i))
		}
		if unresolved(broker) {
			return errors.Join(ErrBrokerNotFound,
				fmt.Errorf("broker %d '%s' is an unresolved placeholder", i, broker))
		}
	}

	return nil
}
