// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/xmidt-org/wrp-go/v5"
)

// Header keys added by the router itself.
const (
	// HeaderClaimCheck marks a message whose value is a Reference.
	HeaderClaimCheck = "x-claim-check"

	// HeaderContentEncoding names the codec applied to the payload.
	HeaderContentEncoding = "Content-Encoding"
)

const wrpFieldPrefix = "wrp."

// buildHeaders assembles record headers from the configured static headers
// and the message headers. Configured values of the form "wrp.<Field>" are
// resolved against the message value when it is a *wrp.Message and dropped
// otherwise. Message headers follow the configured ones, sorted by key so
// records are reproducible.
func buildHeaders(configured map[string][]string, msg *Message) []Header {
	headers := make([]Header, 0, len(configured)+len(msg.Headers))

	wrpMsg, _ := msg.Value.(*wrp.Message)

	for _, key := range sortedKeys(configured) {
		for _, value := range configured[key] {
			if len(value) <= len(wrpFieldPrefix) || !strings.HasPrefix(value, wrpFieldPrefix) {
				headers = append(headers, Header{Key: key, Value: []byte(value)})
				continue
			}

			for _, v := range wrpField(wrpMsg, value[len(wrpFieldPrefix):]) {
				if v != "" {
					headers = append(headers, Header{Key: key, Value: []byte(v)})
				}
			}
		}
	}

	for _, key := range sortedKeys(msg.Headers) {
		headers = append(headers, Header{Key: key, Value: headerBytes(msg.Headers[key])})
	}

	return headers
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// wrpField returns the values of a WRP field. Supported names are the
// standard scalar fields, PartnerIDs, and "Metadata.<key>".
func wrpField(msg *wrp.Message, name string) []string {
	if msg == nil {
		return nil
	}

	if key, ok := strings.CutPrefix(name, "Metadata."); ok {
		if v := msg.Metadata[strings.TrimSpace(key)]; v != "" {
			return []string{v}
		}
		return nil
	}

	switch name {
	case "Type":
		return []string{msg.Type.String()}
	case "Source":
		return []string{msg.Source}
	case "DeviceID":
		id, err := wrp.ParseDeviceID(msg.Source)
		if err != nil {
			return nil
		}
		return []string{id.ID()}
	case "Destination":
		return []string{msg.Destination}
	case "TransactionUUID":
		return []string{msg.TransactionUUID}
	case "ContentType":
		return []string{msg.ContentType}
	case "PartnerIDs":
		return msg.PartnerIDs
	case "SessionID":
		return []string{msg.SessionID}
	case "QualityOfService":
		return []string{strconv.Itoa(int(msg.QualityOfService))}
	}

	return nil
}

var wrpFieldNames = map[string]struct{}{
	"Type":             {},
	"Source":           {},
	"DeviceID":         {},
	"Destination":      {},
	"TransactionUUID":  {},
	"ContentType":      {},
	"PartnerIDs":       {},
	"SessionID":        {},
	"QualityOfService": {},
}

// isValidWRPFieldReference reports whether a configured header value is a
// literal or a known wrp.* reference.
func isValidWRPFieldReference(value string) bool {
	name, ok := strings.CutPrefix(value, wrpFieldPrefix)
	if !ok || name == "" {
		return true
	}

	if strings.HasPrefix(name, "Metadata.") {
		return len(name) > len("Metadata.")
	}

	_, ok = wrpFieldNames[name]
	return ok
}

// withHeader returns a copy of headers with key set to value.
func withHeader(headers map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(headers)+1)
	maps.Copy(out, headers)
	out[key] = value
	return out
}
