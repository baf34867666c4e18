// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/xmidt-org/wrp-go/v5"
)

// Message is a single publish request.
type Message struct {
	// Topic optionally overrides the configured notification topic.
	Topic string

	// Key is the partition key. Nil lets the broker choose the partition.
	Key []byte

	// Value is the payload. Supported types are []byte, string,
	// *wrp.Message, *Reference and any JSON encodable value. Nil publishes
	// a tombstone.
	Value any

	// Headers are added to the record. Each value is serialized to bytes:
	// strings and []byte as is, numbers and booleans in their decimal form,
	// time.Time as RFC 3339, anything else through fmt.
	Headers map[string]any
}

// Reference is the payload published in place of an offloaded message.
type Reference struct {
	BlobURL string `json:"blobUrl"`
}

// Header is a single record header.
type Header struct {
	Key   string
	Value []byte
}

// Record is what a Sender hands to the broker.
type Record struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers []Header
}

// encodeValue serializes a message value for the wire.
func encodeValue(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	case *wrp.Message:
		if val == nil {
			return nil, nil
		}
		var encoded []byte
		if err := wrp.NewEncoderBytes(&encoded, wrp.Msgpack).Encode(val); err != nil {
			return nil, errors.Join(ErrEncoding, fmt.Errorf("msgpack encoding failed"), err)
		}
		return encoded, nil
	case encoding.BinaryMarshaler:
		encoded, err := val.MarshalBinary()
		if err != nil {
			return nil, errors.Join(ErrEncoding, fmt.Errorf("binary encoding of %T failed", v), err)
		}
		return encoded, nil
	}

	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrEncoding, fmt.Errorf("json encoding of %T failed", v), err)
	}
	return encoded, nil
}

// headerBytes serializes a header value.
func headerBytes(v any) []byte {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return val
	case string:
		return []byte(val)
	case bool:
		return strconv.AppendBool(nil, val)
	case int:
		return strconv.AppendInt(nil, int64(val), 10)
	case int32:
		return strconv.AppendInt(nil, int64(val), 10)
	case int64:
		return strconv.AppendInt(nil, val, 10)
	case uint64:
		return strconv.AppendUint(nil, val, 10)
	case time.Time:
		return []byte(val.Format(time.RFC3339Nano))
	case fmt.Stringer:
		return []byte(val.String())
	}
	return []byte(fmt.Sprint(v))
}

// isReference reports whether v is already a claim-check reference.
func isReference(v any) bool {
	switch v.(type) {
	case *Reference, Reference:
		return true
	}
	return false
}
