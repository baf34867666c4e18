// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type binaryValue struct {
	err error
}

func (b binaryValue) MarshalBinary() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return []byte{0x01, 0x02}, nil
}

func TestEncodeValue(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		value   any
		want    []byte
		wantErr bool
	}{
		{"nil", nil, nil, false},
		{"bytes", []byte("raw"), []byte("raw"), false},
		{"string", "text", []byte("text"), false},
		{"reference", &Reference{BlobURL: "https://blob/x"}, []byte(`{"blobUrl":"https://blob/x"}`), false},
		{"binary marshaler", binaryValue{}, []byte{0x01, 0x02}, false},
		{"binary marshaler failure", binaryValue{err: errors.New("nope")}, nil, true},
		{"json", map[string]bool{"ok": true}, []byte(`{"ok":true}`), false},
		{"unencodable", func() {}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := encodeValue(tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEncoding)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeaderBytes(t *testing.T) {
	t.Parallel()
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		want  []byte
	}{
		{"nil", nil, nil},
		{"bytes", []byte("b"), []byte("b")},
		{"string", "s", []byte("s")},
		{"bool", false, []byte("false")},
		{"int", -3, []byte("-3")},
		{"int64", int64(1 << 40), []byte("1099511627776")},
		{"uint64", uint64(7), []byte("7")},
		{"time", ts, []byte("2025-03-01T12:00:00Z")},
		{"stringer", 1500 * time.Millisecond, []byte("1.5s")},
		{"other", 2.5, []byte("2.5")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, headerBytes(tt.value))
		})
	}
}

func TestIsReference(t *testing.T) {
	t.Parallel()
	assert.True(t, isReference(&Reference{}))
	assert.True(t, isReference(Reference{}))
	assert.False(t, isReference("x"))
	assert.False(t, isReference(nil))
}
