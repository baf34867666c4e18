// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkaroute

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// ObjectStore stores offloaded payloads.
type ObjectStore interface {
	// PutObject stores data under key in container and returns a URL the
	// object can be retrieved from. Implementations own container creation.
	PutObject(ctx context.Context, data []byte, container, key string) (string, error)
}

// Publisher publishes a message. *Router implements it.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) (Outcome, error)
}

// Offloader implements the claim-check pattern: the payload is compressed and
// uploaded to an object store, and a Reference to it is published instead.
type Offloader struct {
	// Store receives the compressed payloads. Required.
	Store ObjectStore

	// Container holds the uploaded objects. Required.
	Container string

	// KeyPrefix is prepended to every object key.
	KeyPrefix string

	// Codec compresses payloads before upload. Empty means gzip.
	Codec Compression

	// Publisher publishes the reference when Offload is called directly.
	// A Router publishing through its ClaimCheck always uses itself.
	Publisher Publisher

	// Logger is the logger instance (same interface as franz-go).
	// Optional. If nil, a no-op logger will be used.
	Logger kgo.Logger

	// now and newID are replaced in tests.
	now   func() time.Time
	newID func() string
}

// Offload uploads value and publishes a Reference to it on topic, carrying
// headers plus HeaderClaimCheck and HeaderContentEncoding.
//
// Every failure matches ErrClaimCheckFailed and keeps the original cause. A
// failed upload publishes nothing. Offload does not retry; resubmit the whole
// call to try again.
func (o *Offloader) Offload(ctx context.Context, headers map[string]any, topic string, value any) (*Reference, error) {
	if o.Publisher == nil {
		return nil, errors.Join(ErrClaimCheckFailed, ErrValidation, errors.New("publisher is required"))
	}

	ref, _, err := o.offload(ctx, o.Publisher, nil, headers, topic, value)
	return ref, err
}

func (o *Offloader) offload(ctx context.Context, pub Publisher, key []byte, headers map[string]any, topic string, value any) (*Reference, Outcome, error) {
	if err := o.validate(); err != nil {
		return nil, Failed, errors.Join(ErrClaimCheckFailed, err)
	}

	encoded, err := encodeValue(value)
	if err != nil {
		return nil, Failed, errors.Join(ErrClaimCheckFailed, err)
	}
	if encoded == nil {
		encoded = []byte{}
	}

	compressor := Compressor{Codec: o.Codec}
	data, err := compressor.Compress(encoded)
	if err != nil {
		return nil, Failed, errors.Join(ErrClaimCheckFailed, err)
	}

	objectKey := o.objectKey()
	url, err := o.Store.PutObject(ctx, data, o.Container, objectKey)
	if err != nil {
		return nil, Failed, errors.Join(ErrClaimCheckFailed,
			fmt.Errorf("upload of '%s' to container '%s' failed", objectKey, o.Container), err)
	}

	logger := orNop(o.Logger)
	logger.Log(kgo.LogLevelDebug, "payload offloaded",
		"container", o.Container,
		"key", objectKey,
		"bytes", strconv.Itoa(len(data)),
	)

	ref := &Reference{BlobURL: url}
	refHeaders := withHeader(headers, HeaderClaimCheck, "true")
	refHeaders[HeaderContentEncoding] = string(compressor.codec())

	outcome, err := pub.Publish(ctx, &Message{
		Topic:   topic,
		Key:     key,
		Value:   ref,
		Headers: refHeaders,
	})
	if err != nil {
		logger.Log(kgo.LogLevelError, "claim check reference not published",
			"url", url,
			"error", err.Error(),
		)
		return nil, Failed, errors.Join(ErrClaimCheckFailed, err)
	}

	return ref, outcome, nil
}

// objectKey is "<prefix>/<uuid>-<unix micros>", without the prefix part when
// no prefix is configured.
func (o *Offloader) objectKey() string {
	now := time.Now
	if o.now != nil {
		now = o.now
	}
	newID := uuid.NewString
	if o.newID != nil {
		newID = o.newID
	}

	name := newID() + "-" + strconv.FormatInt(now().UnixMicro(), 10)

	prefix := strings.TrimSuffix(o.KeyPrefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

func (o *Offloader) validate() error {
	if o.Store == nil {
		return errors.Join(ErrValidation, errors.New("claim check object store is required"))
	}
	if !usable(o.Container) {
		return errors.Join(ErrValidation,
			fmt.Errorf("claim check container '%s' is empty or unresolved", o.Container))
	}
	if unresolved(o.KeyPrefix) {
		return errors.Join(ErrValidation,
			fmt.Errorf("claim check key prefix '%s' is unresolved", o.KeyPrefix))
	}
	return validateCompression(o.Codec)
}
