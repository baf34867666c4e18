// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package azblob stores claim-check payloads in Azure Blob Storage.
//
//	import azblobstore "github.com/xmidt-org/kafkaroute/blobstore/azblob"
//
//	client, err := azblob.NewClientFromConnectionString(conn, nil)
//	...
//	router.ClaimCheck = &kafkaroute.Offloader{
//	    Store:     azblobstore.New(client),
//	    Container: "payloads",
//	}
package azblob

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/xmidt-org/kafkaroute"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrContainer is returned when a container cannot be created.
	ErrContainer = errors.New("container creation failed")

	// ErrUpload is returned when a blob cannot be uploaded.
	ErrUpload = errors.New("blob upload failed")
)

// blobClient is the part of *azblob.Client the store uses.
type blobClient interface {
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
	URL() string
}

var _ blobClient = (*azblob.Client)(nil)

// Store is a kafkaroute.ObjectStore backed by Azure Blob Storage. Containers
// are created on first use.
type Store struct {
	client blobClient
	logger kgo.Logger

	group   singleflight.Group
	mu      sync.Mutex
	created map[string]struct{}
}

var _ kafkaroute.ObjectStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default logs nothing.
func WithLogger(l kgo.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New returns a Store that uploads through client.
func New(client *azblob.Client, opts ...Option) *Store {
	return newStore(client, opts...)
}

// NewFromConnectionString returns a Store for the account in conn.
func NewFromConnectionString(conn string, opts ...Option) (*Store, error) {
	client, err := azblob.NewClientFromConnectionString(conn, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}
	return newStore(client, opts...), nil
}

func newStore(client blobClient, opts ...Option) *Store {
	s := &Store{
		client:  client,
		created: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	return s
}

// PutObject uploads data as container/key and returns the blob URL.
func (s *Store) PutObject(ctx context.Context, data []byte, container, key string) (string, error) {
	if err := s.ensureContainer(ctx, container); err != nil {
		return "", err
	}

	if _, err := s.client.UploadBuffer(ctx, container, key, data, nil); err != nil {
		return "", errors.Join(ErrUpload, fmt.Errorf("blob '%s/%s'", container, key), err)
	}

	url := runtime.JoinPaths(s.client.URL(), container, key)
	s.logger.Log(kgo.LogLevelDebug, "blob uploaded",
		"url", url,
		"bytes", strconv.Itoa(len(data)),
	)
	return url, nil
}

// ensureContainer creates container once per Store. Concurrent first uses
// share a single CreateContainer call.
func (s *Store) ensureContainer(ctx context.Context, container string) error {
	s.mu.Lock()
	_, ok := s.created[container]
	s.mu.Unlock()
	if ok {
		return nil
	}

	_, err, _ := s.group.Do(container, func() (any, error) {
		s.mu.Lock()
		_, ok := s.created[container]
		s.mu.Unlock()
		if ok {
			return nil, nil
		}

		// Shared by every waiter, so one caller canceling must not fail the rest.
		_, err := s.client.CreateContainer(context.WithoutCancel(ctx), container, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil, errors.Join(ErrContainer, fmt.Errorf("container '%s'", container), err)
		}

		if err == nil {
			s.logger.Log(kgo.LogLevelInfo, "blob container created", "container", container)
		}

		s.mu.Lock()
		s.created[container] = struct{}{}
		s.mu.Unlock()
		return nil, nil
	})
	return err
}

type nopLogger struct{}

func (nopLogger) Level() kgo.LogLevel              { return kgo.LogLevelNone }
func (nopLogger) Log(kgo.LogLevel, string, ...any) {}
