package audiostore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

var _ Store = (*NATSStore)(nil)

const contentTypeMeta = "content-type"

// NATSOption configures a NATSStore.
type NATSOption func(*nats.ObjectStoreConfig)

// WithTTL expires objects after d. Zero keeps them until deleted.
func WithTTL(d time.Duration) NATSOption {
	return func(c *nats.ObjectStoreConfig) {
		c.TTL = d
	}
}

// WithMemoryStorage keeps the bucket in server memory instead of on disk.
func WithMemoryStorage() NATSOption {
	return func(c *nats.ObjectStoreConfig) {
		c.Storage = nats.MemoryStorage
	}
}

// NATSStore is a Store backed by a JetStream object store bucket, so audio is
// shared between replicas of the service.
type NATSStore struct {
	bucket string
	store  nats.ObjectStore
}

// NewNATSStore creates the bucket if needed or binds to an existing one.
func NewNATSStore(js nats.JetStreamContext, bucket string, opts ...NATSOption) (*NATSStore, error) {
	cfg := &nats.ObjectStoreConfig{
		Bucket:      bucket,
		Description: "Synthesized coaching narration audio.",
		Storage:     nats.FileStorage,
		Replicas:    1,
	}
	for _, o := range opts {
		o(cfg)
	}

	store, err := js.CreateObjectStore(cfg)
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf("audiostore: create bucket %q: %w", bucket, err)
		}
		store, err = js.ObjectStore(bucket)
		if err != nil {
			return nil, fmt.Errorf("audiostore: bind bucket %q: %w", bucket, err)
		}
	}
	return &NATSStore{bucket: bucket, store: store}, nil
}

// Put implements Store.
func (s *NATSStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	meta := &nats.ObjectMeta{
		Name:     key,
		Metadata: map[string]string{contentTypeMeta: contentType},
	}
	if _, err := s.store.Put(meta, bytes.NewReader(data), nats.Context(ctx)); err != nil {
		return fmt.Errorf("audiostore: put %q in %q: %w", key, s.bucket, err)
	}
	return nil
}

// Get implements Store.
func (s *NATSStore) Get(ctx context.Context, key string) (*Object, error) {
	if !ValidKey(key) {
		return nil, ErrNotFound
	}
	res, err := s.store.Get(key, nats.Context(ctx))
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("audiostore: get %q from %q: %w", key, s.bucket, err)
	}
	defer res.Close()

	data, err := io.ReadAll(res)
	if err != nil {
		return nil, fmt.Errorf("audiostore: read %q: %w", key, err)
	}
	obj := &Object{Data: data}
	if info, err := res.Info(); err == nil && info.Metadata != nil {
		obj.ContentType = info.Metadata[contentTypeMeta]
	}
	return obj, nil
}
