package natskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// envelope carries the absolute expiry next to the credential because the
// bucket TTL only bounds storage, it is not per entry.
type envelope struct {
	Credential string `json:"c"`
	ExpiresAt  int64  `json:"exp"` // unix nanoseconds
}

// CredentialStore keeps bridge entries in a KV bucket. The bucket should be
// provisioned with a TTL at least as long as the bridge TTL so JetStream
// ages out abandoned entries.
type CredentialStore struct {
	kv  jetstream.KeyValue
	now func() time.Time
}

// NewCredentialStore wraps kv.
func NewCredentialStore(kv jetstream.KeyValue) *CredentialStore {
	return &CredentialStore{kv: kv, now: time.Now}
}

func (s *CredentialStore) Put(ctx context.Context, id, credential string, ttl time.Duration) error {
	data, err := json.Marshal(envelope{Credential: credential, ExpiresAt: s.now().Add(ttl).UnixNano()})
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if _, err := s.kv.Put(ctx, encodeKey(id), data); err != nil {
		return fmt.Errorf("nats put credential: %w", err)
	}
	return nil
}

func (s *CredentialStore) Get(ctx context.Context, id string) (string, bool, error) {
	entry, err := s.kv.Get(ctx, encodeKey(id))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("nats get credential: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(entry.Value(), &env); err != nil {
		return "", false, fmt.Errorf("decode credential: %w", err)
	}
	if s.now().UnixNano() >= env.ExpiresAt {
		return "", false, nil
	}
	return env.Credential, true, nil
}

func (s *CredentialStore) Delete(ctx context.Context, id string) error {
	err := s.kv.Delete(ctx, encodeKey(id))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("nats delete credential: %w", err)
	}
	return nil
}
