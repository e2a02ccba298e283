package palm

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"palmpay/storage"
)

// registrySlot is the single key under which the whole serialized sample
// collection lives. The name matches the original client's persisted registry
// so an existing slot can be read back.
const registrySlot = "palmData"

// digestLimit bounds the stored frame snapshot; it exists for operator
// reference only and plays no part in matching.
const digestLimit = 1000

// Sample is one registered palm capture. Samples are append-only: once
// written they are never mutated or deleted by the terminal.
type Sample struct {
	Code        string `json:"palmCode"`
	Hash        string `json:"palmHash"`
	CreatedAt   int64  `json:"timestamp"`
	FrameDigest string `json:"imageData"`
}

// Store is the durable home of the sample collection. Implementations load
// the whole collection and write it back whole; the terminal is the only
// writer so no finer-grained discipline is needed.
type Store interface {
	Load() ([]Sample, error)
	Append(Sample) error
}

// KVStore keeps the collection serialized under one slot of a key-value
// database.
type KVStore struct {
	db storage.Database
}

func NewKVStore(db storage.Database) *KVStore {
	return &KVStore{db: db}
}

func (s *KVStore) Load() ([]Sample, error) {
	raw, err := s.db.Get([]byte(registrySlot))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry slot: %w", err)
	}
	var samples []Sample
	if err := json.Unmarshal(raw, &samples); err != nil {
		return nil, fmt.Errorf("decode registry slot: %w", err)
	}
	return samples, nil
}

func (s *KVStore) Append(sample Sample) error {
	samples, err := s.Load()
	if err != nil {
		// An unreadable slot is treated as empty rather than blocking new
		// registrations; the corrupt payload is overwritten below.
		samples = nil
	}
	samples = append(samples, sample)
	raw, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	if err := s.db.Put([]byte(registrySlot), raw); err != nil {
		return fmt.Errorf("write registry slot: %w", err)
	}
	return nil
}

// Registry resolves a frame hash to a palm code, recognizing repeats of
// previously registered samples.
type Registry struct {
	store  Store
	logger *slog.Logger
	nowFn  func() time.Time
}

func NewRegistry(store Store, logger *slog.Logger) *Registry {
	if store == nil {
		panic("palm: store required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: store, logger: logger, nowFn: time.Now}
}

// Match scans the collection in insertion order and returns the first sample
// whose hash clears MatchThreshold against the query. Later entries are never
// considered once one matches, so ties resolve to the earliest registration.
// A store failure degrades to "no prior samples".
func (r *Registry) Match(hash string) (Sample, bool) {
	samples, err := r.store.Load()
	if err != nil {
		r.logger.Warn("palm registry unreadable, treating as empty", slog.Any("error", err))
		return Sample{}, false
	}
	for _, sample := range samples {
		if Similarity(hash, sample.Hash) >= MatchThreshold {
			return sample, true
		}
	}
	return Sample{}, false
}

// Resolve returns the palm code for a captured frame hash: the existing code
// when the hash matches a registered sample, otherwise a freshly minted code
// whose sample is appended to the collection. recognized reports which path
// was taken. An append failure still yields a usable code; the caller decides
// whether the lost registration matters.
func (r *Registry) Resolve(hash string, encodedFrame []byte) (code string, recognized bool, err error) {
	if existing, ok := r.Match(hash); ok {
		return existing.Code, true, nil
	}
	now := r.nowFn()
	code = MintCode(now)
	sample := Sample{
		Code:        code,
		Hash:        hash,
		CreatedAt:   now.UnixMilli(),
		FrameDigest: Digest(encodedFrame),
	}
	if err := r.store.Append(sample); err != nil {
		return code, false, fmt.Errorf("register palm sample: %w", err)
	}
	return code, false, nil
}

// Digest is the truncated snapshot of an encoded frame kept alongside a
// sample for reference.
func Digest(encoded []byte) string {
	s := base64.StdEncoding.EncodeToString(encoded)
	if len(s) > digestLimit {
		s = s[:digestLimit]
	}
	return s
}
