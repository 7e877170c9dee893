package requests

import (
	"context"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/constants"
	"github.com/estateflow-io/estateflow-client/internal/estateflow-client/securefile"
)

// ErrNotFound is returned by a Backend when nothing is stored under its key.
var ErrNotFound = errors.New("no stored requests")

// Backend persists the whole request list as one JSON document under one key.
type Backend interface {
	Name() string
	Key() string
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Remove(ctx context.Context) error
}

type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (f *FileBackend) Name() string { return "file" }
func (f *FileBackend) Key() string  { return f.path }

func (f *FileBackend) Load(context.Context) ([]byte, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "read requests file")
	}
	return b, nil
}

func (f *FileBackend) Save(_ context.Context, data []byte) error {
	if err := securefile.WriteFile(f.path, data, constants.FilePerm, constants.DirectoryPerm); err != nil {
		return errors.Wrap(err, "write requests file")
	}
	return nil
}

func (f *FileBackend) Remove(context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove requests file")
	}
	return nil
}

type RedisBackend struct {
	client *redis.Client
	key    string
}

// DialRedis parses url and pings the server before returning a client.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = constants.StorageKey
	}
	return &RedisBackend{client: client, key: key}
}

func (r *RedisBackend) Name() string { return "redis" }
func (r *RedisBackend) Key() string  { return r.key }

func (r *RedisBackend) Load(ctx context.Context) ([]byte, error) {
	b, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis get %s", r.key)
	}
	return b, nil
}

func (r *RedisBackend) Save(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return errors.Wrapf(err, "redis set %s", r.key)
	}
	return nil
}

func (r *RedisBackend) Remove(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return errors.Wrapf(err, "redis del %s", r.key)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

// MemoryBackend keeps the document in process memory.
type MemoryBackend struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryBackend() *MemoryBackend { return &MemoryBackend{} }

func (m *MemoryBackend) Name() string { return "memory" }
func (m *MemoryBackend) Key() string  { return constants.StorageKey }

func (m *MemoryBackend) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryBackend) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBackend) Remove(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}
