package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"lead-hunter/internal/config"
)

// ErrLockHeld is returned by Acquire when another run holds the key
var ErrLockHeld = errors.New("lock held by another run")

// RunLocker serialises discovery runs over the same input URL
type RunLocker interface {
	// Acquire takes the lock for key, returning a release func or ErrLockHeld
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// NewRunLocker picks the widest lock the deployment supports: Redis when
// redis.url is set, lock files beside the SQLite database, otherwise an
// in-process locker.
func NewRunLocker(cfg *config.Config) (RunLocker, error) {
	switch {
	case cfg.Redis.URL != "":
		return NewRedisLocker(cfg.Redis.URL, cfg.Redis.Timeout, cfg.Hunter.RunLockTTL)
	case cfg.Store.Driver == "sqlite" && cfg.Store.SQLitePath != "":
		return NewFileLocker(filepath.Join(filepath.Dir(cfg.Store.SQLitePath), "locks"))
	default:
		return NewLocalLocker(), nil
	}
}

const lockKeyPrefix = "lead-hunter:discover:"

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements RunLocker with SET NX plus a TTL, so a crashed run frees the key
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker from a redis:// URL
func NewRedisLocker(redisURL string, timeout, ttl time.Duration) (*RedisLocker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if timeout > 0 {
		opts.DialTimeout = timeout
		opts.ReadTimeout = timeout
		opts.WriteTimeout = timeout
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	return &RedisLocker{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	fullKey := lockKeyPrefix + key

	ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err()
	}
	return release, nil
}

// Ping tests the Redis connection
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (l *RedisLocker) Close() error {
	return l.client.Close()
}

// LocalLocker guards keys within a single process
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, ErrLockHeld
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}

// FileLocker holds one flock(2) lock file per key, so server processes sharing
// a data directory never run the same discovery at once. The OS drops the lock
// when a process dies.
type FileLocker struct {
	dir   string
	local *LocalLocker
}

// NewFileLocker creates dir if needed and returns a locker keeping its files there
func NewFileLocker(dir string) (*FileLocker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	return &FileLocker{dir: dir, local: NewLocalLocker()}, nil
}

func (l *FileLocker) Acquire(ctx context.Context, key string) (func(), error) {
	releaseLocal, err := l.local.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}

	// keys are URLs; hash them into safe file names
	name := uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String() + ".lock"
	fileLock := flock.New(filepath.Join(l.dir, name))

	locked, err := fileLock.TryLock()
	if err != nil {
		releaseLocal()
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		releaseLocal()
		return nil, ErrLockHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = fileLock.Unlock()
			releaseLocal()
		})
	}, nil
}
