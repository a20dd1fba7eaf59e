package runstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNoReport indicates no run report is stored.
	ErrNoReport = errors.New("no run report")

	// ErrLocked indicates another run holds the run lock.
	ErrLocked = errors.New("run in progress")

	// ErrInvalidReport indicates the stored report is not valid JSON.
	ErrInvalidReport = errors.New("invalid run report")
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Config holds the Redis keys and expiries.
type Config struct {
	Prefix    string        `yaml:"prefix"`
	ReportTTL time.Duration `yaml:"report_ttl"`
	LockTTL   time.Duration `yaml:"lock_ttl"`
}

// DefaultConfig returns the default keys and expiries.
func DefaultConfig() Config {
	return Config{
		Prefix:    "parldok:run",
		ReportTTL: 7 * 24 * time.Hour,
		LockTTL:   15 * time.Minute,
	}
}

// Manager stores run state in Redis.
type Manager struct {
	redis  *redis.Client
	config Config
}

// NewManager creates a new run state manager with Redis backend.
func NewManager(redisClient *redis.Client, cfg Config) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	defaults := DefaultConfig()
	if cfg.Prefix == "" {
		cfg.Prefix = defaults.Prefix
	}
	if cfg.ReportTTL <= 0 {
		cfg.ReportTTL = defaults.ReportTTL
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaults.LockTTL
	}
	return &Manager{
		redis:  redisClient,
		config: cfg,
	}
}

// ReportKey returns the key of the last run report.
func (m *Manager) ReportKey() string {
	return m.config.Prefix + ":last"
}

// LockKey returns the key of the run lock.
func (m *Manager) LockKey() string {
	return m.config.Prefix + ":lock"
}

// Ping checks the Redis connection.
func (m *Manager) Ping(ctx context.Context) error {
	return m.redis.Ping(ctx).Err()
}

// SaveReport stores report as the last run report.
func (m *Manager) SaveReport(ctx context.Context, report any) error {
	if report == nil {
		return fmt.Errorf("run report cannot be nil")
	}

	data, err := json.Marshal(report)
	if err != nil {
		Errors.WithLabelValues("save").Inc()
		return fmt.Errorf("marshal run report: %w", err)
	}

	if err := m.redis.Set(ctx, m.ReportKey(), data, m.config.ReportTTL).Err(); err != nil {
		Errors.WithLabelValues("save").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	ReportsSaved.Inc()
	return nil
}

// LastReport returns the stored report as raw JSON.
// Returns ErrNoReport if none is stored or it has expired.
func (m *Manager) LastReport(ctx context.Context) (json.RawMessage, error) {
	data, err := m.redis.Get(ctx, m.ReportKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoReport
		}
		Errors.WithLabelValues("load").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	if !json.Valid(data) {
		Errors.WithLabelValues("load").Inc()
		return nil, ErrInvalidReport
	}

	return json.RawMessage(data), nil
}

// Lock is a held run lock.
type Lock struct {
	manager *Manager
	token   string
}

// AcquireLock takes the run lock. Returns ErrLocked if another run holds it.
func (m *Manager) AcquireLock(ctx context.Context) (*Lock, error) {
	token := uuid.NewString()

	ok, err := m.redis.SetNX(ctx, m.LockKey(), token, m.config.LockTTL).Result()
	if err != nil {
		Errors.WithLabelValues("lock").Inc()
		return nil, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		LockContended.Inc()
		return nil, ErrLocked
	}

	LockAcquired.Inc()
	return &Lock{manager: m, token: token}, nil
}

// Release frees the lock if it is still ours. Releasing a nil lock or a lock
// that has already expired is not an error.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, l.manager.redis, []string{l.manager.LockKey()}, l.token).Err(); err != nil && err != redis.Nil {
		Errors.WithLabelValues("unlock").Inc()
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}
