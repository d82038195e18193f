package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"sigede/internal/session/models"
	id "sigede/pkg/domain"
	"sigede/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "sigede:session:"
	accountKeyPrefix = "sigede:session:account:"
)

// takeoverScript revokes any prior session for the account and installs the
// new one in a single atomic unit, closing the double-login race window.
var takeoverScript = redis.NewScript(`
local account_key = KEYS[1]
local new_session_key = KEYS[2]
local session_prefix = ARGV[1]
local new_session_id = ARGV[2]
local blob = ARGV[3]
local account_id = ARGV[4]
local now_unix = ARGV[5]

local prior = redis.call("GET", account_key)
if prior then
  redis.call("DEL", session_prefix .. prior)
end
redis.call("HSET", new_session_key,
  "blob", blob,
  "account_id", account_id,
  "last_seen", now_unix)
redis.call("SET", account_key, new_session_id)
return 1
`)

// deleteScript removes a session and its account index entry if the index
// still points at it. Missing sessions are a no-op.
var deleteScript = redis.NewScript(`
local session_key = KEYS[1]
local account_prefix = ARGV[1]
local session_id = ARGV[2]

local account_id = redis.call("HGET", session_key, "account_id")
redis.call("DEL", session_key)
if account_id then
  local account_key = account_prefix .. account_id
  if redis.call("GET", account_key) == session_id then
    redis.call("DEL", account_key)
  end
end
return 1
`)

// RedisRegistry implements Registry on Redis. Sessions are hashes holding
// the JSON blob plus a separately-updatable last_seen field so heartbeats
// do not rewrite the blob.
type RedisRegistry struct {
	client *redis.Client
	clock  func() time.Time
}

// RedisOption configures a RedisRegistry.
type RedisOption func(*RedisRegistry)

// WithRedisClock sets the clock function for deterministic tests.
func WithRedisClock(clock func() time.Time) RedisOption {
	return func(r *RedisRegistry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisRegistry {
	r := &RedisRegistry{client: client, clock: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisRegistry) Create(ctx context.Context, accountID id.AccountID, device models.DeviceDescriptor) (models.Session, error) {
	now := r.clock()
	session := models.Session{
		ID:         id.NewSessionID(),
		AccountID:  accountID,
		Device:     device,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	blob, err := json.Marshal(session)
	if err != nil {
		return models.Session{}, fmt.Errorf("marshal session: %w", err)
	}

	keys := []string{
		accountKeyPrefix + accountID.String(),
		sessionKeyPrefix + session.ID.String(),
	}
	argv := []any{
		sessionKeyPrefix,
		session.ID.String(),
		string(blob),
		accountID.String(),
		strconv.FormatInt(now.Unix(), 10),
	}
	if err := takeoverScript.Run(ctx, r.client, keys, argv...).Err(); err != nil {
		return models.Session{}, fmt.Errorf("session takeover: %w", err)
	}
	return session, nil
}

func (r *RedisRegistry) Find(ctx context.Context, sessionID id.SessionID) (models.Session, error) {
	fields, err := r.client.HGetAll(ctx, sessionKeyPrefix+sessionID.String()).Result()
	if err != nil {
		return models.Session{}, fmt.Errorf("find session: %w", err)
	}
	blob, ok := fields["blob"]
	if !ok {
		return models.Session{}, sentinel.ErrNotFound
	}
	var session models.Session
	if err := json.Unmarshal([]byte(blob), &session); err != nil {
		return models.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	if raw, ok := fields["last_seen"]; ok {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			session.LastSeenAt = time.Unix(unix, 0)
		}
	}
	return session, nil
}

func (r *RedisRegistry) Touch(ctx context.Context, sessionID id.SessionID, at time.Time) models.TouchResult {
	key := sessionKeyPrefix + sessionID.String()
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return models.TouchResult{Err: err}
	}
	if exists == 0 {
		return models.TouchResult{Err: sentinel.ErrNotFound}
	}
	if err := r.client.HSet(ctx, key, "last_seen", strconv.FormatInt(at.Unix(), 10)).Err(); err != nil {
		return models.TouchResult{Err: err}
	}
	return models.TouchResult{Updated: true}
}

func (r *RedisRegistry) Delete(ctx context.Context, sessionID id.SessionID) error {
	keys := []string{sessionKeyPrefix + sessionID.String()}
	argv := []any{accountKeyPrefix, sessionID.String()}
	if err := deleteScript.Run(ctx, r.client, keys, argv...).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *RedisRegistry) DeleteByAccount(ctx context.Context, accountID id.AccountID) error {
	accountKey := accountKeyPrefix + accountID.String()
	sessionID, err := r.client.Get(ctx, accountKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil // idempotent
		}
		return fmt.Errorf("resolve account session: %w", err)
	}
	if err := r.client.Del(ctx, sessionKeyPrefix+sessionID, accountKey).Err(); err != nil {
		return fmt.Errorf("delete account sessions: %w", err)
	}
	return nil
}

func (r *RedisRegistry) ListByAccount(ctx context.Context, accountID id.AccountID) ([]models.Session, error) {
	raw, err := r.client.Get(ctx, accountKeyPrefix+accountID.String()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("list account sessions: %w", err)
	}
	sessionID, err := id.ParseSessionID(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt account index: %w", err)
	}
	session, err := r.Find(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return []models.Session{session}, nil
}
