package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisBackend implements Backend on a Redis server with the RediSearch module.
// FT.* commands are sent raw and their RESP2 replies parsed here, so the
// connection is pinned to protocol 2.
type RedisBackend struct {
	client *redis.Client
	addr   string
}

// Verify interface implementation at compile time
var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend creates a Redis backend. The connection is established lazily.
func NewRedisBackend(opts RedisOptions) *RedisBackend {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		Protocol:     2,
	})
	return &RedisBackend{client: client, addr: opts.Addr}
}

// Name implements Backend.
func (b *RedisBackend) Name() string { return "redis" }

// ListIndexes implements Backend using FT._LIST.
func (b *RedisBackend) ListIndexes(ctx context.Context) ([]string, error) {
	names, err := b.client.Do(ctx, "FT._LIST").StringSlice()
	if err != nil {
		return nil, classifyRedisError(err)
	}
	return names, nil
}

// CreateIndex implements Backend using FT.CREATE ... ON HASH.
func (b *RedisBackend) CreateIndex(ctx context.Context, name string, def IndexDefinition, fields []FieldSpec) error {
	args := createIndexArgs(name, def, fields)
	slog.Debug("redis_create_index",
		slog.String("index", name),
		slog.Int("fields", len(fields)))
	if err := b.client.Do(ctx, args...).Err(); err != nil {
		return classifyRedisError(err)
	}
	return nil
}

// DropIndex implements Backend using FT.DROPINDEX [DD].
func (b *RedisBackend) DropIndex(ctx context.Context, name string, deleteDocuments bool) error {
	args := []any{"FT.DROPINDEX", name}
	if deleteDocuments {
		args = append(args, "DD")
	}
	if err := b.client.Do(ctx, args...).Err(); err != nil {
		return classifyRedisError(err)
	}
	return nil
}

// IndexInfo implements Backend using FT.INFO.
func (b *RedisBackend) IndexInfo(ctx context.Context, name string) (*IndexInfo, error) {
	reply, err := b.client.Do(ctx, "FT.INFO", name).Result()
	if err != nil {
		return nil, classifyRedisError(err)
	}
	return parseInfoReply(name, reply), nil
}

// HSet implements Backend. Fields are written in name order.
func (b *RedisBackend) HSet(ctx context.Context, key string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)

	args := make([]any, 0, len(values)*2)
	for _, k := range names {
		args = append(args, k, values[k])
	}
	return b.client.HSet(ctx, key, args...).Err()
}

// HGetAll implements Backend.
func (b *RedisBackend) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return b.client.HGetAll(ctx, key).Result()
}

// Del implements Backend.
func (b *RedisBackend) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return b.client.Del(ctx, keys...).Err()
}

// Search implements Backend using FT.SEARCH.
func (b *RedisBackend) Search(ctx context.Context, name string, q Query) (*RawResult, error) {
	start := time.Now()
	reply, err := b.client.Do(ctx, searchArgs(name, q)...).Result()
	if err != nil {
		return nil, classifyRedisError(err)
	}
	res, err := parseSearchReply(reply)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

// SpellCheck implements Backend using FT.SPELLCHECK.
func (b *RedisBackend) SpellCheck(ctx context.Context, name, query string, opts SpellCheckOptions) ([]SpellCheckTerm, error) {
	reply, err := b.client.Do(ctx, spellCheckArgs(name, query, opts)...).Result()
	if err != nil {
		return nil, classifyRedisError(err)
	}
	return parseSpellCheckReply(reply)
}

// Ping implements Backend.
func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis at %s: %w", b.addr, err)
	}
	return nil
}

// Close implements Backend.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// createIndexArgs builds FT.CREATE arguments for hash documents.
func createIndexArgs(name string, def IndexDefinition, fields []FieldSpec) []any {
	args := []any{"FT.CREATE", name, "ON", "HASH"}
	if len(def.Prefixes) > 0 {
		args = append(args, "PREFIX", len(def.Prefixes))
		for _, p := range def.Prefixes {
			args = append(args, p)
		}
	}

	args = append(args, "SCHEMA")
	for _, f := range fields {
		args = append(args, f.Identifier())
		if f.As != "" && f.As != f.Identifier() {
			args = append(args, "AS", f.As)
		}

		switch f.Type {
		case FieldTypeTag:
			args = append(args, "TAG")
			if f.Separator != "" {
				args = append(args, "SEPARATOR", f.Separator)
			}
		default:
			args = append(args, "TEXT")
			if f.NoStem {
				args = append(args, "NOSTEM")
			}
			if f.Weight > 0 {
				args = append(args, "WEIGHT", strconv.FormatFloat(f.Weight, 'f', -1, 64))
			}
		}

		if f.Sortable {
			args = append(args, "SORTABLE")
		}
		if f.NoIndex {
			args = append(args, "NOINDEX")
		}
	}
	return args
}

// searchArgs builds FT.SEARCH arguments in the order the command grammar lists them.
func searchArgs(name string, q Query) []any {
	args := []any{"FT.SEARCH", name, q.Text}

	if len(q.Return) > 0 {
		args = append(args, "RETURN", len(q.Return))
		for _, f := range q.Return {
			args = append(args, f)
		}
	}
	if q.Highlight() {
		args = append(args, "HIGHLIGHT", "TAGS", q.HighlightOpen, q.HighlightClose)
	}
	if q.SortBy != "" {
		dir := "DESC"
		if q.SortAsc {
			dir = "ASC"
		}
		args = append(args, "SORTBY", q.SortBy, dir)
	}
	args = append(args, "LIMIT", q.Offset, q.Limit)
	return args
}

// spellCheckArgs builds FT.SPELLCHECK arguments.
func spellCheckArgs(name, query string, opts SpellCheckOptions) []any {
	args := []any{"FT.SPELLCHECK", name, query}
	if opts.Distance > 0 {
		args = append(args, "DISTANCE", opts.Distance)
	}
	for _, d := range opts.Include {
		args = append(args, "TERMS", "INCLUDE", d)
	}
	for _, d := range opts.Exclude {
		args = append(args, "TERMS", "EXCLUDE", d)
	}
	return args
}
