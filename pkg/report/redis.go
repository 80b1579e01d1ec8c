package report

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/admit/pkg/admission/guard"
	gferrors "github.com/vnykmshr/admit/pkg/common/errors"
)

// Hash fields written for every resource.
const (
	fieldBudget     = "budget"
	fieldHeld       = "held"
	fieldWaiting    = "waiting"
	fieldPeak       = "peak"
	fieldAdmitted   = "admitted"
	fieldRejected   = "rejected"
	fieldViolations = "violations"
	fieldAt         = "at"
)

// RedisSink writes snapshots to Redis hashes under a per-instance namespace.
type RedisSink struct {
	rdb redis.UniversalClient

	prefix   string
	instance string
	ttl      time.Duration
}

// RedisOption configures a RedisSink.
type RedisOption func(*RedisSink)

// WithPrefix sets the key prefix. Defaults to "admit:stats".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisSink) { s.prefix = strings.Trim(prefix, ":") }
}

// WithTTL sets how long per-instance keys outlive the last write. Zero keeps
// them forever. Defaults to one hour.
func WithTTL(d time.Duration) RedisOption {
	return func(s *RedisSink) { s.ttl = d }
}

// WithInstanceID overrides DefaultInstanceID.
func WithInstanceID(id string) RedisOption {
	return func(s *RedisSink) { s.instance = id }
}

// NewRedisSink creates a sink writing through rdb.
func NewRedisSink(rdb redis.UniversalClient, opts ...RedisOption) *RedisSink {
	s := &RedisSink{
		rdb:    rdb,
		prefix: "admit:stats",
		ttl:    time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.instance == "" {
		s.instance = DefaultInstanceID()
	}
	return s
}

// InstanceID returns the id this sink writes under.
func (s *RedisSink) InstanceID() string {
	return s.instance
}

func (s *RedisSink) instancesKey() string {
	return s.prefix + ":instances"
}

func (s *RedisSink) resourcesKey(instance string) string {
	return s.prefix + ":" + instance + ":resources"
}

func (s *RedisSink) resourceKey(instance, key string) string {
	return s.prefix + ":" + instance + ":resource:" + key
}

// Write stores stats in a single pipeline.
func (s *RedisSink) Write(ctx context.Context, at time.Time, stats []guard.Stats) error {
	pipe := s.rdb.Pipeline()

	pipe.ZAdd(ctx, s.instancesKey(), redis.Z{Score: float64(at.Unix()), Member: s.instance})

	if len(stats) > 0 {
		members := make([]interface{}, 0, len(stats))
		for _, st := range stats {
			members = append(members, st.Key)

			key := s.resourceKey(s.instance, st.Key)
			pipe.HSet(ctx, key, map[string]interface{}{
				fieldBudget:     st.Budget,
				fieldHeld:       st.Held,
				fieldWaiting:    st.Waiting,
				fieldPeak:       st.Peak,
				fieldAdmitted:   st.Admitted,
				fieldRejected:   st.Rejected,
				fieldViolations: st.Violations,
				fieldAt:         at.UnixMilli(),
			})
			if s.ttl > 0 {
				pipe.Expire(ctx, key, s.ttl)
			}
		}
		pipe.SAdd(ctx, s.resourcesKey(s.instance), members...)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.resourcesKey(s.instance), s.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return gferrors.NewOperationError("report", "Write", err).WithContext("redis " + s.prefix)
	}
	return nil
}

// Instances returns instance ids that reported at or after since.
func (s *RedisSink) Instances(ctx context.Context, since time.Time) ([]string, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, s.instancesKey(), &redis.ZRangeBy{
		Min: strconv.FormatInt(since.Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, gferrors.NewOperationError("report", "Instances", err)
	}
	return ids, nil
}

// Read returns the last snapshot written by instance, sorted by key.
func (s *RedisSink) Read(ctx context.Context, instance string) ([]guard.Stats, error) {
	keys, err := s.rdb.SMembers(ctx, s.resourcesKey(instance)).Result()
	if err != nil {
		return nil, gferrors.NewOperationError("report", "Read", err)
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, s.resourceKey(instance, key))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, gferrors.NewOperationError("report", "Read", err)
	}

	out := make([]guard.Stats, 0, len(keys))
	for i, key := range keys {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			// expired between SMEMBERS and HGETALL
			continue
		}
		out = append(out, guard.Stats{
			Key:        key,
			Budget:     atoiField(fields, fieldBudget),
			Held:       atoiField(fields, fieldHeld),
			Waiting:    atoiField(fields, fieldWaiting),
			Peak:       atoiField(fields, fieldPeak),
			Admitted:   int64(atoiField(fields, fieldAdmitted)),
			Rejected:   int64(atoiField(fields, fieldRejected)),
			Violations: int64(atoiField(fields, fieldViolations)),
		})
	}
	sortStats(out)
	return out, nil
}

func atoiField(fields map[string]string, name string) int {
	n, _ := strconv.Atoi(fields[name])
	return n
}
