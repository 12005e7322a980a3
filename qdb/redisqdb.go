package qdb

import (
	"context"
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
	"github.com/redis/go-redis/v9"
)

const redisSequencePrefix = "shardpipe:sequences:"

// RedisQDB serves sequence ranges with INCRBY, which is atomic on the
// server.
type RedisQDB struct {
	db *redis.Client
}

var _ QDB = &RedisQDB{}

func NewRedisQDB(addr string) (*RedisQDB, error) {
	rdb := redis.NewClient(&redis.Options{
		Network: "tcp",
		Addr:    addr,
	})
	shardlog.Zero.Debug().
		Str("address", addr).
		Uint("client", shardlog.GetPointer(rdb)).
		Msg("redisqdb: NewRedisQDB")
	return &RedisQDB{db: rdb}, nil
}

func redisSequenceKey(seqName string) string {
	return redisSequencePrefix + seqName
}

func (q *RedisQDB) CreateSequence(ctx context.Context, seqName string, initialValue int64) error {
	ok, err := q.db.SetNX(ctx, redisSequenceKey(seqName), initialValue, 0).Result()
	if err != nil {
		return errors.Annotate(err, "redisqdb: create sequence")
	}
	if !ok {
		return pipeerror.Newf(pipeerror.PIPE_SEQUENCE_ERROR, "sequence \"%s\" already exists", seqName)
	}
	return nil
}

func (q *RedisQDB) NextRange(ctx context.Context, seqName string, rangeSize uint64) (*SequenceIdRange, error) {
	probe, err := NewRangeBySize(1, rangeSize)
	if err != nil {
		return nil, pipeerror.New(pipeerror.PIPE_SEQUENCE_ERROR, err.Error())
	}
	right, err := q.db.IncrBy(ctx, redisSequenceKey(seqName), probe.Right).Result()
	if err != nil {
		return nil, errors.Annotate(err, "redisqdb: next range")
	}
	rng, err := NewRangeBySize(right-probe.Right+1, rangeSize)
	if err != nil {
		return nil, pipeerror.New(pipeerror.PIPE_SEQUENCE_ERROR, err.Error())
	}
	shardlog.Zero.Debug().
		Str("sequence", seqName).
		Int64("left", rng.Left).
		Int64("right", rng.Right).
		Msg("redisqdb: next range")
	return rng, nil
}

func (q *RedisQDB) CurrVal(ctx context.Context, seqName string) (int64, error) {
	val, err := q.db.Get(ctx, redisSequenceKey(seqName)).Int64()
	if err == redis.Nil {
		return -1, pipeerror.Newf(pipeerror.PIPE_SEQUENCE_ERROR, "sequence \"%s\" does not exist", seqName)
	}
	if err != nil {
		return -1, errors.Annotate(err, "redisqdb: curr val")
	}
	return val, nil
}

func (q *RedisQDB) ListSequences(ctx context.Context) ([]string, error) {
	var ret []string
	iter := q.db.Scan(ctx, 0, redisSequencePrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ret = append(ret, strings.TrimPrefix(iter.Val(), redisSequencePrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Annotate(err, "redisqdb: list sequences")
	}
	sort.Strings(ret)
	return ret, nil
}

func (q *RedisQDB) DropSequence(ctx context.Context, seqName string) error {
	return q.db.Del(ctx, redisSequenceKey(seqName)).Err()
}

func (q *RedisQDB) Close() error {
	return q.db.Close()
}
