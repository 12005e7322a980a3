package qdb

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
	retry "github.com/sethvargo/go-retry"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/clientv3util"
	"go.etcd.io/etcd/client/v3/concurrency"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	sequenceNamespace = "/sequences/"
	sequenceSpace     = "sequence_space"

	etcdLockRetries = 7
)

type EtcdQDB struct {
	cli *clientv3.Client
}

var _ QDB = &EtcdQDB{}

func NewEtcdQDB(addr string) (*EtcdQDB, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   []string{addr},
		DialTimeout: 5 * time.Second,
		DialOptions: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
	})
	if err != nil {
		return nil, errors.Annotatef(err, "etcdqdb: connect %s", addr)
	}

	shardlog.Zero.Debug().
		Str("address", addr).
		Uint("client", shardlog.GetPointer(cli)).
		Msg("etcdqdb: NewEtcdQDB")

	return &EtcdQDB{cli: cli}, nil
}

func sequenceNodePath(key string) string {
	return path.Join(sequenceNamespace, key)
}

func (q *EtcdQDB) Client() *clientv3.Client {
	return q.cli
}

func (q *EtcdQDB) CreateSequence(ctx context.Context, seqName string, initialValue int64) error {
	shardlog.Zero.Debug().Str("sequence", seqName).Msg("etcdqdb: create sequence")

	key := sequenceNodePath(seqName)
	resp, err := q.cli.Txn(ctx).
		If(clientv3util.KeyMissing(key)).
		Then(clientv3.OpPut(key, fmt.Sprintf("%d", initialValue))).
		Commit()
	if err != nil {
		return errors.Annotate(err, "etcdqdb: create sequence")
	}
	if !resp.Succeeded {
		return pipeerror.Newf(pipeerror.PIPE_SEQUENCE_ERROR, "sequence \"%s\" already exists", seqName)
	}
	return nil
}

// lockSequences takes the cluster-wide sequence mutex. Acquisition is
// retried on transient etcd errors.
func (q *EtcdQDB) lockSequences(ctx context.Context) (*concurrency.Session, *concurrency.Mutex, error) {
	sess, err := concurrency.NewSession(q.cli)
	if err != nil {
		return nil, nil, err
	}
	mu := concurrency.NewMutex(sess, sequenceSpace)
	if err := retry.Do(ctx, retry.WithMaxRetries(etcdLockRetries, retry.NewFibonacci(100*time.Millisecond)), func(ctx context.Context) error {
		if err := mu.Lock(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		if cerr := sess.Close(); cerr != nil {
			shardlog.Zero.Error().Err(cerr).Msg("etcdqdb: close lock session")
		}
		return nil, nil, err
	}
	return sess, mu, nil
}

// releaseSequences unlocks the sequence mutex and ends its lease session.
func releaseSequences(ctx context.Context, sess *concurrency.Session, mu *concurrency.Mutex) {
	if err := mu.Unlock(ctx); err != nil {
		shardlog.Zero.Error().Err(err).Str("key", mu.Key()).Msg("etcdqdb: unlock sequences")
	}
	if err := sess.Close(); err != nil {
		shardlog.Zero.Error().Err(err).Msg("etcdqdb: close lock session")
	}
}

func (q *EtcdQDB) currVal(ctx context.Context, key string) (int64, bool, error) {
	resp, err := q.cli.Get(ctx, key)
	if err != nil {
		return -1, false, err
	}
	switch resp.Count {
	case 0:
		return 0, false, nil
	case 1:
		val, err := strconv.ParseInt(string(resp.Kvs[0].Value), 10, 64)
		return val, true, err
	default:
		return -1, false, pipeerror.Newf(pipeerror.PIPE_SEQUENCE_ERROR, "too much sequences matched: %d", resp.Count)
	}
}

// NextRange hands out the next rangeSize values. Unknown sequences start
// from zero.
func (q *EtcdQDB) NextRange(ctx context.Context, seqName string, rangeSize uint64) (*SequenceIdRange, error) {
	shardlog.Zero.Debug().Str("sequence", seqName).Uint64("size", rangeSize).Msg("etcdqdb: next range")

	sess, mu, err := q.lockSequences(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "etcdqdb: lock sequences")
	}
	defer releaseSequences(ctx, sess, mu)

	key := sequenceNodePath(seqName)
	cur, _, err := q.currVal(ctx, key)
	if err != nil {
		return nil, err
	}
	rng, err := NewRangeBySize(cur+1, rangeSize)
	if err != nil {
		return nil, pipeerror.New(pipeerror.PIPE_SEQUENCE_ERROR, err.Error())
	}
	if _, err := q.cli.Put(ctx, key, fmt.Sprintf("%d", rng.Right)); err != nil {
		return nil, errors.Annotate(err, "etcdqdb: store sequence")
	}
	return rng, nil
}

func (q *EtcdQDB) CurrVal(ctx context.Context, seqName string) (int64, error) {
	shardlog.Zero.Debug().Str("sequence", seqName).Msg("etcdqdb: curr val")

	val, ok, err := q.currVal(ctx, sequenceNodePath(seqName))
	if err != nil {
		return -1, err
	}
	if !ok {
		return -1, pipeerror.Newf(pipeerror.PIPE_SEQUENCE_ERROR, "sequence \"%s\" does not exist", seqName)
	}
	return val, nil
}

func (q *EtcdQDB) ListSequences(ctx context.Context) ([]string, error) {
	shardlog.Zero.Debug().Msg("etcdqdb: list all sequences")

	resp, err := q.cli.Get(ctx, sequenceNamespace, clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, err
	}
	ret := make([]string, 0, len(resp.Kvs))
	for _, e := range resp.Kvs {
		ret = append(ret, strings.TrimPrefix(string(e.Key), sequenceNamespace))
	}
	sort.Strings(ret)
	return ret, nil
}

func (q *EtcdQDB) DropSequence(ctx context.Context, seqName string) error {
	shardlog.Zero.Debug().Str("sequence", seqName).Msg("etcdqdb: drop sequence")

	_, err := q.cli.Delete(ctx, sequenceNodePath(seqName))
	return err
}

func (q *EtcdQDB) Close() error {
	return q.cli.Close()
}
