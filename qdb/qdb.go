package qdb

import (
	"context"
	"fmt"

	"github.com/pg-sharding/shardpipe/pkg/config"
)

// QDB stores sequences that back generated keys. Ranges handed out by
// NextRange never overlap, whichever process asked for them.
type QDB interface {
	CreateSequence(ctx context.Context, seqName string, initialValue int64) error
	NextRange(ctx context.Context, seqName string, rangeSize uint64) (*SequenceIdRange, error)
	CurrVal(ctx context.Context, seqName string) (int64, error)
	ListSequences(ctx context.Context) ([]string, error)
	DropSequence(ctx context.Context, seqName string) error
}

func NewQDB(cfg *config.SequencerCfg) (QDB, error) {
	switch cfg.Type {
	case config.SequencerTypeEtcd:
		return NewEtcdQDB(cfg.EtcdAddr)
	case config.SequencerTypeRedis:
		return NewRedisQDB(cfg.RedisAddr)
	case config.SequencerTypeMem, "":
		return RestoreQDB(cfg.MemqdbBackupPath)
	default:
		return nil, fmt.Errorf("qdb implementation %s is invalid", cfg.Type)
	}
}
