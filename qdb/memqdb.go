package qdb

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/juju/errors"
	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
)

// MemQDB keeps sequences in process memory, optionally mirrored to a JSON
// backup file after every change.
type MemQDB struct {
	mu sync.Mutex

	Sequences map[string]int64 `json:"sequences"`

	backupPath string
}

var _ QDB = &MemQDB{}

func NewMemQDB(backupPath string) (*MemQDB, error) {
	return &MemQDB{
		Sequences:  map[string]int64{},
		backupPath: backupPath,
	}, nil
}

// RestoreQDB loads state from backupPath, creating the file if missing.
func RestoreQDB(backupPath string) (*MemQDB, error) {
	qdb, err := NewMemQDB(backupPath)
	if err != nil {
		return nil, err
	}
	if backupPath == "" {
		return qdb, nil
	}
	if _, err := os.Stat(backupPath); err != nil {
		shardlog.Zero.Info().Err(err).Msg("memqdb backup file not exists. Creating new one.")
		f, err := os.Create(backupPath)
		if err != nil {
			return nil, errors.Annotate(err, "memqdb: create backup")
		}
		defer f.Close()
		return qdb, nil
	}
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return nil, errors.Annotate(err, "memqdb: read backup")
	}
	if len(data) == 0 {
		return qdb, nil
	}
	if err := json.Unmarshal(data, qdb); err != nil {
		return nil, errors.Annotatef(err, "memqdb: parse backup %s", backupPath)
	}
	if qdb.Sequences == nil {
		qdb.Sequences = map[string]int64{}
	}
	return qdb, nil
}

// DumpState writes the backup atomically through a temporary file.
func (q *MemQDB) DumpState() error {
	if q.backupPath == "" {
		return nil
	}
	tmpPath := q.backupPath + ".tmp"

	state, err := json.MarshalIndent(q, "", "	")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmpPath, state, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, q.backupPath)
}

func (q *MemQDB) CreateSequence(_ context.Context, seqName string, initialValue int64) error {
	shardlog.Zero.Debug().Str("sequence", seqName).Int64("initial", initialValue).Msg("memqdb: create sequence")
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.Sequences[seqName]; ok {
		return pipeerror.Newf(pipeerror.PIPE_SEQUENCE_ERROR, "sequence \"%s\" already exists", seqName)
	}
	return executeCommands(q.DumpState, newSetCommand(q.Sequences, seqName, initialValue))
}

// NextRange hands out the next rangeSize values. Unknown sequences start
// from zero.
func (q *MemQDB) NextRange(_ context.Context, seqName string, rangeSize uint64) (*SequenceIdRange, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rng, err := NewRangeBySize(q.Sequences[seqName]+1, rangeSize)
	if err != nil {
		return nil, pipeerror.New(pipeerror.PIPE_SEQUENCE_ERROR, err.Error())
	}
	if err := executeCommands(q.DumpState, newSetCommand(q.Sequences, seqName, rng.Right)); err != nil {
		return nil, err
	}
	shardlog.Zero.Debug().
		Str("sequence", seqName).
		Int64("left", rng.Left).
		Int64("right", rng.Right).
		Msg("memqdb: next range")
	return rng, nil
}

func (q *MemQDB) CurrVal(_ context.Context, seqName string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	val, ok := q.Sequences[seqName]
	if !ok {
		return -1, pipeerror.Newf(pipeerror.PIPE_SEQUENCE_ERROR, "sequence \"%s\" does not exist", seqName)
	}
	return val, nil
}

func (q *MemQDB) ListSequences(_ context.Context) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ret := make([]string, 0, len(q.Sequences))
	for name := range q.Sequences {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret, nil
}

func (q *MemQDB) DropSequence(_ context.Context, seqName string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	return executeCommands(q.DumpState, newDeleteCommand(q.Sequences, seqName))
}
