package qdb_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pg-sharding/shardpipe/pkg/models/pipeerror"
	"github.com/pg-sharding/shardpipe/qdb"
	"github.com/stretchr/testify/assert"
)

func TestMemQDBRanges(t *testing.T) {
	assert := assert.New(t)
	ctx := context.TODO()

	db, err := qdb.NewMemQDB("")
	assert.NoError(err)
	assert.NoError(db.CreateSequence(ctx, "seq", 10))
	assert.Equal(pipeerror.PIPE_SEQUENCE_ERROR, pipeerror.Code(db.CreateSequence(ctx, "seq", 0)))

	rng, err := db.NextRange(ctx, "seq", 5)
	assert.NoError(err)
	assert.Equal(&qdb.SequenceIdRange{Left: 11, Right: 15}, rng)

	rng, err = db.NextRange(ctx, "seq", 1)
	assert.NoError(err)
	assert.Equal(&qdb.SequenceIdRange{Left: 16, Right: 16}, rng)

	cur, err := db.CurrVal(ctx, "seq")
	assert.NoError(err)
	assert.Equal(int64(16), cur)

	_, err = db.NextRange(ctx, "seq", 0)
	assert.Error(err)
	cur, _ = db.CurrVal(ctx, "seq")
	assert.Equal(int64(16), cur)

	rng, err = db.NextRange(ctx, "implicit", 2)
	assert.NoError(err)
	assert.Equal(&qdb.SequenceIdRange{Left: 1, Right: 2}, rng)

	list, err := db.ListSequences(ctx)
	assert.NoError(err)
	assert.Equal([]string{"implicit", "seq"}, list)

	assert.NoError(db.DropSequence(ctx, "seq"))
	_, err = db.CurrVal(ctx, "seq")
	assert.Equal(pipeerror.PIPE_SEQUENCE_ERROR, pipeerror.Code(err))
}

func TestMemQDBRangesDoNotOverlap(t *testing.T) {
	assert := assert.New(t)
	ctx := context.TODO()

	db, _ := qdb.NewMemQDB("")

	var mu sync.Mutex
	seen := map[int64]struct{}{}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				rng, err := db.NextRange(ctx, "seq", 3)
				assert.NoError(err)
				mu.Lock()
				for v := rng.Left; v <= rng.Right; v++ {
					seen[v] = struct{}{}
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(seen, 300)
}

func TestMemQDBBackup(t *testing.T) {
	assert := assert.New(t)
	ctx := context.TODO()

	path := filepath.Join(t.TempDir(), "memqdb.json")
	db, err := qdb.RestoreQDB(path)
	assert.NoError(err)

	_, err = db.NextRange(ctx, "seq", 4)
	assert.NoError(err)

	restored, err := qdb.RestoreQDB(path)
	assert.NoError(err)
	cur, err := restored.CurrVal(ctx, "seq")
	assert.NoError(err)
	assert.Equal(int64(4), cur)

	rng, err := restored.NextRange(ctx, "seq", 1)
	assert.NoError(err)
	assert.Equal(int64(5), rng.Left)
}
