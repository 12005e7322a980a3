package qdb

import (
	"github.com/juju/errors"
	"github.com/pg-sharding/shardpipe/pkg/shardlog"
)

// Command is one reversible in-memory mutation of MemQDB state.
type Command interface {
	Do() error
	Undo() error
}

type setCommand[T any] struct {
	m       map[string]T
	key     string
	value   T
	prev    T
	present bool
}

func newSetCommand[T any](m map[string]T, key string, value T) *setCommand[T] {
	return &setCommand[T]{m: m, key: key, value: value}
}

func (c *setCommand[T]) Do() error {
	c.prev, c.present = c.m[c.key]
	c.m[c.key] = c.value
	return nil
}

func (c *setCommand[T]) Undo() error {
	if c.present {
		c.m[c.key] = c.prev
	} else {
		delete(c.m, c.key)
	}
	return nil
}

type deleteCommand[T any] struct {
	m       map[string]T
	key     string
	prev    T
	present bool
}

func newDeleteCommand[T any](m map[string]T, key string) *deleteCommand[T] {
	return &deleteCommand[T]{m: m, key: key}
}

func (c *deleteCommand[T]) Do() error {
	c.prev, c.present = c.m[c.key]
	delete(c.m, c.key)
	return nil
}

func (c *deleteCommand[T]) Undo() error {
	if c.present {
		c.m[c.key] = c.prev
	}
	return nil
}

// executeCommands applies commands in order and persists the result with
// saver. On any failure the applied commands are undone in reverse order.
func executeCommands(saver func() error, commands ...Command) error {
	done := 0
	var err error
	for _, c := range commands {
		if err = c.Do(); err != nil {
			break
		}
		done++
	}
	if err == nil {
		err = saver()
	}
	if err == nil {
		return nil
	}

	shardlog.Zero.Info().Int("commands", done).Err(err).Msg("memqdb: undo commands")
	for i := done - 1; i >= 0; i-- {
		if undoErr := commands[i].Undo(); undoErr != nil {
			return errors.Annotatef(err, "failed to undo command: %s", undoErr)
		}
	}
	return err
}
