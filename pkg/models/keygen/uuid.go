package keygen

import (
	"context"

	gofrsuuid "github.com/gofrs/uuid"
	"github.com/google/uuid"
	"github.com/samborkent/uuidv7"
)

type uuidGenerator struct {
	typ  string
	next func() (string, error)
}

var _ Generator = &uuidGenerator{}

func NewUUIDGenerator(map[string]string) (Generator, error) {
	return &uuidGenerator{
		typ: TypeUUID,
		next: func() (string, error) {
			id, err := uuid.NewRandom()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}, nil
}

func NewUUIDV6Generator(map[string]string) (Generator, error) {
	return &uuidGenerator{
		typ: TypeUUIDV6,
		next: func() (string, error) {
			id, err := gofrsuuid.NewV6()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}, nil
}

func NewUUIDV7Generator(map[string]string) (Generator, error) {
	return &uuidGenerator{
		typ: TypeUUIDV7,
		next: func() (string, error) {
			return uuidv7.New().String(), nil
		},
	}, nil
}

func (g *uuidGenerator) Type() string {
	return g.typ
}

func (g *uuidGenerator) NextKeys(_ context.Context, n int) ([]any, error) {
	res := make([]any, n)
	for i := range res {
		id, err := g.next()
		if err != nil {
			return nil, err
		}
		res[i] = id
	}
	return res, nil
}
