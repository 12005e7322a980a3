package hashfunction_test

import (
	"testing"

	"github.com/pg-sharding/shardpipe/pkg/models/hashfunction"
	"github.com/stretchr/testify/assert"
)

func TestEncodeUInt64(t *testing.T) {
	tests := []struct {
		name     string
		inp      uint64
		expected []byte
	}{
		{"Zero value", 0, []byte{0, 0, 0, 0, 0, 0, 0, 0}},
		{"Power of two: 2^7", 128, []byte{128, 1, 0, 0, 0, 0, 0, 0}},
		{"Arbitrary number: 12345", 12345, []byte{185, 96, 0, 0, 0, 0, 0, 0}},
		{"Maximum 56-bit - 1 value", 1<<56 - 1, []byte{255, 255, 255, 255, 255, 255, 255, 127}},
		{"56-bit boundary", 1 << 56, []byte{128, 128, 128, 128, 128, 128, 128, 128, 1, 0}},
		{"Large number: 2^63", 1 << 63, []byte{128, 128, 128, 128, 128, 128, 128, 128, 128, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, hashfunction.EncodeUInt64(tt.inp))
		})
	}
}

func TestApplyHashFunction(t *testing.T) {
	assert := assert.New(t)

	v, err := hashfunction.ApplyHashFunction(int64(7), hashfunction.HashFunctionIdent)
	assert.NoError(err)
	assert.Equal(uint64(7), v)

	v, err = hashfunction.ApplyHashFunction(int64(-7), hashfunction.HashFunctionIdent)
	assert.NoError(err)
	assert.Equal(uint64(7), v)

	_, err = hashfunction.ApplyHashFunction("abc", hashfunction.HashFunctionIdent)
	assert.Error(err)

	for _, hf := range []hashfunction.HashFunctionType{hashfunction.HashFunctionMurmur, hashfunction.HashFunctionCity} {
		a, err := hashfunction.ApplyHashFunction(int64(100500), hf)
		assert.NoError(err)
		b, err := hashfunction.ApplyHashFunction(100500, hf)
		assert.NoError(err)
		assert.Equal(a, b, "int and int64 hash equally for %s", hashfunction.ToString(hf))

		s1, err := hashfunction.ApplyHashFunction("abc", hf)
		assert.NoError(err)
		s2, err := hashfunction.ApplyHashFunction([]byte("abc"), hf)
		assert.NoError(err)
		assert.Equal(s1, s2)

		u1, err := hashfunction.ApplyHashFunction("0b5c0c4a-5d58-4c0b-9f3e-6c4b3f1e2a7d", hf)
		assert.NoError(err)
		u2, err := hashfunction.ApplyHashFunction("0B5C0C4A-5D58-4C0B-9F3E-6C4B3F1E2A7D", hf)
		assert.NoError(err)
		assert.Equal(u1, u2, "uuid case must not change the hash")

		_, err = hashfunction.ApplyHashFunction(3.14, hf)
		assert.Error(err)
	}
}

func TestHashFunctionByName(t *testing.T) {
	assert := assert.New(t)

	type tcase struct {
		name string
		exp  hashfunction.HashFunctionType
		err  bool
	}

	for _, tt := range []tcase{
		{name: "", exp: hashfunction.HashFunctionIdent},
		{name: "ident", exp: hashfunction.HashFunctionIdent},
		{name: "murmur", exp: hashfunction.HashFunctionMurmur},
		{name: "CITY", exp: hashfunction.HashFunctionCity},
		{name: "sha1", err: true},
	} {
		hf, err := hashfunction.HashFunctionByName(tt.name)
		if tt.err {
			assert.Error(err, "name %s", tt.name)
			continue
		}
		assert.NoError(err, "name %s", tt.name)
		assert.Equal(tt.exp, hf, "name %s", tt.name)
	}
}
