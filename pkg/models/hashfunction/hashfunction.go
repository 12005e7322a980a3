package hashfunction

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/go-faster/city"
	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"
)

type HashFunctionType int

/* Pre-defined hash functions */
const (
	HashFunctionIdent  = HashFunctionType(0)
	HashFunctionMurmur = HashFunctionType(1)
	HashFunctionCity   = HashFunctionType(2)
)

var (
	errUnknownValueType = func(v any, hf HashFunctionType) error {
		return fmt.Errorf("unknown type of value that the hash will be calculated from: %T for %s hash type", v, ToString(hf))
	}
)

// EncodeUInt64 encodes input as uvarint into a fixed 8 byte buffer,
// or 10 bytes for values that do not fit into 56 bits.
func EncodeUInt64(input uint64) []byte {
	const ENCODING_BYTES_BIG = binary.MaxVarintLen64
	const ENCODING_BYTES = 8
	const BOUND = 1 << 56 /* 72057594037927936 */

	sz := ENCODING_BYTES
	if input >= BOUND {
		sz = ENCODING_BYTES_BIG
	}

	buf := make([]byte, sz)
	binary.PutUvarint(buf, input)
	return buf
}

// hashInput converts a sharding value to the bytes fed to a hash function.
// UUID strings are canonicalized so that case does not change the shard.
func hashInput(input any, hf HashFunctionType) ([]byte, error) {
	switch v := input.(type) {
	case int64:
		return EncodeUInt64(uint64(v)), nil
	case int:
		return EncodeUInt64(uint64(v)), nil
	case int32:
		return EncodeUInt64(uint64(v)), nil
	case uint64:
		return EncodeUInt64(v), nil
	case []byte:
		return v, nil
	case string:
		if u, err := uuid.Parse(v); err == nil && len(v) == 36 {
			return []byte(u.String()), nil
		}
		return []byte(v), nil
	default:
		return nil, errUnknownValueType(input, hf)
	}
}

func ApplyMurmurHashFunction(input any) (uint32, error) {
	buf, err := hashInput(input, HashFunctionMurmur)
	if err != nil {
		return 0, err
	}
	return murmur3.Sum32(buf), nil
}

func ApplyCityHashFunction(input any) (uint32, error) {
	buf, err := hashInput(input, HashFunctionCity)
	if err != nil {
		return 0, err
	}
	return city.Hash32(buf), nil
}

// ApplyHashFunction maps a sharding value to an unsigned integer used by
// modulo based algorithms. Identity accepts integers only.
func ApplyHashFunction(input any, hf HashFunctionType) (uint64, error) {
	switch hf {
	case HashFunctionIdent:
		switch v := input.(type) {
		case int64:
			if v < 0 {
				return uint64(-v), nil
			}
			return uint64(v), nil
		case int:
			if v < 0 {
				return uint64(-v), nil
			}
			return uint64(v), nil
		case uint64:
			return v, nil
		default:
			return 0, errUnknownValueType(input, hf)
		}
	case HashFunctionMurmur:
		v, err := ApplyMurmurHashFunction(input)
		return uint64(v), err
	case HashFunctionCity:
		v, err := ApplyCityHashFunction(input)
		return uint64(v), err
	default:
		return 0, fmt.Errorf("unknown hash function type: %d", hf)
	}
}

// HashFunctionByName returns the hash function registered under hfn.
func HashFunctionByName(hfn string) (HashFunctionType, error) {
	switch strings.ToLower(hfn) {
	case "identity", "ident", "":
		return HashFunctionIdent, nil
	case "murmur":
		return HashFunctionMurmur, nil
	case "city":
		return HashFunctionCity, nil
	default:
		return 0, fmt.Errorf("unknown hash function type: %s", hfn)
	}
}

func ToString(hf HashFunctionType) string {
	switch hf {
	case HashFunctionIdent:
		return "identity"
	case HashFunctionMurmur:
		return "murmur"
	case HashFunctionCity:
		return "city"
	}
	return ""
}
