package hint

import (
	"strings"
	"unicode"

	"golang.org/x/xerrors"
)

func skipSpaces(s string, i int) int {
	for i < len(s) && unicode.IsSpace(rune(s[i])) {
		i++
	}
	return i
}

/*
ParseComment parses
key: value[, key1: value1...]
Values run up to the next space or comma.
*/
func ParseComment(comm string) (map[string]string, error) {
	opts := make(map[string]string)

	for i := skipSpaces(comm, 0); i < len(comm); i = skipSpaces(comm, i) {
		j := i
		for j < len(comm) && comm[j] != ':' && !unicode.IsSpace(rune(comm[j])) {
			j++
		}
		if j == len(comm) {
			return nil, xerrors.New("invalid comment format")
		}
		name := comm[i:j]
		if name == "" {
			return nil, xerrors.New("invalid comment format: empty option name")
		}

		j = skipSpaces(comm, j)
		if j == len(comm) || comm[j] != ':' {
			return nil, xerrors.Errorf("invalid comment format: expected colon after option %q", name)
		}
		j = skipSpaces(comm, j+1)
		if j == len(comm) {
			return nil, xerrors.Errorf("invalid comment format: empty value of option %q", name)
		}

		valStart := j
		for j < len(comm) && !unicode.IsSpace(rune(comm[j])) && comm[j] != ',' {
			j++
		}
		if j == valStart {
			return nil, xerrors.Errorf("invalid comment format: empty value of option %q", name)
		}
		opts[strings.ToLower(name)] = comm[valStart:j]

		j = skipSpaces(comm, j)
		if j < len(comm) && comm[j] != ',' {
			return nil, xerrors.New("invalid comment format: expected comma after not-last key-value pair")
		}
		i = j + 1
	}

	return opts, nil
}
