package rewrite

import (
	"sort"
	"strings"

	"github.com/pg-sharding/shardpipe/pkg/shardlog"
	"github.com/pg-sharding/shardpipe/router/route"
)

// SortTokens orders tokens by span. Of tokens sharing the exact same span
// only the first one is kept.
func SortTokens(tokens []Token) []Token {
	sorted := make([]Token, len(tokens))
	copy(sorted, tokens)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start() != sorted[j].Start() {
			return sorted[i].Start() < sorted[j].Start()
		}
		return sorted[i].Stop() < sorted[j].Stop()
	})

	res := make([]Token, 0, len(sorted))
	for _, t := range sorted {
		if n := len(res); n > 0 && t.Start() == res[n-1].Start() && t.Stop() == res[n-1].Stop() {
			continue
		}
		res = append(res, t)
	}
	return res
}

// Render substitutes tokens into sql for one unit. Text between tokens is
// copied verbatim.
func Render(sql string, tokens []Token, unit *route.RouteUnit) string {
	var sb strings.Builder
	pos := 0
	for _, t := range SortTokens(tokens) {
		if t.Start() < pos || t.Start() > len(sql) || t.Stop() >= len(sql) {
			shardlog.Zero.Debug().
				Int("start", t.Start()).
				Int("stop", t.Stop()).
				Msg("skip overlapping or out of range token")
			continue
		}
		sb.WriteString(sql[pos:t.Start()])
		sb.WriteString(t.Render(unit))
		pos = t.Stop() + 1
	}
	sb.WriteString(sql[pos:])
	return sb.String()
}
