package engine

import (
	"fmt"
	"strings"
)

const groupKeySep = ":-:"

// GroupKey builds the grouping key of row over the given column indexes.
// Values are normalized first so that 1 and int64(1) fall into one group.
func GroupKey(row []any, indexes []int) string {
	var sb strings.Builder
	for _, idx := range indexes {
		v := Normalize(row[idx])
		switch b := v.(type) {
		case nil:
			sb.WriteString("<nil>")
		case []byte:
			fmt.Fprintf(&sb, "string:%s", string(b))
		default:
			fmt.Fprintf(&sb, "%T:%v", v, v)
		}
		sb.WriteString(groupKeySep)
	}
	return sb.String()
}
