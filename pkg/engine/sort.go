package engine

import "sort"

// SortKey is one ORDER BY item over a row of values.
type SortKey struct {
	Index      int
	Desc       bool
	NullsFirst bool
}

// CompareWithNulls orders two possibly nil values. Null placement follows
// nullsFirst regardless of the sort direction.
func CompareWithNulls(l, r any, desc bool, nullsFirst bool, op Operator) (int, error) {
	switch {
	case l == nil && r == nil:
		return 0, nil
	case l == nil:
		if nullsFirst {
			return -1, nil
		}
		return 1, nil
	case r == nil:
		if nullsFirst {
			return 1, nil
		}
		return -1, nil
	}
	c, err := op.Compare(l, r)
	if err != nil {
		return 0, err
	}
	if desc {
		return -c, nil
	}
	return c, nil
}

// CompareRows compares two rows key by key.
func CompareRows(l, r []any, keys []SortKey, op Operator) (int, error) {
	for _, k := range keys {
		c, err := CompareWithNulls(l[k.Index], r[k.Index], k.Desc, k.NullsFirst, op)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c, nil
		}
	}
	return 0, nil
}

type SortableWithContext struct {
	Data [][]any
	Keys []SortKey
	Op   Operator
	Err  error
}

func (a *SortableWithContext) Len() int      { return len(a.Data) }
func (a *SortableWithContext) Swap(i, j int) { a.Data[i], a.Data[j] = a.Data[j], a.Data[i] }
func (a *SortableWithContext) Less(i, j int) bool {
	c, err := CompareRows(a.Data[i], a.Data[j], a.Keys, a.Op)
	if err != nil && a.Err == nil {
		a.Err = err
	}
	return c < 0
}

// SortRows stable-sorts rows in place by keys.
func SortRows(rows [][]any, keys []SortKey, op Operator) error {
	sortable := &SortableWithContext{Data: rows, Keys: keys, Op: op}
	sort.Stable(sortable)
	return sortable.Err
}
