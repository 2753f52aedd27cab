package loader

// MapOne aligns rows to keys for one-to-one lookups. Missing keys map to nil;
// when several rows share a key the last one wins.
func MapOne[K comparable, R any](keys []K, rows []R, keyFn func(R) K) []*R {
	index := make(map[K]*R, len(keys))
	for _, k := range keys {
		index[k] = nil
	}
	for i := range rows {
		k := keyFn(rows[i])
		if _, ok := index[k]; ok {
			index[k] = &rows[i]
		}
	}

	out := make([]*R, len(keys))
	for i, k := range keys {
		out[i] = index[k]
	}
	return out
}

// MapMany groups rows by key. Keys without rows map to an empty, non-nil
// slice. Row order within a group follows the input order.
func MapMany[K comparable, R any](keys []K, rows []R, keyFn func(R) K) [][]R {
	index := make(map[K][]R, len(keys))
	for _, k := range keys {
		index[k] = []R{}
	}
	for _, row := range rows {
		k := keyFn(row)
		if group, ok := index[k]; ok {
			index[k] = append(group, row)
		}
	}

	out := make([][]R, len(keys))
	for i, k := range keys {
		out[i] = index[k]
	}
	return out
}

// MapValues extracts one scalar per key, such as an aggregate count. Missing
// keys map to nil.
func MapValues[K comparable, R any, V any](keys []K, rows []R, keyFn func(R) K, valueFn func(R) V) []*V {
	index := make(map[K]*V, len(keys))
	for _, k := range keys {
		index[k] = nil
	}
	for _, row := range rows {
		k := keyFn(row)
		if _, ok := index[k]; ok {
			v := valueFn(row)
			index[k] = &v
		}
	}

	out := make([]*V, len(keys))
	for i, k := range keys {
		out[i] = index[k]
	}
	return out
}
