// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// KVEntryTable represents the 'kv_entry' table backing the synchronous key-value primitive.
type KVEntryTable struct {
	Table     string
	Key       string
	Value     string
	UpdatedAt string
}

// KVEntry is the schema definition for kv_entry
var KVEntry = KVEntryTable{
	Table:     "kv_entry",
	Key:       "key",
	Value:     "value",
	UpdatedAt: "updatedat",
}

func (t KVEntryTable) Columns() []string {
	return []string{t.Key, t.Value, t.UpdatedAt}
}
