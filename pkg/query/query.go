// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package query parses list-valued query parameters.
package query

import "strings"

// StringSlice splits a comma-separated value into trimmed, non-empty parts,
// e.g. "Action, Romance," becomes ["Action", "Romance"].
func StringSlice(val string) []string {
	if val == "" {
		return nil
	}

	var res []string
	for _, v := range strings.Split(val, ",") {
		if clean := strings.TrimSpace(v); clean != "" {
			res = append(res, clean)
		}
	}
	return res
}
