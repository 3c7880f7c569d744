// Package strings normalizes list-valued configuration strings.
package strings

import "strings"

// SplitCSV splits a comma-separated value into its entries, trimming
// whitespace and dropping empties and duplicates. First occurrence wins, so
// order is stable.
//
//	SplitCSV("kafka-1:9092, kafka-2:9092,,kafka-1:9092")
//	// ["kafka-1:9092", "kafka-2:9092"]
func SplitCSV(value string) []string {
	parts := strings.Split(value, ",")
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
