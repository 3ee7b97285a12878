package util

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/runtime/schema"
)

// DefaultGVKPattern is used when neither the flag nor GVK_PATTERN is set.
const DefaultGVKPattern = "v1/ConfigMap;v1/Secret"

// ParseGVKs parses a semicolon-separated list of "version/Kind" or
// "group/version/Kind" entries. Invalid entries and duplicates are skipped;
// an error is returned when nothing valid remains.
func ParseGVKs(pattern string) ([]schema.GroupVersionKind, error) {
	var gvks []schema.GroupVersionKind
	seen := map[schema.GroupVersionKind]bool{}
	for entry := range strings.SplitSeq(pattern, ";") {
		gvk, ok := parseGVK(strings.TrimSpace(entry))
		if !ok || seen[gvk] {
			continue
		}
		seen[gvk] = true
		gvks = append(gvks, gvk)
	}
	if len(gvks) == 0 {
		return nil, fmt.Errorf("no valid watched GVKs specified")
	}
	return gvks, nil
}

func parseGVK(entry string) (schema.GroupVersionKind, bool) {
	var gvk schema.GroupVersionKind
	switch parts := strings.Split(entry, "/"); len(parts) {
	case 2:
		gvk.Version, gvk.Kind = parts[0], parts[1]
	case 3:
		gvk.Group, gvk.Version, gvk.Kind = parts[0], parts[1], parts[2]
	default:
		return gvk, false
	}
	return gvk, gvk.Version != "" && gvk.Kind != ""
}

// FormatGVKs renders gvks back into the pattern syntax.
func FormatGVKs(gvks []schema.GroupVersionKind) string {
	entries := make([]string, 0, len(gvks))
	for _, gvk := range gvks {
		if gvk.Group == "" {
			entries = append(entries, gvk.Version+"/"+gvk.Kind)
			continue
		}
		entries = append(entries, gvk.Group+"/"+gvk.Version+"/"+gvk.Kind)
	}
	return strings.Join(entries, ";")
}
