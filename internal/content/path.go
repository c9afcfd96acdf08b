/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package content

import (
	"strconv"
	"strings"
)

// Semantics paths use dotted keys with bracketed list indices, e.g.
// "interactiveVideo.assets.interactions[2].action.params.file".

// JoinPath appends a key segment
func JoinPath(base, key string) string {
	if base == "" {
		return key
	}
	if key == "" {
		return base
	}
	return base + "." + key
}

// IndexPath appends a list index segment
func IndexPath(base string, index int) string {
	return base + "[" + strconv.Itoa(index) + "]"
}

// ParentPath strips the last segment (a key or an index)
func ParentPath(path string) string {
	if strings.HasSuffix(path, "]") {
		if i := strings.LastIndex(path, "["); i >= 0 {
			return path[:i]
		}
	}
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[:i]
	}
	return ""
}

// SiblingPath replaces the last key of path with key
func SiblingPath(path, key string) string {
	return JoinPath(ParentPath(path), key)
}

// Lookup resolves a semantics path inside a generic value
func Lookup(root any, path string) (any, bool) {
	cur := root
	if path == "" {
		return cur, cur != nil
	}

	for _, seg := range strings.Split(path, ".") {
		key, indices := splitIndices(seg)
		if key != "" {
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			if cur, ok = obj[key]; !ok {
				return nil, false
			}
		}
		for _, idx := range indices {
			list, ok := cur.([]any)
			if !ok || idx < 0 || idx >= len(list) {
				return nil, false
			}
			cur = list[idx]
		}
	}
	return cur, true
}

// LookupString resolves path and returns it when it is a string
func LookupString(root any, path string) (string, bool) {
	v, ok := Lookup(root, path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func splitIndices(seg string) (string, []int) {
	open := strings.Index(seg, "[")
	if open < 0 {
		return seg, nil
	}

	key := seg[:open]
	var indices []int
	rest := seg[open:]
	for strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			break
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil {
			// Keep an impossible index so the lookup fails instead of matching the wrong element
			n = -1
		}
		indices = append(indices, n)
		rest = rest[end+1:]
	}
	return key, indices
}
