// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import "strings"

// Match reports whether eventType matches pattern.
// "*" matches everything, "git.*" matches a prefix, "*.failed" a suffix.
func Match(eventType, pattern string) bool {
	if pattern == "" || eventType == "" {
		return false
	}
	switch {
	case pattern == "*", pattern == eventType:
		return true
	case strings.HasSuffix(pattern, ".*"):
		return strings.HasPrefix(eventType, strings.TrimSuffix(pattern, "*"))
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(eventType, strings.TrimPrefix(pattern, "*"))
	}
	return false
}
