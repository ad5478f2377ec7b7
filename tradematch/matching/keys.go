package matching

import "strings"

// DirectKey builds the cache key for a two-party match. The pair is unordered
// so both orientations map to the same record.
func DirectKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return "direct:" + userA + ":" + userB
}

// CycleKey builds the cache key for a trade cycle: the canonical rotation
// joined by ':'. The same cycle discovered from any of its participants keys
// to the same record.
func CycleKey(participants []string) string {
	return "tri:" + strings.Join(canonicalRotation(participants), ":")
}

// canonicalRotation rotates a cycle so it starts at the lexicographically
// smallest participant id, preserving traversal order.
func canonicalRotation(participants []string) []string {
	n := len(participants)
	if n == 0 {
		return nil
	}

	minIdx := 0
	for i := 1; i < n; i++ {
		if participants[i] < participants[minIdx] {
			minIdx = i
		}
	}

	rotated := make([]string, n)
	for i := 0; i < n; i++ {
		rotated[i] = participants[(minIdx+i)%n]
	}
	return rotated
}
