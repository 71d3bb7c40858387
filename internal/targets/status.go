package targets

import (
	"fmt"
	"sort"
	"strings"
)

// Bucket is the normalized state of one target.
type Bucket string

const (
	Running    Bucket = "running"
	Restarting Bucket = "restarting"
	Paused     Bucket = "paused"
	Created    Bucket = "created"
	Stopped    Bucket = "stopped"
	Missing    Bucket = "missing"
	Unknown    Bucket = "unknown"
)

// Raw is the unnormalized per-target state as reported by the supervisor:
// a state token plus human-readable status text.
type Raw struct {
	State  string `json:"state"`
	Status string `json:"status"`
}

// Normalize maps a raw supervisor state into a bucket. Pattern rules, in
// order: explicit state token first, then status text heuristics.
func Normalize(raw Raw) Bucket {
	state := strings.ToLower(strings.TrimSpace(raw.State))
	status := strings.ToLower(strings.TrimSpace(raw.Status))

	switch state {
	case "restarting":
		return Restarting
	case "paused":
		return Paused
	case "created":
		return Created
	case "exited", "dead", "stopped":
		return Stopped
	}

	switch {
	case strings.Contains(status, "restarting"):
		return Restarting
	case strings.Contains(status, "paused"):
		return Paused
	case strings.HasPrefix(status, "up"):
		return Running
	case strings.Contains(status, "exited"):
		return Stopped
	case strings.Contains(status, "created"):
		return Created
	case state == "running":
		return Running
	}
	return Unknown
}

// Report lists each known target's bucket plus a summary count line.
// Targets absent from the live snapshot are reported as missing.
func Report(known []string, snapshot map[string]Raw) string {
	counts := make(map[Bucket]int)
	var b strings.Builder

	for _, name := range known {
		raw, ok := snapshot[name]
		bucket := Missing
		if ok {
			bucket = Normalize(raw)
		}
		counts[bucket]++
		fmt.Fprintf(&b, "%s: %s\n", name, bucket)
	}

	buckets := make([]string, 0, len(counts))
	for bucket := range counts {
		buckets = append(buckets, string(bucket))
	}
	sort.Strings(buckets)

	parts := make([]string, 0, len(buckets))
	for _, bucket := range buckets {
		parts = append(parts, fmt.Sprintf("%s %d", bucket, counts[Bucket(bucket)]))
	}
	fmt.Fprintf(&b, "total %d (%s)", len(known), strings.Join(parts, ", "))
	return b.String()
}
