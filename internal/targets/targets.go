// Package targets names the supervised services relaybot manages and
// normalizes their supervisor state into a fixed bucket set. The restart
// handler and the status reporter operate over the same target list.
package targets

// Known returns the managed service targets, in report order.
func Known() []string {
	return []string{"hub", "scheduler", "worker", "blog-sync", "sheet-sync"}
}

// IsKnown reports whether name is a managed target.
func IsKnown(name string) bool {
	for _, t := range Known() {
		if t == name {
			return true
		}
	}
	return false
}
