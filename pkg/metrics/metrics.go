// Package metrics holds the Prometheus collectors exported by the settlement
// services. Every constructor tolerates a nil registerer and every recorder
// tolerates a nil receiver, so callers never guard on wiring.
package metrics

// Namespace prefixes every exported series.
const Namespace = "settlement"

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
