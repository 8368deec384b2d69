package metrics

import "time"

// DomainOperation records one domain store operation and its latency.
func DomainOperation(operation, status string, d time.Duration) {
	if !enabled {
		return
	}
	domainOperationTotal.WithLabelValues(operation, status).Inc()
	domainOperationTime.WithLabelValues(operation).Observe(d.Seconds())
}

// HistoryEntry records an appended history entry.
func HistoryEntry(action string) {
	if !enabled {
		return
	}
	historyEntriesTotal.WithLabelValues(action).Inc()
}

// PinOperation records a pin or unpin call.
func PinOperation(operation, status string) {
	if !enabled {
		return
	}
	pinOperationTotal.WithLabelValues(operation, status).Inc()
}

// ResolverQuery records a resolver lookup ("hit", "miss" or "not_found").
func ResolverQuery(result string) {
	if !enabled {
		return
	}
	resolverQueries.WithLabelValues(result).Inc()
}

// Status maps an error to a metric status label.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
