package ledger

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordMutation(string, int64) {}
func (n *NoopMetricsCollector) RecordRetry(string, int)      {}
func (n *NoopMetricsCollector) RecordError(string, string)   {}
