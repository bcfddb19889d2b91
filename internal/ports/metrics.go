package ports

type Metrics interface {
	ObserveVoteOutcome(code string)
	ObserveBiometricAttempt(outcome string)
	ObserveSchedulerTick(result string)
	SetSchedulerConsecutiveFailures(count int)
	ObserveNotification(result string)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) ObserveVoteOutcome(string)           {}
func (NopMetrics) ObserveBiometricAttempt(string)      {}
func (NopMetrics) ObserveSchedulerTick(string)         {}
func (NopMetrics) SetSchedulerConsecutiveFailures(int) {}
func (NopMetrics) ObserveNotification(string)          {}
