package metrics

import "time"

// Job lifecycle helpers. Every JobStarted must be paired with exactly one of
// JobCompleted or JobFailed so the in-flight gauge returns to zero.

func JobStarted(jobType string) {
	JobsInFlight.WithLabelValues(jobType).Inc()
}

func JobCompleted(jobType string, took time.Duration) {
	finishJob(jobType, "completed")
	JobDuration.WithLabelValues(jobType).Observe(took.Seconds())
}

func JobFailed(jobType string) {
	finishJob(jobType, "failed")
}

// JobRetried counts a failure that will be attempted again.
func JobRetried(jobType string) {
	JobRetriesTotal.WithLabelValues(jobType).Inc()
}

func finishJob(jobType, outcome string) {
	JobsInFlight.WithLabelValues(jobType).Dec()
	JobsTotal.WithLabelValues(jobType, outcome).Inc()
}
