// Package metrics records statistics about graph construction and test result
// interpretation. Because we run as a transient process we can't wait around for
// Prometheus to scrape us; if configured, the metrics are pushed to a pushgateway
// on the way out instead.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/op/go-logging.v1"
)

var log = logging.MustGetLogger("metrics")

// registry is private to us rather than the default one, so pushes only contain our metrics.
var registry = prometheus.NewRegistry()

var rulesConstructed = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "rules_constructed",
	Help: "Count of build rules constructed, by rule type",
}, []string{"type"})

var ruleFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "rule_construction_failures",
	Help: "Count of build rules that failed to be constructed, by rule type",
}, []string{"type"})

var constructionHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "rule_construction_durations_histogram",
	Help:    "Durations of constructing individual build rules",
	Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
}, []string{"type"})

var testResults = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "test_results_interpreted",
	Help: "Count of test results interpreted, by outcome",
}, []string{"outcome"})

func init() {
	registry.MustRegister(rulesConstructed, ruleFailures, constructionHistogram, testResults)
}

// Test result outcomes.
const (
	Passed  = "passed"
	Failed  = "failed"
	Skipped = "skipped"
	Errored = "errored"
)

// RuleConstructed records the successful construction of a rule of the given type.
func RuleConstructed(ruleType string, duration time.Duration) {
	rulesConstructed.WithLabelValues(ruleType).Inc()
	constructionHistogram.WithLabelValues(ruleType).Observe(duration.Seconds())
	markUpdated()
}

// RuleConstructionFailed records a failure to construct a rule of the given type.
func RuleConstructionFailed(ruleType string) {
	ruleFailures.WithLabelValues(ruleType).Inc()
	markUpdated()
}

// TestResultsInterpreted records a number of test cases with the given outcome.
func TestResultsInterpreted(outcome string, count int) {
	if count > 0 {
		testResults.WithLabelValues(outcome).Add(float64(count))
		markUpdated()
	}
}

// Gatherer returns the gatherer for our metrics.
func Gatherer() prometheus.Gatherer {
	return registry
}
