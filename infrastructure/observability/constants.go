package observability

// Metric name prefixes
const (
	MetricPrefix = "wagernotify"
)

// Metric names
const (
	MutationsReceivedTotal = MetricPrefix + ".mutations.received_total"
	EventsHaltedTotal      = MetricPrefix + ".events.halted_total"
	DeliveriesTotal        = MetricPrefix + ".deliveries_total"
	PipelineDuration       = MetricPrefix + ".pipeline.duration"
)

// Label keys
const (
	LabelMutationKind = "mutation_kind"
	LabelEventType    = "event_type"
	LabelHaltReason   = "halt_reason"
	LabelMode         = "mode"
	LabelOutcome      = "outcome"
)

// Delivery outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Exporter types
const (
	ExporterConsole = "console"
	ExporterOTLP    = "otlp"
	ExporterNone    = "none"
)
