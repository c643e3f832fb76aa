package service

import (
	"time"

	"wagernotify/events"
)

// HaltReason explains why a pipeline stopped before delivering anything
type HaltReason string

const (
	HaltNone         HaltReason = ""
	HaltMissingInput HaltReason = "missing_input"
	HaltInvalidInput HaltReason = "invalid_input"
	HaltIrrelevant   HaltReason = "irrelevant"
	HaltNoRecipients HaltReason = "no_recipients"
	HaltNoTokens     HaltReason = "no_tokens"
	HaltLookupFailed HaltReason = "lookup_failed"
	HaltDuplicate    HaltReason = "duplicate"
	HaltCancelled    HaltReason = "cancelled"
)

// DeliveryMode distinguishes shared multi-token sends from individual ones
type DeliveryMode string

const (
	DeliveryModeBatch  DeliveryMode = "batch"
	DeliveryModeSingle DeliveryMode = "single"
)

// Result describes what one pipeline invocation did. It is informational
// only; the pipeline never reports failure to the trigger host.
type Result struct {
	EventType  events.EventType
	Halted     HaltReason
	Recipients int
	Tokens     int
	Sent       int
	Failed     int
	Skipped    int
}

// Delivered reports whether the pipeline reached the dispatch step
func (r Result) Delivered() bool {
	return r.Halted == HaltNone && r.EventType != ""
}

type nopMetrics struct{}

func (nopMetrics) RecordMutationReceived(events.MutationKind)                {}
func (nopMetrics) RecordEventHalted(events.MutationKind, HaltReason)         {}
func (nopMetrics) RecordDelivery(events.EventType, DeliveryMode, int, int)   {}
func (nopMetrics) RecordPipelineDuration(events.MutationKind, time.Duration) {}
