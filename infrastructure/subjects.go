package infrastructure

import (
	"strings"

	"wagernotify/events"
)

const (
	// DocumentStream is the JetStream stream carrying document mutations
	DocumentStream = "document_changes"

	subjectPrefix = "documents."
)

// SubjectForKind returns the subject mutations of kind are published on
func SubjectForKind(kind events.MutationKind) string {
	return subjectPrefix + string(kind)
}

// KindForSubject converts a subject back to its mutation kind
func KindForSubject(subject string) (events.MutationKind, bool) {
	name, ok := strings.CutPrefix(subject, subjectPrefix)
	if !ok {
		return "", false
	}
	kind := events.MutationKind(name)
	return kind, kind.IsKnown()
}

// AllSubjects returns every subject the consumer listens on
func AllSubjects() []string {
	kinds := events.AllMutationKinds()
	subjects := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		subjects = append(subjects, SubjectForKind(kind))
	}
	return subjects
}
