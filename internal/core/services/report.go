package services

import (
	"sync"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/logger"
)

// reporter aggregates classification counts, per-document failures and
// commit progress for one run. It is the only structure shared between
// the classification loop and the stage workers besides the queues, so
// all mutation goes through its mutex.
type reporter struct {
	mu        sync.Mutex
	counts    domain.RunCounts
	failures  []domain.Failure
	committed int
}

func newReporter() *reporter {
	return &reporter{}
}

// classified records a classification outcome.
func (r *reporter) classified(c domain.Classification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts.Seen++
	switch c {
	case domain.ClassNew:
		r.counts.New++
	case domain.ClassChanged:
		r.counts.Changed++
	case domain.ClassUnchanged:
		r.counts.Unchanged++
	case domain.ClassDeleted:
		r.counts.Deleted++
	}
}

// failed records a per-document failure caught at a stage boundary.
func (r *reporter) failed(documentID, stage string, err error) {
	logger.Warn("document %s failed at %s: %v", documentID, stage, err)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts.Failed++
	r.failures = append(r.failures, domain.Failure{
		DocumentID: documentID,
		Stage:      stage,
		Kind:       domain.ErrorKind(err),
		Message:    err.Error(),
	})
}

// committedOne records a successful full-pipeline commit.
func (r *reporter) committedOne() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed++
}

// snapshot copies the current totals into a run report.
func (r *reporter) snapshot() (domain.RunCounts, []domain.Failure, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	failures := make([]domain.Failure, len(r.failures))
	copy(failures, r.failures)
	return r.counts, failures, r.committed
}
