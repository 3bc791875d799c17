package main

import (
	"context"
	"sync"
)

// bulkWorkerCount is the fixed concurrency cap for bulk verification,
// chosen to avoid tripping downstream spam filters and exhausting
// local NAT state (spec.md §4.9/§5).
const bulkWorkerCount = 5

// BulkExecutor fans the single-address orchestrator out across a
// bounded worker pool, preserving input order in its output.
type BulkExecutor struct {
	orchestrator *RequestOrchestrator
}

func NewBulkExecutor(orchestrator *RequestOrchestrator) *BulkExecutor {
	return &BulkExecutor{orchestrator: orchestrator}
}

// VerifyAll evaluates every address in addresses, independently and
// with its own cache read/write, and returns results in input order.
// A single item's failure (e.g. an empty address) never aborts the
// batch — it surfaces as that item's own verdict.
func (e *BulkExecutor) VerifyAll(ctx context.Context, addresses []string) []Verdict {
	results := make([]Verdict, len(addresses))

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < bulkWorkerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = e.verifyOne(ctx, addresses[i])
			}
		}()
	}

	for i := range addresses {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (e *BulkExecutor) verifyOne(ctx context.Context, address string) Verdict {
	verdict, err := e.orchestrator.Verify(ctx, address)
	if err != nil {
		return Verdict{
			Email:     address,
			Status:    StatusInvalid,
			Reason:    err.Error(),
			Score:     0,
			Provider:  "Unknown",
			RiskLevel: RiskHigh,
			Checks:    CheckFlags{SMTPStatus: ProbeSkipped},
		}
	}
	return verdict
}
