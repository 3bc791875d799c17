package main

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestBulkExecutorPreservesInputOrder(t *testing.T) {
	log, _ := test.NewNullLogger()
	orchestrator := NewRequestOrchestrator(noopPipeline(), newMemoryVerdictStore(), log)
	executor := NewBulkExecutor(orchestrator)

	addresses := []string{
		"not-an-email",
		"user@nonexistent-domain-1.invalid",
		"",
		"user@nonexistent-domain-2.invalid",
	}

	results := executor.VerifyAll(context.Background(), addresses)

	if assert.Len(t, results, len(addresses)) {
		assert.Equal(t, StatusInvalid, results[0].Status, "bad syntax")
		assert.Equal(t, StatusInvalid, results[1].Status)
		assert.Equal(t, StatusInvalid, results[2].Status, "empty address surfaces as its own verdict")
		assert.Equal(t, StatusInvalid, results[3].Status)
		for i, address := range addresses {
			assert.Equal(t, address, results[i].Email, "result %d must belong to input %d", i, i)
		}
	}
}

func TestBulkExecutorIsolatesPerItemFailure(t *testing.T) {
	log, _ := test.NewNullLogger()
	orchestrator := NewRequestOrchestrator(noopPipeline(), newMemoryVerdictStore(), log)
	executor := NewBulkExecutor(orchestrator)

	results := executor.VerifyAll(context.Background(), []string{"", "user@nonexistent-domain.invalid"})

	assert.Equal(t, "", results[0].Email)
	assert.Equal(t, ErrEmailRequired.Error(), results[0].Reason)
	assert.NotEqual(t, ErrEmailRequired.Error(), results[1].Reason)
}
