package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	log, _ := test.NewNullLogger()
	orchestrator := NewRequestOrchestrator(noopPipeline(), newMemoryVerdictStore(), log)
	bulk := NewBulkExecutor(orchestrator)
	limiter := NewRateLimiter(nil, log)
	return NewServer(orchestrator, bulk, limiter, log, "")
}

func TestHandleVerifyRequiresEmail(t *testing.T) {
	server := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Email is required", body.Error)
}

func TestHandleVerifyReturnsVerdict(t *testing.T) {
	server := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBufferString(`{"email":"not-an-email"}`))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var v Verdict
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, StatusInvalid, v.Status)
}

func TestHandleBulkVerifyRequiresNonEmptyList(t *testing.T) {
	server := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/bulk-verify", bytes.NewBufferString(`{"emails":[]}`))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBulkVerifyReturnsCountAndResults(t *testing.T) {
	server := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/bulk-verify", bytes.NewBufferString(`{"emails":["a","not-an-email"]}`))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body bulkVerifyResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Results, 2)
}

func TestHandleHealthz(t *testing.T) {
	server := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitExceededReturns429(t *testing.T) {
	log, _ := test.NewNullLogger()
	orchestrator := NewRequestOrchestrator(noopPipeline(), newMemoryVerdictStore(), log)
	bulk := NewBulkExecutor(orchestrator)
	limiter := NewRateLimiter(nil, log)
	server := NewServer(orchestrator, bulk, limiter, log, "")

	var lastCode int
	for i := 0; i < 35; i++ {
		req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBufferString(`{"email":"user@nonexistent-domain.invalid"}`))
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode, "the /verify bucket burst is 30/minute")
}

func TestCORSMiddlewareSetsHeaders(t *testing.T) {
	server := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
