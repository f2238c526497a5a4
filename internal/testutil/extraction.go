package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// FakeExtractionService is an in-process extraction service returning a
// canned JSON response per rule name.
type FakeExtractionService struct {
	Server *httptest.Server

	mu        sync.Mutex
	responses map[string]string
	calls     []string
}

// NewFakeExtractionService starts the fake service; it is shut down when
// the test finishes. Rules without a canned response get an empty results
// list.
func NewFakeExtractionService(t *testing.T) *FakeExtractionService {
	t.Helper()

	f := &FakeExtractionService{
		responses: make(map[string]string),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Server.Close)
	return f
}

// Respond sets the raw JSON response returned for the given rule name.
func (f *FakeExtractionService) Respond(ruleName, rawJSON string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[ruleName] = rawJSON
}

// Calls returns the rule names received so far, in order.
func (f *FakeExtractionService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeExtractionService) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Parser struct {
			Name string `json:"name"`
		} `json:"parser"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.calls = append(f.calls, req.Parser.Name)
	response, ok := f.responses[req.Parser.Name]
	f.mu.Unlock()

	if !ok {
		response = `{"results": []}`
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(response))
}
