// Package testutil provides testing utilities for the match collector.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for one mock API response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RequestRecord is one request seen by the mock server.
type RequestRecord struct {
	Path   string
	APIKey string
	At     time.Time
}

// MockAPI is a configurable mock match-v5 server. Each path serves a scripted
// sequence of responses; the last response repeats once the script runs out.
type MockAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	scripts  map[string][]MockResponse
	served   map[string]int
	requests []RequestRecord
}

// NewMockAPI creates and starts a mock server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		scripts: make(map[string][]MockResponse),
		served:  make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL, usable as an Endpoints base URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// SetSequence scripts the responses served for a path, in order.
func (m *MockAPI) SetSequence(path string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[path] = responses
	m.served[path] = 0
}

// SetResponse scripts a single repeating response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetSequence(path, resp)
}

// RequestCount returns the number of requests received for a path,
// or for all paths when path is empty.
func (m *MockAPI) RequestCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if path == "" {
		return len(m.requests)
	}
	n := 0
	for _, r := range m.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

// Requests returns every request received, ordered by arrival.
func (m *MockAPI) Requests() []RequestRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]RequestRecord(nil), m.requests...)
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

func (m *MockAPI) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, RequestRecord{
		Path:   r.URL.Path,
		APIKey: r.URL.Query().Get("api_key"),
		At:     time.Now(),
	})
	script, ok := m.scripts[r.URL.Path]
	var resp MockResponse
	if ok && len(script) > 0 {
		idx := m.served[r.URL.Path]
		if idx >= len(script) {
			idx = len(script) - 1
		}
		resp = script[idx]
		m.served[r.URL.Path]++
	}
	m.mu.Unlock()

	if !ok {
		resp = NewNotFoundResponse()
	}

	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewOKResponse creates a 200 OK JSON response.
func NewOKResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json;charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 response with a Retry-After header
// (omitted when retryAfter is empty).
func NewRateLimitResponse(retryAfter string) MockResponse {
	headers := map[string]string{"Content-Type": "application/json;charset=utf-8"}
	if retryAfter != "" {
		headers["Retry-After"] = retryAfter
	}
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status":{"message":"Rate limit exceeded","status_code":429}}`,
		Headers:    headers,
	}
}

// NewServerErrorResponse creates a 503 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       `{"status":{"message":"Service unavailable","status_code":503}}`,
		Headers:    map[string]string{"Content-Type": "application/json;charset=utf-8"},
	}
}

// NewForbiddenResponse creates a 403 response as sent for an expired key.
func NewForbiddenResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"status":{"message":"Forbidden","status_code":403}}`,
		Headers:    map[string]string{"Content-Type": "application/json;charset=utf-8"},
	}
}

// NewNotFoundResponse creates a 404 response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"status":{"message":"Data not found - match file not found","status_code":404}}`,
		Headers:    map[string]string{"Content-Type": "application/json;charset=utf-8"},
	}
}

// MatchPath returns the request path of a match payload.
func MatchPath(matchID string) string {
	return "/lol/match/v5/matches/" + matchID
}

// TimelinePath returns the request path of a timeline payload.
func TimelinePath(matchID string) string {
	return "/lol/match/v5/matches/" + matchID + "/timeline"
}

// MatchIDsPath returns the request path listing a player's match ids.
func MatchIDsPath(puuid string) string {
	return "/lol/match/v5/matches/by-puuid/" + puuid + "/ids"
}

// ClassicMatchJSON builds a CLASSIC match payload with ten participants.
// Participant i has puuid "<matchID>-p<i>" and the given positions in order.
func ClassicMatchJSON(matchID string) string {
	return MatchJSON(matchID, "CLASSIC", []string{
		"TOP", "JUNGLE", "MIDDLE", "BOTTOM", "UTILITY",
		"TOP", "JUNGLE", "MIDDLE", "BOTTOM", "UTILITY",
	})
}

// MatchJSON builds a match payload for the given game mode and positions.
func MatchJSON(matchID, gameMode string, positions []string) string {
	puuids := make([]string, 10)
	participants := make([]string, 10)
	for i := 0; i < 10; i++ {
		puuids[i] = fmt.Sprintf("%q", fmt.Sprintf("%s-p%d", matchID, i+1))
		position := ""
		if i < len(positions) {
			position = positions[i]
		}
		participants[i] = fmt.Sprintf(`{"participantId":%d,"puuid":"%s-p%d","championName":"Champ%d","teamPosition":%q}`,
			i+1, matchID, i+1, i+1, position)
	}
	return fmt.Sprintf(`{"metadata":{"matchId":%q,"participants":[%s]},"info":{"gameMode":%q,"participants":[%s]}}`,
		matchID, strings.Join(puuids, ","), gameMode, strings.Join(participants, ","))
}

// TimelineJSON builds a timeline payload with the given number of frames.
// Participants 1-5 start in the bottom-left base, 6-10 in the top-right base,
// and every later frame moves everyone one step toward the centre.
func TimelineJSON(matchID string, frames int) string {
	puuids := make([]string, 10)
	for i := 0; i < 10; i++ {
		puuids[i] = fmt.Sprintf("%q", fmt.Sprintf("%s-p%d", matchID, i+1))
	}

	frameJSON := make([]string, 0, frames)
	for f := 0; f < frames; f++ {
		entries := make([]string, 0, 10)
		for pid := 1; pid <= 10; pid++ {
			x, y := 500+f*100, 500+f*100
			if pid > 5 {
				x, y = 14000-f*100, 14000-f*100
			}
			entries = append(entries, fmt.Sprintf(`"%d":{"participantId":%d,"position":{"x":%d,"y":%d}}`, pid, pid, x, y))
		}
		frameJSON = append(frameJSON, fmt.Sprintf(`{"timestamp":%d,"participantFrames":{%s}}`, f*60000, strings.Join(entries, ",")))
	}

	return fmt.Sprintf(`{"metadata":{"matchId":%q,"participants":[%s]},"info":{"frameInterval":60000,"frames":[%s]}}`,
		matchID, strings.Join(puuids, ","), strings.Join(frameJSON, ","))
}
