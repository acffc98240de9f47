package learndot_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-craft/learndot-sync/internal/cache"
	"github.com/open-craft/learndot-sync/internal/config"
	"github.com/open-craft/learndot-sync/internal/learndot"
	"github.com/open-craft/learndot-sync/internal/statuslog"
)

const (
	contactSearchPath   = "/api/rest/v2/manage/contact/search"
	enrolmentSearchPath = "/api/rest/v2/manage/enrolment/search"
)

// newTestServer creates a new test server with keep-alives disabled.
// This prevents flaky tests when running in parallel, as closing a server
// with keep-alives enabled can affect other tests sharing the HTTP transport.
func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

// newTestClient creates a client against baseURL with fast retries and a
// status log in a temporary directory.
func newTestClient(t *testing.T, baseURL string) (learndot.Client, statuslog.Log) {
	t.Helper()

	cfg := &config.Config{
		Learndot: config.LearndotConfig{
			BaseURL:          baseURL,
			APIKey:           "test-key",
			RetryWait:        "1ms",
			RetryMaxAttempts: 3,
		},
	}
	log := statuslog.NewFileLog(filepath.Join(t.TempDir(), "statuslog.json"))
	return learndot.NewClient(cfg, cache.NewInMemory(), log), log
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func contactResults(contacts ...map[string]any) map[string]any {
	results := make([]any, 0, len(contacts))
	for _, c := range contacts {
		results = append(results, c)
	}
	return map[string]any{"results": results}
}

func TestGetContactID(t *testing.T) {
	t.Parallel()

	learner := learndot.Learner{ID: 42, Username: "learner", Email: "learner@example.com"}

	tests := []struct {
		name     string
		response map[string]any
		wantID   int64
	}{
		{
			name: "single exact match",
			response: contactResults(
				map[string]any{"id": 7, "email": "learner@example.com", "_displayName_": "A Learner"},
			),
			wantID: 7,
		},
		{
			name: "fuzzy matches are filtered to exact email",
			response: contactResults(
				map[string]any{"id": 7, "email": "learner@example.com", "_displayName_": "A Learner"},
				map[string]any{"id": 8, "email": "other.learner@example.com", "_displayName_": "Other"},
			),
			wantID: 7,
		},
		{
			name:     "no match returns zero without error",
			response: contactResults(),
			wantID:   0,
		},
		{
			name: "only fuzzy matches returns zero without error",
			response: contactResults(
				map[string]any{"id": 8, "email": "other.learner@example.com", "_displayName_": "Other"},
			),
			wantID: 0,
		},
		{
			name: "multiple exact matches are unresolvable",
			response: contactResults(
				map[string]any{"id": 7, "email": "learner@example.com", "_displayName_": "A Learner"},
				map[string]any{"id": 9, "email": "learner@example.com", "_displayName_": "A Duplicate"},
			),
			wantID: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mux := http.NewServeMux()
			mux.HandleFunc(contactSearchPath, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "test-key", r.Header.Get("TrainingRocket-Authorization"))
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var body map[string][]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, []string{learner.Email}, body["email"])

				writeJSON(t, w, tt.response)
			})
			server := newTestServer(mux)
			defer server.Close()

			client, _ := newTestClient(t, server.URL)

			id, err := client.GetContactID(context.Background(), learner)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestGetContactID_CachesResolution(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc(contactSearchPath, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(t, w, contactResults(
			map[string]any{"id": 7, "email": "learner@example.com", "_displayName_": "A Learner"},
		))
	})
	server := newTestServer(mux)
	defer server.Close()

	client, _ := newTestClient(t, server.URL)
	learner := learndot.Learner{ID: 42, Email: "learner@example.com"}

	for range 3 {
		id, err := client.GetContactID(context.Background(), learner)
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
	}
	assert.Equal(t, int64(1), calls.Load(), "resolution should be served from cache after the first call")
}

func TestGetContactID_UnresolvedIsNotCached(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc(contactSearchPath, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(t, w, contactResults())
	})
	server := newTestServer(mux)
	defer server.Close()

	client, _ := newTestClient(t, server.URL)
	learner := learndot.Learner{ID: 42, Email: "learner@example.com"}

	for range 2 {
		id, err := client.GetContactID(context.Background(), learner)
		require.NoError(t, err)
		assert.Zero(t, id)
	}
	assert.Equal(t, int64(2), calls.Load())
}

func TestRemoteCallRetryPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		statusCode  int
		wantCalls   int64
		wantErrCode int
	}{
		{name: "429 is retried to exhaustion", statusCode: http.StatusTooManyRequests, wantCalls: 3, wantErrCode: http.StatusTooManyRequests},
		{name: "502 is retried to exhaustion", statusCode: http.StatusBadGateway, wantCalls: 3, wantErrCode: http.StatusBadGateway},
		{name: "504 is retried to exhaustion", statusCode: http.StatusGatewayTimeout, wantCalls: 3, wantErrCode: http.StatusGatewayTimeout},
		{name: "400 fails immediately", statusCode: http.StatusBadRequest, wantCalls: 1, wantErrCode: http.StatusBadRequest},
		{name: "404 fails immediately", statusCode: http.StatusNotFound, wantCalls: 1, wantErrCode: http.StatusNotFound},
		{name: "500 fails immediately", statusCode: http.StatusInternalServerError, wantCalls: 1, wantErrCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int64
			mux := http.NewServeMux()
			mux.HandleFunc(contactSearchPath, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.statusCode)
			})
			server := newTestServer(mux)
			defer server.Close()

			client, _ := newTestClient(t, server.URL)

			_, err := client.GetContactID(context.Background(), learndot.Learner{ID: 1, Email: "a@example.com"})
			require.Error(t, err)

			var apiErr *learndot.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantErrCode, apiErr.StatusCode)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestRemoteCallRecoversAfterTransientFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc(contactSearchPath, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(t, w, contactResults(
			map[string]any{"id": 7, "email": "a@example.com", "_displayName_": "A"},
		))
	})
	server := newTestServer(mux)
	defer server.Close()

	client, _ := newTestClient(t, server.URL)

	id, err := client.GetContactID(context.Background(), learndot.Learner{ID: 1, Email: "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, int64(2), calls.Load())
}

func enrolmentSearchServer(t *testing.T, calls *atomic.Int64, enrolments []learndot.Enrolment) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(enrolmentSearchPath, func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string][]int64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []int64{1}, body["contactId"])
		assert.Equal(t, []int64{2}, body["componentId"])

		writeJSON(t, w, map[string]any{"results": enrolments})
	})
	return newTestServer(mux)
}

func TestGetEnrolmentID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		enrolments []learndot.Enrolment
		wantID     int64
	}{
		{
			name:       "single live enrolment",
			enrolments: []learndot.Enrolment{{ID: 10, Status: learndot.StatusInProgress}},
			wantID:     10,
		},
		{
			name:       "no enrolments returns zero without error",
			enrolments: nil,
			wantID:     0,
		},
		{
			name: "cancelled enrolments are excluded",
			enrolments: []learndot.Enrolment{
				{ID: 10, Status: learndot.StatusCancelled},
				{ID: 11, Status: learndot.StatusInProgress},
			},
			wantID: 11,
		},
		{
			name: "all cancelled returns zero without error",
			enrolments: []learndot.Enrolment{
				{ID: 10, Status: learndot.StatusCancelled},
				{ID: 11, Status: learndot.StatusCancelled},
			},
			wantID: 0,
		},
		{
			name: "multiple live enrolments pick the latest expiry",
			enrolments: []learndot.Enrolment{
				{ID: 10, Status: learndot.StatusInProgress, ExpiryDate: "2020-01-01 00:00:00"},
				{ID: 11, Status: learndot.StatusInProgress, ExpiryDate: "2019-01-01 00:00:00"},
				{ID: 12, Status: learndot.StatusConfirmed, ExpiryDate: "2021-01-01 00:00:00"},
			},
			wantID: 12,
		},
		{
			name: "enrolment without expiry wins over expiring ones",
			enrolments: []learndot.Enrolment{
				{ID: 10, Status: learndot.StatusInProgress, ExpiryDate: "2020-01-01 00:00:00"},
				{ID: 11, Status: learndot.StatusInProgress, Modified: "2018-01-01 00:00:00"},
			},
			wantID: 11,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := enrolmentSearchServer(t, nil, tt.enrolments)
			defer server.Close()

			client, _ := newTestClient(t, server.URL)

			id, err := client.GetEnrolmentID(context.Background(), 1, 2)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestGetEnrolmentID_UnsortableIsAmbiguous(t *testing.T) {
	t.Parallel()

	server := enrolmentSearchServer(t, nil, []learndot.Enrolment{
		{ID: 10, Status: learndot.StatusInProgress, ExpiryDate: "2020-01-01 00:00:00"},
		{ID: 11, Status: learndot.StatusInProgress, ExpiryDate: "HA! NO"},
	})
	defer server.Close()

	client, _ := newTestClient(t, server.URL)

	_, err := client.GetEnrolmentID(context.Background(), 1, 2)
	require.Error(t, err)

	var ambErr *learndot.AmbiguousEnrolmentError
	require.ErrorAs(t, err, &ambErr)
	assert.Equal(t, int64(1), ambErr.ContactID)
	assert.Equal(t, int64(2), ambErr.ComponentID)

	var parseErr *learndot.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestGetEnrolmentID_CachesResolution(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	server := enrolmentSearchServer(t, &calls, []learndot.Enrolment{
		{ID: 10, Status: learndot.StatusInProgress},
	})
	defer server.Close()

	client, _ := newTestClient(t, server.URL)

	for range 3 {
		id, err := client.GetEnrolmentID(context.Background(), 1, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(10), id)
	}
	assert.Equal(t, int64(1), calls.Load())
}

func TestSetEnrolmentStatus(t *testing.T) {
	t.Parallel()

	t.Run("requires an enrolment ID", func(t *testing.T) {
		t.Parallel()

		client, _ := newTestClient(t, "http://learndot.invalid")
		err := client.SetEnrolmentStatus(context.Background(), 0, learndot.StatusPassed, false)
		require.Error(t, err)
	})

	t.Run("invalid status never reaches the remote or the log", func(t *testing.T) {
		t.Parallel()

		server := newTestServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected remote call: %s %s", r.Method, r.URL.Path)
		}))
		defer server.Close()

		client, log := newTestClient(t, server.URL)

		err := client.SetEnrolmentStatus(context.Background(), 1, "NOT_A_STATUS", false)
		require.Error(t, err)

		var statusErr *learndot.InvalidStatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, "NOT_A_STATUS", statusErr.Status)

		entry, err := log.Get(context.Background(), 1)
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("success records the sent status", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64
		mux := http.NewServeMux()
		mux.HandleFunc("/api/rest/v2/manage/enrolment/1", func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "PASSED", body["status"])
			w.WriteHeader(http.StatusOK)
		})
		server := newTestServer(mux)
		defer server.Close()

		client, log := newTestClient(t, server.URL)

		require.NoError(t, client.SetEnrolmentStatus(context.Background(), 1, learndot.StatusPassed, false))
		assert.Equal(t, int64(1), calls.Load())

		entry, err := log.Get(context.Background(), 1)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "PASSED", entry.Status)
		assert.False(t, entry.UpdatedAt.IsZero())
	})

	t.Run("repeated status is a no-op", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64
		mux := http.NewServeMux()
		mux.HandleFunc("/api/rest/v2/manage/enrolment/1", func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusOK)
		})
		server := newTestServer(mux)
		defer server.Close()

		client, _ := newTestClient(t, server.URL)

		require.NoError(t, client.SetEnrolmentStatus(context.Background(), 1, learndot.StatusPassed, false))
		require.NoError(t, client.SetEnrolmentStatus(context.Background(), 1, learndot.StatusPassed, false))
		assert.Equal(t, int64(1), calls.Load(), "second call should be skipped via the status log")
	})

	t.Run("unconditional always sends", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64
		mux := http.NewServeMux()
		mux.HandleFunc("/api/rest/v2/manage/enrolment/1", func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusOK)
		})
		server := newTestServer(mux)
		defer server.Close()

		client, _ := newTestClient(t, server.URL)

		require.NoError(t, client.SetEnrolmentStatus(context.Background(), 1, learndot.StatusPassed, true))
		require.NoError(t, client.SetEnrolmentStatus(context.Background(), 1, learndot.StatusPassed, true))
		assert.Equal(t, int64(2), calls.Load())
	})

	t.Run("status change after a previous status is sent", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64
		mux := http.NewServeMux()
		mux.HandleFunc("/api/rest/v2/manage/enrolment/1", func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusOK)
		})
		server := newTestServer(mux)
		defer server.Close()

		client, log := newTestClient(t, server.URL)

		require.NoError(t, client.SetEnrolmentStatus(context.Background(), 1, learndot.StatusInProgress, false))
		require.NoError(t, client.SetEnrolmentStatus(context.Background(), 1, learndot.StatusPassed, false))
		assert.Equal(t, int64(2), calls.Load())

		entry, err := log.Get(context.Background(), 1)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "PASSED", entry.Status)
	})

	t.Run("remote failure leaves no log entry", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/api/rest/v2/manage/enrolment/1", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})
		server := newTestServer(mux)
		defer server.Close()

		client, log := newTestClient(t, server.URL)

		err := client.SetEnrolmentStatus(context.Background(), 1, learndot.StatusPassed, false)
		require.Error(t, err)

		entry, err := log.Get(context.Background(), 1)
		require.NoError(t, err)
		assert.Nil(t, entry)
	})
}

func TestSetEnrolmentStatusToPassed(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/rest/v2/manage/enrolment/5", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "PASSED", body["status"])
		w.WriteHeader(http.StatusOK)
	})
	server := newTestServer(mux)
	defer server.Close()

	client, log := newTestClient(t, server.URL)

	require.NoError(t, client.SetEnrolmentStatusToPassed(context.Background(), 5, false))

	entry, err := log.Get(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "PASSED", entry.Status)
}

// TestCheckEnrolmentAndSetPassed covers the worked end-to-end example: one
// IN_PROGRESS enrolment for (contact=1, component=2) is resolved to ID 1 and
// marked PASSED exactly once across repeated calls.
func TestCheckEnrolmentAndSetPassed(t *testing.T) {
	t.Parallel()

	var searches, updates atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc(enrolmentSearchPath, func(w http.ResponseWriter, _ *http.Request) {
		searches.Add(1)
		writeJSON(t, w, map[string]any{"results": []learndot.Enrolment{
			{ID: 1, Status: learndot.StatusInProgress},
		}})
	})
	mux.HandleFunc("/api/rest/v2/manage/enrolment/1", func(w http.ResponseWriter, _ *http.Request) {
		updates.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	server := newTestServer(mux)
	defer server.Close()

	client, log := newTestClient(t, server.URL)

	require.NoError(t, client.CheckEnrolmentAndSetPassed(context.Background(), 1, 2, false))
	require.NoError(t, client.CheckEnrolmentAndSetPassed(context.Background(), 1, 2, false))

	assert.Equal(t, int64(1), searches.Load(), "enrolment resolution should be cached")
	assert.Equal(t, int64(1), updates.Load(), "second update should be a no-op")

	entry, err := log.Get(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "PASSED", entry.Status)
}

func TestCheckEnrolmentAndSetPassed_NoEnrolment(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc(enrolmentSearchPath, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{"results": []learndot.Enrolment{}})
	})
	mux.HandleFunc("/api/rest/v2/manage/enrolment/", func(_ http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected update call: %s %s", r.Method, r.URL.Path)
	})
	server := newTestServer(mux)
	defer server.Close()

	client, _ := newTestClient(t, server.URL)

	require.NoError(t, client.CheckEnrolmentAndSetPassed(context.Background(), 1, 2, false),
		"having no enrolment to update is not an error")
}

func TestClient_MalformedResponse(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc(contactSearchPath, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, "not json")
	})
	server := newTestServer(mux)
	defer server.Close()

	client, _ := newTestClient(t, server.URL)

	_, err := client.GetContactID(context.Background(), learndot.Learner{ID: 1, Email: "a@example.com"})
	require.Error(t, err)

	var apiErr *learndot.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.StatusCode)
	assert.Equal(t, int64(1), calls.Load(), "malformed responses are not retryable")
}
