package notion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-dashboard/internal/common/errors"
	"task-dashboard/internal/common/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		APIKey:            "secret_test_key",
		DatabaseID:        "db123",
		BaseURL:           server.URL,
		RequestsPerSecond: 100,
	}, logging.NewNopLogger())
}

func pageJSON(id, title, status string) map[string]interface{} {
	return map[string]interface{}{
		"id":               id,
		"created_time":     "2024-03-01T10:00:00.000Z",
		"last_edited_time": "2024-03-02T10:00:00.000Z",
		"properties": map[string]interface{}{
			"Name":   map[string]interface{}{"type": "title", "title": []map[string]string{{"plain_text": title}}},
			"Status": map[string]interface{}{"type": "select", "select": map[string]string{"name": status}},
			"Team":   map[string]interface{}{"type": "select", "select": map[string]string{"name": "Core"}},
			"Assign": map[string]interface{}{"type": "multi_select", "multi_select": []map[string]string{{"name": "Ana"}}},
		},
	}
}

func TestClient_QueryTasksPaginates(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/databases/db123/query", r.URL.Path)
		assert.Equal(t, "Bearer secret_test_key", r.Header.Get("Authorization"))
		assert.Equal(t, DefaultVersion, r.Header.Get("Notion-Version"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "filter")

		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			assert.NotContains(t, body, "start_cursor")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"results":     []interface{}{pageJSON("p1", "First", "Done")},
				"has_more":    true,
				"next_cursor": "cursor-2",
			})
			return
		}
		assert.Equal(t, "cursor-2", body["start_cursor"])
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results":     []interface{}{pageJSON("p2", "Second", "In Progress")},
			"has_more":    false,
			"next_cursor": nil,
		})
	})

	tasks, err := client.QueryTasks(context.Background(), TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "First", tasks[0].Title)
	assert.Equal(t, "Done", tasks[0].Status)
	assert.Equal(t, "Ana", tasks[0].Assign)
	assert.Equal(t, "In Progress", tasks[1].Status)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), tasks[0].CreatedDate.UTC())
}

func TestClient_QueryTasksFilter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"filter": {"and": [
				{"property": "Team", "select": {"equals": "Core"}},
				{"property": "Status", "select": {"equals": "Done"}}
			]},
			"sorts": [{"timestamp": "created_time", "direction": "descending"}],
			"page_size": 100
		}`, string(raw))

		unassigned := pageJSON("p2", "Other", "Done")
		delete(unassigned["properties"].(map[string]interface{}), "Assign")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results":  []interface{}{pageJSON("p1", "Mine", "Done"), unassigned},
			"has_more": false,
		})
	})

	tasks, err := client.QueryTasks(context.Background(), TaskFilter{Team: "Core", Status: "Done", Assignee: "Ana"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "p1", tasks[0].ID)
}

func TestClient_RateLimited(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		retryAfter time.Duration
	}{
		{"with header", "7", 7 * time.Second},
		{"without header", "", time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set("Retry-After", tt.header)
				}
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"object":"error","status":429,"code":"rate_limited","message":"slow down"}`))
			})

			_, err := client.QueryTasks(context.Background(), TaskFilter{})
			require.Error(t, err)
			retryAfter, limited := errors.IsRateLimited(err)
			assert.True(t, limited)
			assert.Equal(t, tt.retryAfter, retryAfter)
		})
	}
}

func TestClient_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"object":"error","status":404,"code":"object_not_found","message":"Could not find page"}`))
	})

	err := client.UpdateTask(context.Background(), "missing", TaskPatch{Status: strPtr("Done")})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUpstream))
	assert.Equal(t, http.StatusNotFound, errors.HTTPStatus(err))
	assert.Contains(t, err.Error(), "Could not find page")
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 3; i++ {
		_, err := client.QueryTasks(context.Background(), TaskFilter{})
		require.Error(t, err)
	}

	_, err := client.QueryTasks(context.Background(), TaskFilter{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUnavailable))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "open", client.BreakerState())
}

func TestClient_MissingCredentials(t *testing.T) {
	client := NewClient(Config{}, logging.NewNopLogger())
	assert.False(t, client.Configured())

	_, err := client.QueryTasks(context.Background(), TaskFilter{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
	assert.Contains(t, err.Error(), "NOTION_API_KEY")
}

func TestClient_UpdateTaskBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/pages/page-1", r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"properties": {
			"Status": {"select": {"name": "Done"}},
			"Team": {"select": null},
			"Assignee": {"people": [{"id": "user-1"}]},
			"Assign": {"multi_select": []}
		}}`, string(raw))
		_, _ = w.Write([]byte(`{"object":"page","id":"page-1"}`))
	})

	err := client.UpdateTask(context.Background(), "page-1", TaskPatch{
		Status:     strPtr("Done"),
		Team:       strPtr(""),
		AssigneeID: strPtr("user-1"),
		Assign:     strPtr(""),
	})
	require.NoError(t, err)
}

func TestClient_UpdateTaskValidation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	err := client.UpdateTask(context.Background(), "", TaskPatch{Status: strPtr("Done")})
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	err = client.UpdateTask(context.Background(), "page-1", TaskPatch{})
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestClient_Assignees(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		if calls.Add(1) == 1 {
			assert.Empty(t, r.URL.Query().Get("start_cursor"))
			_, _ = w.Write([]byte(`{"results":[
				{"object":"user","id":"u2","name":"zoe","type":"person"},
				{"object":"user","id":"b1","name":"Robot","type":"bot"}
			],"has_more":true,"next_cursor":"c2"}`))
			return
		}
		assert.Equal(t, "c2", r.URL.Query().Get("start_cursor"))
		_, _ = w.Write([]byte(`{"results":[
			{"object":"user","id":"u1","name":"Ana","type":"person"},
			{"object":"user","id":"u2","name":"zoe","type":"person"},
			{"object":"user","id":"u3","type":"person"}
		],"has_more":false,"next_cursor":null}`))
	})

	people, err := client.Assignees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Assignee{{ID: "u1", Name: "Ana"}, {ID: "u2", Name: "zoe"}}, people)
}

func TestClient_AssignOptions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/databases/db123", r.URL.Path)
		_, _ = w.Write([]byte(`{"properties":{
			"Name":{"id":"title","name":"Name","type":"title"},
			"Assigned to":{"id":"a","name":"Assigned to","type":"select","select":{"options":[{"name":"Zed"},{"name":"Bea"}]}}
		}}`))
	})

	options, err := client.AssignOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Bea", "Zed"}, options)
}

func TestClient_DescribeSchema(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/databases/db123":
			_, _ = w.Write([]byte(`{"properties":{
				"Name":{"type":"title"},
				"Assign":{"type":"multi_select","multi_select":{"options":[]}}
			}}`))
		case "/databases/db123/query":
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, float64(3), body["page_size"])
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"results": []interface{}{pageJSON("p1", "Sample", "Done")},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	schema, err := client.DescribeSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Assign", "Name"}, schema.DatabaseProperties)
	assert.Equal(t, "multi_select", schema.PropertyTypes["Assign"])
	require.Len(t, schema.SampleTasks, 1)
	assert.Equal(t, "Sample", schema.SampleTasks[0].Title)
	assert.Equal(t, []string{"Assign", "Name", "Status", "Team"}, schema.SampleTasks[0].AllPropertyNames)
	assert.Contains(t, schema.SampleTasks[0].AssignmentFields, "Assign")
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Second},
		{"3", 3 * time.Second},
		{"1.5", 1500 * time.Millisecond},
		{"0", time.Second},
		{"-4", time.Second},
		{"soon", time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRetryAfter(tt.value))
		})
	}
}

func strPtr(s string) *string { return &s }
