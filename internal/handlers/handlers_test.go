package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btasks/internal/models"
	"btasks/internal/store"
)

func setupRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "database.json")
	return New(store.Open(path)).Router(), path
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doOK(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := do(t, router, method, path, body)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	return rec
}

func TestCreateProjectAndList(t *testing.T) {
	router, _ := setupRouter(t)

	rec := doOK(t, router, "POST", "/project/create", `{"name":"A","description":"d"}`)
	assert.JSONEq(t, `{"project_id":0}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = doOK(t, router, "GET", "/", "")
	assert.JSONEq(t, `{"projects":[{"id":0,"name":"A"}]}`, rec.Body.String())
}

func TestListProjects_EmptyDatabase(t *testing.T) {
	router, _ := setupRouter(t)

	rec := doOK(t, router, "GET", "/", "")
	assert.JSONEq(t, `{"projects":[]}`, rec.Body.String())
}

func TestProjectDetail_TasksInAscendingIDOrder(t *testing.T) {
	router, _ := setupRouter(t)

	doOK(t, router, "POST", "/project/create", `{"name":"A","description":"d"}`)
	rec := doOK(t, router, "POST", "/task/create", `{"project_id":0,"title":"t1","description":""}`)
	assert.JSONEq(t, `{"task_id":0}`, rec.Body.String())
	rec = doOK(t, router, "POST", "/task/create", `{"project_id":0,"title":"t2","description":""}`)
	assert.JSONEq(t, `{"task_id":1}`, rec.Body.String())

	rec = doOK(t, router, "GET", "/project", `{"project_id":0}`)
	assert.JSONEq(t, `{
		"id":0,"name":"A","description":"d",
		"tasks":[
			{"id":0,"title":"t1","state":"Todo"},
			{"id":1,"title":"t2","state":"Todo"}
		]
	}`, rec.Body.String())
}

func TestChangeTaskState_LogsTransition(t *testing.T) {
	router, _ := setupRouter(t)

	doOK(t, router, "POST", "/project/create", `{"name":"A","description":""}`)
	doOK(t, router, "POST", "/task/create", `{"project_id":0,"title":"t1","description":""}`)
	doOK(t, router, "POST", "/task/state", `{"project_id":0,"task_id":0,"new_state":"Done"}`)

	rec := doOK(t, router, "GET", "/task", `{"project_id":0,"task_id":0}`)

	var task models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, models.StateDone, task.State)
	require.Len(t, task.Log, 1)
	require.NotNil(t, task.Log[0].EntryType.StateChangedTo)
	assert.Equal(t, models.StateDone, *task.Log[0].EntryType.StateChangedTo)
}

func TestSelfTransition_StillLogs(t *testing.T) {
	router, _ := setupRouter(t)

	doOK(t, router, "POST", "/project/create", `{"name":"A","description":""}`)
	doOK(t, router, "POST", "/task/create", `{"project_id":0,"title":"t","description":""}`)
	doOK(t, router, "POST", "/task/state", `{"project_id":0,"task_id":0,"new_state":"Todo"}`)
	doOK(t, router, "POST", "/task/state", `{"project_id":0,"task_id":0,"new_state":"Todo"}`)

	rec := doOK(t, router, "GET", "/task", `{"project_id":0,"task_id":0}`)
	var task models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Len(t, task.Log, 2)
	assert.Equal(t, models.StateTodo, task.State)
}

func TestDeleteTask_IDNotReused(t *testing.T) {
	router, _ := setupRouter(t)

	doOK(t, router, "POST", "/project/create", `{"name":"A","description":""}`)
	doOK(t, router, "POST", "/task/create", `{"project_id":0,"title":"t1","description":""}`)
	doOK(t, router, "POST", "/task/create", `{"project_id":0,"title":"t2","description":""}`)

	rec := doOK(t, router, "POST", "/task/delete", `{"project_id":0,"task_id":0}`)
	assert.JSONEq(t, `{"status":200,"description":"OK"}`, rec.Body.String())

	rec = doOK(t, router, "POST", "/task/create", `{"project_id":0,"title":"t3","description":""}`)
	assert.JSONEq(t, `{"task_id":2}`, rec.Body.String())
}

func TestDeleteProject_DestroysTasks(t *testing.T) {
	router, _ := setupRouter(t)

	doOK(t, router, "POST", "/project/create", `{"name":"A","description":""}`)
	doOK(t, router, "POST", "/task/create", `{"project_id":0,"title":"t","description":""}`)
	doOK(t, router, "POST", "/project/delete", `{"project_id":0}`)

	rec := do(t, router, "GET", "/task", `{"project_id":0,"task_id":0}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Project ids are not reused either.
	rec = doOK(t, router, "POST", "/project/create", `{"name":"B","description":""}`)
	assert.JSONEq(t, `{"project_id":1}`, rec.Body.String())
}

func TestRenameAndRedescribeProject(t *testing.T) {
	router, _ := setupRouter(t)

	doOK(t, router, "POST", "/project/create", `{"name":"A","description":"old"}`)
	doOK(t, router, "POST", "/project/name", `{"project_id":0,"name":"Renamed"}`)
	doOK(t, router, "POST", "/project/description", `{"project_id":0,"description":"new"}`)

	rec := doOK(t, router, "GET", "/project", `{"project_id":0}`)
	assert.JSONEq(t, `{"id":0,"name":"Renamed","description":"new","tasks":[]}`, rec.Body.String())
}

func TestEditTaskTitleAndDescription(t *testing.T) {
	router, _ := setupRouter(t)

	doOK(t, router, "POST", "/project/create", `{"name":"A","description":""}`)
	doOK(t, router, "POST", "/task/create", `{"project_id":0,"title":"old","description":"old"}`)
	doOK(t, router, "POST", "/task/title", `{"project_id":0,"task_id":0,"title":"new title"}`)
	doOK(t, router, "POST", "/task/description", `{"project_id":0,"task_id":0,"description":"new desc"}`)

	rec := doOK(t, router, "GET", "/task", `{"project_id":0,"task_id":0}`)
	var task models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, "new title", task.Title)
	assert.Equal(t, "new desc", task.Description)
	assert.Empty(t, task.Log, "field edits must not log")
}

func TestAddComment_AppendsToLog(t *testing.T) {
	router, _ := setupRouter(t)

	doOK(t, router, "POST", "/project/create", `{"name":"A","description":""}`)
	doOK(t, router, "POST", "/task/create", `{"project_id":0,"title":"t","description":""}`)
	doOK(t, router, "POST", "/task/comment", `{"project_id":0,"task_id":0,"comment":"a note"}`)

	rec := doOK(t, router, "GET", "/task", `{"project_id":0,"task_id":0}`)
	var task models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	require.Len(t, task.Log, 1)
	require.NotNil(t, task.Log[0].EntryType.Comment)
	assert.Equal(t, "a note", *task.Log[0].EntryType.Comment)
	assert.Equal(t, models.StateTodo, task.State)
}

func TestDependencyAdd_IdempotentAndUnvalidated(t *testing.T) {
	router, _ := setupRouter(t)

	doOK(t, router, "POST", "/project/create", `{"name":"A","description":""}`)
	doOK(t, router, "POST", "/task/create", `{"project_id":0,"title":"t","description":""}`)

	// Task 2 does not exist; the edge is stored anyway.
	body := `{"project_id":0,"task_id":0,"dependency":2,"action":"Add"}`
	doOK(t, router, "POST", "/task/dependency", body)
	doOK(t, router, "POST", "/task/dependency", body)

	rec := doOK(t, router, "GET", "/task", `{"project_id":0,"task_id":0}`)
	var task models.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, []int64{2}, task.Dependencies)
	assert.Empty(t, task.Log, "dependency mutations must not log")

	doOK(t, router, "POST", "/task/dependency", `{"project_id":0,"task_id":0,"dependency":9,"action":"Remove"}`)
	rec = doOK(t, router, "GET", "/task", `{"project_id":0,"task_id":0}`)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, []int64{2}, task.Dependencies)
}

func TestRestart_DatabaseSurvives(t *testing.T) {
	router, path := setupRouter(t)

	doOK(t, router, "POST", "/project/create", `{"name":"A","description":"d"}`)
	doOK(t, router, "POST", "/task/create", `{"project_id":0,"title":"t1","description":""}`)
	before := doOK(t, router, "GET", "/", "").Body.String()

	// A fresh store over the same file sees the flushed state.
	restarted := New(store.Open(path)).Router()
	after := doOK(t, restarted, "GET", "/", "").Body.String()
	assert.JSONEq(t, before, after)

	rec := doOK(t, restarted, "GET", "/project", `{"project_id":0}`)
	assert.JSONEq(t, `{"id":0,"name":"A","description":"d","tasks":[{"id":0,"title":"t1","state":"Todo"}]}`, rec.Body.String())
}

func TestUnmatchedRoutes_404EmptyBody(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		method string
		path   string
	}{
		{"GET", "/nope"},
		{"POST", "/"},
		{"GET", "/task/create"},
		{"DELETE", "/project"},
		{"POST", "/project/create/extra"},
	}
	for _, tt := range tests {
		rec := do(t, router, tt.method, tt.path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tt.method, tt.path)
		assert.Empty(t, rec.Body.String(), "%s %s", tt.method, tt.path)
	}
}

func TestBadRequests_400WithEnvelope(t *testing.T) {
	router, _ := setupRouter(t)
	doOK(t, router, "POST", "/project/create", `{"name":"A","description":""}`)
	doOK(t, router, "POST", "/task/create", `{"project_id":0,"title":"t","description":""}`)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"malformed json", "/project/create", `{"name":`},
		{"missing name", "/project/create", `{"description":"d"}`},
		{"missing project_id", "/task/create", `{"title":"t","description":""}`},
		{"unknown state", "/task/state", `{"project_id":0,"task_id":0,"new_state":"Finished"}`},
		{"missing new_state", "/task/state", `{"project_id":0,"task_id":0}`},
		{"unknown action", "/task/dependency", `{"project_id":0,"task_id":0,"dependency":1,"action":"Toggle"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, "POST", tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", rec.Body.String())

			var envelope struct {
				Status      int    `json:"status"`
				Description string `json:"description"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
			assert.Equal(t, http.StatusBadRequest, envelope.Status)
			assert.NotEmpty(t, envelope.Description)
		})
	}
}

func TestMissingRecords_404WithEnvelope(t *testing.T) {
	router, _ := setupRouter(t)
	doOK(t, router, "POST", "/project/create", `{"name":"A","description":""}`)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"unknown project", "GET", "/project", `{"project_id":9}`},
		{"unknown task", "GET", "/task", `{"project_id":0,"task_id":9}`},
		{"create task in unknown project", "POST", "/task/create", `{"project_id":9,"title":"t","description":""}`},
		{"delete unknown project", "POST", "/project/delete", `{"project_id":9}`},
		{"state on unknown task", "POST", "/task/state", `{"project_id":0,"task_id":9,"new_state":"Done"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusNotFound, rec.Code, "body: %s", rec.Body.String())
		})
	}
}

func TestConcurrentCreates_SerializeUnderStoreLock(t *testing.T) {
	router, _ := setupRouter(t)

	const workers = 10
	const perWorker = 10

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				rec := do(t, router, "POST", "/project/create", `{"name":"p","description":""}`)
				assert.Equal(t, http.StatusOK, rec.Code)
			}
		}()
	}
	wg.Wait()

	rec := doOK(t, router, "GET", "/", "")
	var resp struct {
		Projects []struct {
			ID int64 `json:"id"`
		} `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Projects, workers*perWorker)

	// Every create got a unique id and the listing is ascending: the
	// interleaving was equivalent to some serial order.
	for i, p := range resp.Projects {
		assert.Equal(t, int64(i), p.ID)
	}
}

func TestRequestHandling_KeepsStdoutQuiet(t *testing.T) {
	router, _ := setupRouter(t)

	orig := os.Stdout
	rp, wp, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = wp
	defer func() { os.Stdout = orig }()

	doOK(t, router, "POST", "/project/create", `{"name":"A","description":""}`)
	doOK(t, router, "GET", "/", "")
	do(t, router, "GET", "/nope", "")

	require.NoError(t, wp.Close())
	os.Stdout = orig

	captured, err := io.ReadAll(rp)
	require.NoError(t, err)
	assert.Empty(t, string(captured), "request handling must not write to stdout")
}

func TestMutationResponsesAreDurable(t *testing.T) {
	router, path := setupRouter(t)

	for i := 0; i < 3; i++ {
		doOK(t, router, "POST", "/project/create", fmt.Sprintf(`{"name":"p%d","description":""}`, i))

		// By the time the response arrives the document is on disk.
		reloaded := store.Open(path)
		count := 0
		require.NoError(t, reloaded.View(func(db *models.Database) error {
			count = len(db.Projects)
			return nil
		}))
		assert.Equal(t, i+1, count)
	}
}
