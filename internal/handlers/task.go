package handlers

import (
	"net/http"

	"btasks/internal/apperr"
	"btasks/internal/models"
)

// taskRef identifies a task within a project. It is embedded in every
// task-level request body.
type taskRef struct {
	ProjectID *int64 `json:"project_id"`
	TaskID    *int64 `json:"task_id"`
}

func (ref *taskRef) validate() error {
	if ref.ProjectID == nil {
		return missing("project_id")
	}
	if ref.TaskID == nil {
		return missing("task_id")
	}
	return nil
}

// findTask resolves a taskRef inside a store closure.
func findTask(db *models.Database, ref taskRef) (*models.Task, error) {
	p, err := db.FindProject(*ref.ProjectID)
	if err != nil {
		return nil, err
	}
	return p.FindTask(*ref.TaskID)
}

// TaskDetail returns the full task document, log and dependencies included.
func (h *Handlers) TaskDetail(w http.ResponseWriter, r *http.Request) {
	var req taskRef
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, err)
		return
	}

	var resp models.Task
	err := h.store.View(func(db *models.Database) error {
		t, err := findTask(db, req)
		if err != nil {
			return err
		}
		resp = t.Clone()
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, resp)
}

type createTaskRequest struct {
	ProjectID   *int64  `json:"project_id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type createTaskResponse struct {
	TaskID int64 `json:"task_id"`
}

// CreateTask creates a task in state Todo with an empty log and no
// dependencies, and returns its id.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.ProjectID == nil {
		respondError(w, missing("project_id"))
		return
	}
	if req.Title == nil {
		respondError(w, missing("title"))
		return
	}
	if req.Description == nil {
		respondError(w, missing("description"))
		return
	}

	var resp createTaskResponse
	err := h.store.Update(func(db *models.Database) error {
		p, err := db.FindProject(*req.ProjectID)
		if err != nil {
			return err
		}
		t := p.CreateTask(*req.Title, *req.Description)
		resp.TaskID = t.ID
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, resp)
}

// DeleteTask destroys a task. Its id is not reused.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	var req taskRef
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, err)
		return
	}

	err := h.store.Update(func(db *models.Database) error {
		p, err := db.FindProject(*req.ProjectID)
		if err != nil {
			return err
		}
		return p.RemoveTask(*req.TaskID)
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w)
}

type editTaskTitleRequest struct {
	taskRef
	Title *string `json:"title"`
}

// EditTaskTitle overwrites a task's title.
func (h *Handlers) EditTaskTitle(w http.ResponseWriter, r *http.Request) {
	var req editTaskTitleRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, err)
		return
	}
	if req.Title == nil {
		respondError(w, missing("title"))
		return
	}

	err := h.store.Update(func(db *models.Database) error {
		t, err := findTask(db, req.taskRef)
		if err != nil {
			return err
		}
		t.Title = *req.Title
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w)
}

type editTaskDescriptionRequest struct {
	taskRef
	Description *string `json:"description"`
}

// EditTaskDescription overwrites a task's description.
func (h *Handlers) EditTaskDescription(w http.ResponseWriter, r *http.Request) {
	var req editTaskDescriptionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, err)
		return
	}
	if req.Description == nil {
		respondError(w, missing("description"))
		return
	}

	err := h.store.Update(func(db *models.Database) error {
		t, err := findTask(db, req.taskRef)
		if err != nil {
			return err
		}
		t.Description = *req.Description
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w)
}

type changeTaskStateRequest struct {
	taskRef
	NewState *models.State `json:"new_state"`
}

// ChangeTaskState appends a state-change log entry and assigns the new
// state. The transition graph is unconstrained; every call logs, even a
// transition to the current state.
func (h *Handlers) ChangeTaskState(w http.ResponseWriter, r *http.Request) {
	var req changeTaskStateRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, err)
		return
	}
	if req.NewState == nil {
		respondError(w, missing("new_state"))
		return
	}

	err := h.store.Update(func(db *models.Database) error {
		t, err := findTask(db, req.taskRef)
		if err != nil {
			return err
		}
		t.SetState(*req.NewState)
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w)
}

type addTaskCommentRequest struct {
	taskRef
	Comment *string `json:"comment"`
}

// AddTaskComment appends a free-text comment to the task's log.
func (h *Handlers) AddTaskComment(w http.ResponseWriter, r *http.Request) {
	var req addTaskCommentRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, err)
		return
	}
	if req.Comment == nil {
		respondError(w, missing("comment"))
		return
	}

	err := h.store.Update(func(db *models.Database) error {
		t, err := findTask(db, req.taskRef)
		if err != nil {
			return err
		}
		t.AddComment(*req.Comment)
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w)
}

const (
	actionAdd    = "Add"
	actionRemove = "Remove"
)

type mutateDependencyRequest struct {
	taskRef
	Dependency *int64  `json:"dependency"`
	Action     *string `json:"action"`
}

// MutateTaskDependency adds or removes a dependency edge. Add is
// idempotent, Remove is a no-op on a missing id, and the referenced id is
// never validated against the project's tasks. Neither action logs.
func (h *Handlers) MutateTaskDependency(w http.ResponseWriter, r *http.Request) {
	var req mutateDependencyRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, err)
		return
	}
	if req.Dependency == nil {
		respondError(w, missing("dependency"))
		return
	}
	if req.Action == nil {
		respondError(w, missing("action"))
		return
	}
	if *req.Action != actionAdd && *req.Action != actionRemove {
		respondError(w, apperr.BadRequestf("unknown action %q", *req.Action))
		return
	}

	err := h.store.Update(func(db *models.Database) error {
		t, err := findTask(db, req.taskRef)
		if err != nil {
			return err
		}
		if *req.Action == actionAdd {
			t.AddDependency(*req.Dependency)
		} else {
			t.RemoveDependency(*req.Dependency)
		}
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w)
}
