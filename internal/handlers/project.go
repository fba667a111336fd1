package handlers

import (
	"net/http"

	"btasks/internal/models"
)

type projectSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type listProjectsResponse struct {
	Projects []projectSummary `json:"projects"`
}

// ListProjects returns every project's id and name in ascending id order.
// The request body is ignored.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	resp := listProjectsResponse{Projects: []projectSummary{}}
	_ = h.store.View(func(db *models.Database) error {
		for _, p := range db.Projects {
			resp.Projects = append(resp.Projects, projectSummary{ID: p.ID, Name: p.Name})
		}
		return nil
	})
	respondJSON(w, resp)
}

type projectDetailRequest struct {
	ProjectID *int64 `json:"project_id"`
}

type taskSummary struct {
	ID    int64        `json:"id"`
	Title string       `json:"title"`
	State models.State `json:"state"`
}

type projectDetailResponse struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Tasks       []taskSummary `json:"tasks"`
}

// ProjectDetail returns a project with a summary of its tasks in ascending
// id order.
func (h *Handlers) ProjectDetail(w http.ResponseWriter, r *http.Request) {
	var req projectDetailRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.ProjectID == nil {
		respondError(w, missing("project_id"))
		return
	}

	var resp projectDetailResponse
	err := h.store.View(func(db *models.Database) error {
		p, err := db.FindProject(*req.ProjectID)
		if err != nil {
			return err
		}
		resp = projectDetailResponse{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Tasks:       []taskSummary{},
		}
		for _, t := range p.Tasks {
			resp.Tasks = append(resp.Tasks, taskSummary{ID: t.ID, Title: t.Title, State: t.State})
		}
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, resp)
}

type createProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type createProjectResponse struct {
	ProjectID int64 `json:"project_id"`
}

// CreateProject creates a new empty project and returns its id.
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Name == nil {
		respondError(w, missing("name"))
		return
	}
	if req.Description == nil {
		respondError(w, missing("description"))
		return
	}

	var resp createProjectResponse
	err := h.store.Update(func(db *models.Database) error {
		p := db.CreateProject(*req.Name, *req.Description)
		resp.ProjectID = p.ID
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, resp)
}

type deleteProjectRequest struct {
	ProjectID *int64 `json:"project_id"`
}

// DeleteProject destroys a project and all of its tasks. The project id is
// not reused.
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	var req deleteProjectRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.ProjectID == nil {
		respondError(w, missing("project_id"))
		return
	}

	err := h.store.Update(func(db *models.Database) error {
		return db.RemoveProject(*req.ProjectID)
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w)
}

type renameProjectRequest struct {
	ProjectID *int64  `json:"project_id"`
	Name      *string `json:"name"`
}

// RenameProject overwrites a project's name.
func (h *Handlers) RenameProject(w http.ResponseWriter, r *http.Request) {
	var req renameProjectRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.ProjectID == nil {
		respondError(w, missing("project_id"))
		return
	}
	if req.Name == nil {
		respondError(w, missing("name"))
		return
	}

	err := h.store.Update(func(db *models.Database) error {
		p, err := db.FindProject(*req.ProjectID)
		if err != nil {
			return err
		}
		p.Name = *req.Name
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w)
}

type redescribeProjectRequest struct {
	ProjectID   *int64  `json:"project_id"`
	Description *string `json:"description"`
}

// RedescribeProject overwrites a project's description.
func (h *Handlers) RedescribeProject(w http.ResponseWriter, r *http.Request) {
	var req redescribeProjectRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.ProjectID == nil {
		respondError(w, missing("project_id"))
		return
	}
	if req.Description == nil {
		respondError(w, missing("description"))
		return
	}

	err := h.store.Update(func(db *models.Database) error {
		p, err := db.FindProject(*req.ProjectID)
		if err != nil {
			return err
		}
		p.Description = *req.Description
		return nil
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w)
}
