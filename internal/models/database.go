// Package models holds the pure domain data: the database document, its
// projects and tasks, and the task audit log. Mutation primitives preserve
// the document invariants: ids are monotonic and never reused, project and
// task slices stay strictly ascending by id, and logs only grow.
package models

import (
	"cmp"
	"slices"

	"btasks/internal/apperr"
)

// Database is the whole persisted document.
type Database struct {
	Projects      []Project `json:"projects"`
	NextProjectID int64     `json:"next_project_id"`
}

// NewDatabase returns an empty database.
func NewDatabase() *Database {
	return &Database{Projects: []Project{}}
}

func projectByID(p Project, id int64) int { return cmp.Compare(p.ID, id) }

// FindProject returns the project with the given id, located by binary
// search over the id-sorted project slice.
func (db *Database) FindProject(id int64) (*Project, error) {
	i, found := slices.BinarySearchFunc(db.Projects, id, projectByID)
	if !found {
		return nil, apperr.NotFoundf("project not found: %d", id)
	}
	return &db.Projects[i], nil
}

// CreateProject appends a new empty project with the next free id. Ids are
// assigned in increasing order, so the slice stays sorted without
// re-sorting.
func (db *Database) CreateProject(name, description string) *Project {
	p := Project{
		ID:          db.NextProjectID,
		Name:        name,
		Description: description,
		Tasks:       []Task{},
	}
	db.NextProjectID++
	db.Projects = append(db.Projects, p)
	return &db.Projects[len(db.Projects)-1]
}

// RemoveProject excises the project with the given id along with all of its
// tasks. The id is not freed for reuse.
func (db *Database) RemoveProject(id int64) error {
	i, found := slices.BinarySearchFunc(db.Projects, id, projectByID)
	if !found {
		return apperr.NotFoundf("project not found: %d", id)
	}
	db.Projects = slices.Delete(db.Projects, i, i+1)
	return nil
}
