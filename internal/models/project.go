package models

import (
	"cmp"
	"slices"

	"btasks/internal/apperr"
)

// Project is a named container for tasks. Tasks are kept sorted strictly
// ascending by id, and task ids are never reused after deletion.
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Tasks       []Task `json:"tasks"`
	NextTaskID  int64  `json:"next_task_id"`
}

func taskByID(t Task, id int64) int { return cmp.Compare(t.ID, id) }

// FindTask returns the task with the given id, located by binary search
// over the id-sorted task slice.
func (p *Project) FindTask(id int64) (*Task, error) {
	i, found := slices.BinarySearchFunc(p.Tasks, id, taskByID)
	if !found {
		return nil, apperr.NotFoundf("task not found: %d", id)
	}
	return &p.Tasks[i], nil
}

// CreateTask appends a new task with the next free id, in state Todo with
// an empty log and no dependencies. Ids are assigned in increasing order,
// so the slice stays sorted without re-sorting.
func (p *Project) CreateTask(title, description string) *Task {
	t := Task{
		ID:           p.NextTaskID,
		Title:        title,
		Description:  description,
		State:        StateTodo,
		Dependencies: []int64{},
		Log:          []LogEntry{},
	}
	p.NextTaskID++
	p.Tasks = append(p.Tasks, t)
	return &p.Tasks[len(p.Tasks)-1]
}

// RemoveTask excises the task with the given id. The id is not freed for
// reuse.
func (p *Project) RemoveTask(id int64) error {
	i, found := slices.BinarySearchFunc(p.Tasks, id, taskByID)
	if !found {
		return apperr.NotFoundf("task not found: %d", id)
	}
	p.Tasks = slices.Delete(p.Tasks, i, i+1)
	return nil
}
