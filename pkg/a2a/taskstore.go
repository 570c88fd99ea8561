package a2a

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// TaskStore holds the tasks of one agent server for the life of the process.
// Each Put replaces the stored task wholesale.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]*Task)}
}

func (s *TaskStore) Put(task *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = cloneTask(task)
}

func (s *TaskStore) Get(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %q not found", id)
	}
	return cloneTask(t), nil
}

func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func cloneTask(t *Task) *Task {
	c := *t
	c.Artifacts = slices.Clone(t.Artifacts)
	c.History = slices.Clone(t.History)
	c.Metadata = maps.Clone(t.Metadata)
	return &c
}
