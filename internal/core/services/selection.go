package services

import (
	"sync"

	"setoran-pa/internal/core/domain"
)

// Selection holds the components picked for batch submission, per student.
// It lives in memory only.
type Selection struct {
	mu    sync.Mutex
	items map[string][]domain.SubmitItem
}

// NewSelection creates an empty selection registry
func NewSelection() *Selection {
	return &Selection{items: make(map[string][]domain.SubmitItem)}
}

// Add selects item for nim. Selecting the same component again is a no-op.
func (s *Selection) Add(nim string, item domain.SubmitItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexOf(s.items[nim], item.ComponentID) >= 0 {
		return false
	}
	s.items[nim] = append(s.items[nim], item)
	return true
}

// Remove unselects a component and reports whether it was selected
func (s *Selection) Remove(nim, componentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.items[nim]
	i := indexOf(list, componentID)
	if i < 0 {
		return false
	}
	list = append(list[:i:i], list[i+1:]...)
	if len(list) == 0 {
		delete(s.items, nim)
	} else {
		s.items[nim] = list
	}
	return true
}

// Toggle flips a component's selection and returns whether it is now selected
func (s *Selection) Toggle(nim string, item domain.SubmitItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.items[nim]
	if i := indexOf(list, item.ComponentID); i >= 0 {
		s.items[nim] = append(list[:i:i], list[i+1:]...)
		if len(s.items[nim]) == 0 {
			delete(s.items, nim)
		}
		return false
	}
	s.items[nim] = append(list, item)
	return true
}

// Items returns the selection for nim in the order it was made
func (s *Selection) Items(nim string) []domain.SubmitItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SubmitItem{}, s.items[nim]...)
}

func (s *Selection) Clear(nim string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, nim)
}

func (s *Selection) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string][]domain.SubmitItem)
}

func indexOf(items []domain.SubmitItem, componentID string) int {
	for i, item := range items {
		if item.ComponentID == componentID {
			return i
		}
	}
	return -1
}
