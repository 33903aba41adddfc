// Package localstore keeps recurring expenses and saved labels in JSON
// files on the local device. Transactional financial records never live
// here; those belong to the SQLite repository.
//
// The store is deliberately not user-scoped: it models per-device lists
// shared by whoever uses the device, so every account on an instance
// sees the same recurring expenses and labels.
package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

const (
	recurringFile = "recurring.json"
	labelsFile    = "saved_labels.json"
)

type recurringRecord struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Paise    int64  `json:"amount_paise"`
	Category string `json:"category"`
}

type labelRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Paise    int64  `json:"amount_paise"`
	Category string `json:"category"`
}

type Store struct {
	mu        sync.Mutex
	dir       string
	recurring []core.RecurringExpense
	labels    []core.SavedLabel
}

// Open loads any existing lists from dir, creating it when absent.
// Unreadable or malformed files start the store empty rather than failing;
// device-local data is best-effort by contract.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create localstore directory: %w", err)
	}
	s := &Store{dir: dir}
	s.recurring = loadRecurring(filepath.Join(dir, recurringFile))
	s.labels = loadLabels(filepath.Join(dir, labelsFile))
	return s, nil
}

func (s *Store) Recurring() []core.RecurringExpense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RecurringExpense(nil), s.recurring...)
}

func (s *Store) AddRecurring(re core.RecurringExpense) (core.RecurringExpense, error) {
	if err := re.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}
	re.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recurring = append(s.recurring, re)
	if err := s.saveRecurring(); err != nil {
		s.recurring = s.recurring[:len(s.recurring)-1]
		return core.RecurringExpense{}, err
	}
	return re, nil
}

func (s *Store) UpdateRecurring(id string, re core.RecurringExpense) error {
	re.ID = id
	if err := re.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.recurring {
		if s.recurring[i].ID == id {
			prev := s.recurring[i]
			s.recurring[i] = re
			if err := s.saveRecurring(); err != nil {
				s.recurring[i] = prev
				return err
			}
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) DeleteRecurring(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.recurring {
		if s.recurring[i].ID == id {
			prev := append([]core.RecurringExpense(nil), s.recurring...)
			s.recurring = append(s.recurring[:i], s.recurring[i+1:]...)
			if err := s.saveRecurring(); err != nil {
				s.recurring = prev
				return err
			}
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) Labels() []core.SavedLabel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.SavedLabel(nil), s.labels...)
}

func (s *Store) AddLabel(l core.SavedLabel) (core.SavedLabel, error) {
	if err := l.Validate(); err != nil {
		return core.SavedLabel{}, err
	}
	l.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels = append(s.labels, l)
	if err := s.saveLabels(); err != nil {
		s.labels = s.labels[:len(s.labels)-1]
		return core.SavedLabel{}, err
	}
	return l, nil
}

func (s *Store) DeleteLabel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.labels {
		if s.labels[i].ID == id {
			prev := append([]core.SavedLabel(nil), s.labels...)
			s.labels = append(s.labels[:i], s.labels[i+1:]...)
			if err := s.saveLabels(); err != nil {
				s.labels = prev
				return err
			}
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) saveRecurring() error {
	records := make([]recurringRecord, len(s.recurring))
	for i, re := range s.recurring {
		records[i] = recurringRecord{ID: re.ID, Label: re.Label, Paise: re.Amount.Paise, Category: string(re.Category)}
	}
	return writeJSON(filepath.Join(s.dir, recurringFile), records)
}

func (s *Store) saveLabels() error {
	records := make([]labelRecord, len(s.labels))
	for i, l := range s.labels {
		records[i] = labelRecord{ID: l.ID, Name: l.Name, Paise: l.Amount.Paise, Category: string(l.Category)}
	}
	return writeJSON(filepath.Join(s.dir, labelsFile), records)
}

func loadRecurring(path string) []core.RecurringExpense {
	var records []recurringRecord
	if !readJSON(path, &records) {
		return nil
	}
	out := make([]core.RecurringExpense, 0, len(records))
	for _, r := range records {
		out = append(out, core.RecurringExpense{
			ID:       r.ID,
			Label:    r.Label,
			Amount:   core.Money{Paise: r.Paise},
			Category: core.Category(r.Category),
		})
	}
	return out
}

func loadLabels(path string) []core.SavedLabel {
	var records []labelRecord
	if !readJSON(path, &records) {
		return nil
	}
	out := make([]core.SavedLabel, 0, len(records))
	for _, r := range records {
		out = append(out, core.SavedLabel{
			ID:       r.ID,
			Name:     r.Name,
			Amount:   core.Money{Paise: r.Paise},
			Category: core.Category(r.Category),
		})
	}
	return out
}

func readJSON(path string, v any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// writeJSON writes atomically via a temp file so a crash mid-write never
// truncates the list.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
