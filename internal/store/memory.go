package store

import (
	"context"
	"sort"
	"sync"

	"medstore/m/domain"
)

// MemoryStore keeps records in process memory with the same semantics as
// SQLiteStore. Ids are never reused, matching AUTOINCREMENT.
type MemoryStore struct {
	mu      sync.Mutex
	records []domain.MedicineRecord
	lastID  int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Insert(ctx context.Context, name, location, category, expiryDate string) (domain.MedicineRecord, error) {
	return m.Restore(ctx, domain.MedicineRecord{Name: name, Location: location, Category: category, ExpiryDate: expiryDate})
}

func (m *MemoryStore) Restore(_ context.Context, rec domain.MedicineRecord) (domain.MedicineRecord, error) {
	if !rec.Complete() {
		return domain.MedicineRecord{}, ErrIncompleteRecord
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.records {
		if rec.ID != 0 && existing.ID == rec.ID {
			return domain.MedicineRecord{}, ErrDuplicateID
		}
		if existing.Name == rec.Name {
			return domain.MedicineRecord{}, ErrDuplicateName
		}
	}
	if rec.ID == 0 {
		rec.ID = m.lastID + 1
	}
	if rec.ID > m.lastID {
		m.lastID = rec.ID
	}
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *MemoryStore) ListAll(context.Context) ([]domain.MedicineRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.MedicineRecord, len(m.records))
	copy(out, m.records)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) ListExpiring(ctx context.Context, onOrBefore string) ([]domain.MedicineRecord, error) {
	all, _ := m.ListAll(ctx)
	out := []domain.MedicineRecord{}
	for _, rec := range all {
		if rec.ExpiryDate <= onOrBefore {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpiryDate < out[j].ExpiryDate })
	return out, nil
}

func (m *MemoryStore) DeleteByName(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	var removed int64
	for _, rec := range m.records {
		if rec.Name == name {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	m.records = kept
	return removed, nil
}
