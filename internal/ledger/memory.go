package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps the ledger in process, preserving the sheet's
// append-only row semantics. Used by tests and the local console agent.
type MemoryStore struct {
	mu   sync.Mutex
	rows []Record
	loc  *time.Location
}

// NewMemoryStore builds an empty in-memory ledger.
func NewMemoryStore(loc *time.Location) *MemoryStore {
	if loc == nil {
		loc = time.UTC
	}
	return &MemoryStore{loc: loc}
}

func (m *MemoryStore) GenerateCustomerID(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	maxNum := 0
	for _, rec := range m.rows {
		id := strings.ToUpper(rec.CustomerID)
		if !strings.HasPrefix(id, "CUST") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(id, "CUST"))
		if err != nil {
			continue
		}
		if n > maxNum {
			maxNum = n
		}
	}
	return fmt.Sprintf("CUST%03d", maxNum+1), nil
}

func (m *MemoryStore) GetCustomerByID(_ context.Context, customerID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := strings.ToUpper(strings.TrimSpace(customerID))
	for i := len(m.rows) - 1; i >= 0; i-- {
		if strings.ToUpper(m.rows[i].CustomerID) == want {
			rec := m.rows[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) GetCustomerByName(_ context.Context, name string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := strings.ToLower(strings.TrimSpace(name))
	for _, rec := range m.rows {
		if strings.ToLower(strings.TrimSpace(rec.Name)) == want {
			cp := rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) LogAppointment(_ context.Context, rec Record) error {
	if rec.CustomerID == "" {
		return fmt.Errorf("ledger: customer id is required to log an appointment")
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().In(m.loc).Format("2006-01-02 15:04:05")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rec)
	return nil
}

func (m *MemoryStore) UpdateAppointment(_ context.Context, customerID, oldDate, oldTime, newDate, newTime string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := strings.ToUpper(strings.TrimSpace(customerID))
	for i := range m.rows {
		if strings.ToUpper(m.rows[i].CustomerID) == want &&
			m.rows[i].Date == oldDate && m.rows[i].Time == oldTime {
			m.rows[i].Date = newDate
			m.rows[i].Time = newTime
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) DeleteAppointment(_ context.Context, customerID, date, timeOfDay string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := strings.ToUpper(strings.TrimSpace(customerID))
	for i := range m.rows {
		if strings.ToUpper(m.rows[i].CustomerID) == want &&
			m.rows[i].Date == date && m.rows[i].Time == timeOfDay {
			m.rows[i].Date = ""
			m.rows[i].Time = ""
			m.rows[i].Reason = ""
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) AppointmentsByID(_ context.Context, customerID string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := strings.ToUpper(strings.TrimSpace(customerID))
	var out []Record
	for _, rec := range m.rows {
		if strings.ToUpper(rec.CustomerID) == want {
			out = append(out, rec)
		}
	}
	return out, nil
}
