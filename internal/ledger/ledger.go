// Package ledger keeps the append-only customer appointment log. Rows are
// keyed by a sequential CUSTnnn identifier; a customer's latest row carries
// their current contact details.
package ledger

import "context"

// Record is one ledger row.
type Record struct {
	CustomerID  string `json:"customer_id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	CreatedAt   string `json:"created_date"`
	Date        string `json:"appointment_date"`
	Time        string `json:"appointment_time"`
	Reason      string `json:"appointment_reason"`
}

// Store is the ledger collaborator contract. Lookups by identifier return
// the latest row for that customer so amended contact details win.
type Store interface {
	GenerateCustomerID(ctx context.Context) (string, error)
	GetCustomerByID(ctx context.Context, customerID string) (*Record, error)
	GetCustomerByName(ctx context.Context, name string) (*Record, error)
	LogAppointment(ctx context.Context, rec Record) error
	UpdateAppointment(ctx context.Context, customerID, oldDate, oldTime, newDate, newTime string) (bool, error)
	DeleteAppointment(ctx context.Context, customerID, date, time string) (bool, error)
	AppointmentsByID(ctx context.Context, customerID string) ([]Record, error)
}
