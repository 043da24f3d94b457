package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const headerRow = 1

// SheetsStore implements Store on a Google Sheet with columns
// A:G = Customer ID, Name, Phone, First Created, Date, Time, Reason.
type SheetsStore struct {
	svc           *gsheets.Service
	spreadsheetID string
	sheetName     string
	loc           *time.Location
}

// NewSheetsStore connects to the customer spreadsheet using a
// service-account credentials file.
func NewSheetsStore(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, loc *time.Location) (*SheetsStore, error) {
	if strings.TrimSpace(credentialsFile) == "" {
		return nil, fmt.Errorf("ledger: google credentials file is required")
	}
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, fmt.Errorf("ledger: spreadsheet id is required")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Customers"
	}
	if loc == nil {
		loc = time.UTC
	}

	svc, err := gsheets.NewService(ctx, option.WithCredentialsFile(credentialsFile), option.WithScopes(gsheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to create sheets service: %w", err)
	}

	return &SheetsStore{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		loc:           loc,
	}, nil
}

func (s *SheetsStore) readRows(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, fmt.Sprintf("%s!%s", s.sheetName, rng)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to read sheet range %s: %w", rng, err)
	}
	return resp.Values, nil
}

func cell(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	v, _ := row[i].(string)
	return v
}

func recordFromRow(row []interface{}) Record {
	return Record{
		CustomerID: cell(row, 0),
		Name:       cell(row, 1),
		Phone:      cell(row, 2),
		CreatedAt:  cell(row, 3),
		Date:       cell(row, 4),
		Time:       cell(row, 5),
		Reason:     cell(row, 6),
	}
}

// GenerateCustomerID scans column A and returns the next sequential
// identifier, zero-padded to three digits.
func (s *SheetsStore) GenerateCustomerID(ctx context.Context) (string, error) {
	rows, err := s.readRows(ctx, "A:A")
	if err != nil {
		return "", err
	}

	maxNum := 0
	for i, row := range rows {
		if i < headerRow {
			continue
		}
		id := strings.ToUpper(cell(row, 0))
		if !strings.HasPrefix(id, "CUST") {
			continue
		}
		n, convErr := strconv.Atoi(strings.TrimPrefix(id, "CUST"))
		if convErr != nil {
			continue
		}
		if n > maxNum {
			maxNum = n
		}
	}
	return fmt.Sprintf("CUST%03d", maxNum+1), nil
}

// GetCustomerByID scans bottom-up so the most recent row wins.
func (s *SheetsStore) GetCustomerByID(ctx context.Context, customerID string) (*Record, error) {
	rows, err := s.readRows(ctx, "A:G")
	if err != nil {
		return nil, err
	}

	want := strings.ToUpper(strings.TrimSpace(customerID))
	for i := len(rows) - 1; i >= headerRow; i-- {
		if strings.ToUpper(cell(rows[i], 0)) == want {
			rec := recordFromRow(rows[i])
			return &rec, nil
		}
	}
	return nil, nil
}

// GetCustomerByName returns the first row whose name matches,
// case-insensitively.
func (s *SheetsStore) GetCustomerByName(ctx context.Context, name string) (*Record, error) {
	rows, err := s.readRows(ctx, "A:G")
	if err != nil {
		return nil, err
	}

	want := strings.ToLower(strings.TrimSpace(name))
	for i := headerRow; i < len(rows); i++ {
		if strings.ToLower(strings.TrimSpace(cell(rows[i], 1))) == want {
			rec := recordFromRow(rows[i])
			return &rec, nil
		}
	}
	return nil, nil
}

// LogAppointment appends a new row for the customer.
func (s *SheetsStore) LogAppointment(ctx context.Context, rec Record) error {
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().In(s.loc).Format("2006-01-02 15:04:05")
	}
	values := &gsheets.ValueRange{
		Values: [][]interface{}{{rec.CustomerID, rec.Name, rec.Phone, rec.CreatedAt, rec.Date, rec.Time, rec.Reason}},
	}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, fmt.Sprintf("%s!A:G", s.sheetName), values).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("ledger: failed to log appointment for %s: %w", rec.CustomerID, err)
	}
	return nil
}

func (s *SheetsStore) findAppointmentRow(ctx context.Context, customerID, date, timeOfDay string) (int, error) {
	rows, err := s.readRows(ctx, "A:F")
	if err != nil {
		return 0, err
	}

	want := strings.ToUpper(strings.TrimSpace(customerID))
	for i := headerRow; i < len(rows); i++ {
		if strings.ToUpper(cell(rows[i], 0)) == want &&
			cell(rows[i], 4) == date &&
			cell(rows[i], 5) == timeOfDay {
			return i + 1, nil
		}
	}
	return 0, nil
}

// UpdateAppointment rewrites the date and time columns of the matching row.
// Returns false when no row matches the old slot.
func (s *SheetsStore) UpdateAppointment(ctx context.Context, customerID, oldDate, oldTime, newDate, newTime string) (bool, error) {
	rowNum, err := s.findAppointmentRow(ctx, customerID, oldDate, oldTime)
	if err != nil {
		return false, err
	}
	if rowNum == 0 {
		return false, nil
	}

	values := &gsheets.ValueRange{Values: [][]interface{}{{newDate, newTime}}}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, fmt.Sprintf("%s!E%d:F%d", s.sheetName, rowNum, rowNum), values).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return false, fmt.Errorf("ledger: failed to update appointment for %s: %w", customerID, err)
	}
	return true, nil
}

// DeleteAppointment clears the date, time and reason columns, keeping the
// customer row so the identifier and contact details survive cancellation.
func (s *SheetsStore) DeleteAppointment(ctx context.Context, customerID, date, timeOfDay string) (bool, error) {
	rowNum, err := s.findAppointmentRow(ctx, customerID, date, timeOfDay)
	if err != nil {
		return false, err
	}
	if rowNum == 0 {
		return false, nil
	}

	values := &gsheets.ValueRange{Values: [][]interface{}{{"", "", ""}}}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, fmt.Sprintf("%s!E%d:G%d", s.sheetName, rowNum, rowNum), values).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return false, fmt.Errorf("ledger: failed to clear appointment for %s: %w", customerID, err)
	}
	return true, nil
}

// AppointmentsByID returns every row logged under the identifier, in sheet
// order.
func (s *SheetsStore) AppointmentsByID(ctx context.Context, customerID string) ([]Record, error) {
	rows, err := s.readRows(ctx, "A:G")
	if err != nil {
		return nil, err
	}

	want := strings.ToUpper(strings.TrimSpace(customerID))
	var out []Record
	for i := headerRow; i < len(rows); i++ {
		if strings.ToUpper(cell(rows[i], 0)) == want {
			out = append(out, recordFromRow(rows[i]))
		}
	}
	return out, nil
}
