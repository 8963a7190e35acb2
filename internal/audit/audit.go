// Package audit keeps the append-only trail of changes made through the service.
package audit

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Entry is one row in the audit trail.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  int64     `json:"entity_id"`
	Details   string    `json:"details,omitempty"`
}

// Actions recorded by the services.
const (
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionDelete     = "delete"
	ActionPost       = "post"
	ActionReverse    = "reverse"
	ActionLockPeriod = "lock_period"
	ActionImport     = "import"
	ActionPassword   = "set_password"
	ActionDeactivate = "deactivate"
	ActionLogin      = "login"
	ActionLogout     = "logout"
)

// Header is the CSV header of the audit trail.
var Header = []string{"timestamp", "user", "action", "entity", "entity_id", "details"}

// FileName is the name of the trail inside the data directory.
const FileName = "audit-log.csv"

const (
	numFields    = 6
	colTimestamp = 0
	colUser      = 1
	colAction    = 2
	colEntity    = 3
	colEntityID  = 4
	colDetails   = 5
)

// Log appends entries to a CSV file. It is safe for concurrent use.
type Log struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// New returns a Log writing to path. The file is created on first Append.
func New(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Path returns the file backing the log.
func (l *Log) Path() string {
	return l.path
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colUser] = e.User
	row[colAction] = e.Action
	row[colEntity] = e.Entity
	row[colEntityID] = strconv.FormatInt(e.EntityID, 10)
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	var id int64
	if record[colEntityID] != "" {
		id, err = strconv.ParseInt(record[colEntityID], 10, 64)
		if err != nil {
			return Entry{}, fmt.Errorf("parsing entity_id %q: %w", record[colEntityID], err)
		}
	}

	return Entry{
		Timestamp: ts,
		User:      record[colUser],
		Action:    record[colAction],
		Entity:    record[colEntity],
		EntityID:  id,
		Details:   record[colDetails],
	}, nil
}

// Append writes entries to the trail, creating the file and header if needed.
// Entries without a timestamp are stamped with the current time.
func (l *Log) Append(entries ...Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating audit dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(l.path); errors.Is(err, os.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if e.Timestamp.IsZero() {
			e.Timestamp = l.now()
		}
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Filter narrows Read. Zero fields are ignored.
type Filter struct {
	User     string `json:"user,omitempty"`
	Entity   string `json:"entity,omitempty"`
	EntityID int64  `json:"entity_id,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

func (f Filter) match(e Entry) bool {
	if f.User != "" && e.User != f.User {
		return false
	}
	if f.Entity != "" && e.Entity != f.Entity {
		return false
	}
	if f.EntityID != 0 && e.EntityID != f.EntityID {
		return false
	}
	return true
}

// Read returns matching entries, newest first. A missing file yields no entries.
func (l *Log) Read(f Filter) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer file.Close()

	all, err := readEntries(file)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for i := len(all) - 1; i >= 0; i-- {
		if !f.match(all[i]) {
			continue
		}
		out = append(out, all[i])
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
