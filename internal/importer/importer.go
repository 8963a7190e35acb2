// Package importer turns bank statement exports into draft journal
// transactions for review.
package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bukubesar/internal/model"
)

// StatementLine is one row of a bank statement. Amount is positive for money
// coming into the account and negative for money going out.
type StatementLine struct {
	Date        civil.Date
	Description string
	Amount      decimal.Decimal
	Reference   string
}

// Parser converts a bank statement file into StatementLines.
type Parser interface {
	Parse(r io.Reader) ([]StatementLine, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file waiting in an import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats lists the registered format names.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&GenericParser{})
	r.Register(&BCAParser{})
	return r
}

const processedDir = "processed"

// Scan returns the CSV files directly inside dir.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from dir to dir/processed/.
func MarkProcessed(dir, fileName string) error {
	dstDir := filepath.Join(dir, processedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	if err := os.Rename(filepath.Join(dir, fileName), filepath.Join(dstDir, fileName)); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// Drafts turns statement lines into balanced draft transactions. Money in
// becomes a cash receipt (KM) debiting bankAccountID; money out becomes a
// cash payment (KK) crediting it. counterAccountID takes the other side and
// is meant to be reclassified during review. Zero lines are skipped.
func Drafts(companyID int64, lines []StatementLine, bankAccountID, counterAccountID int64) []model.Transaction {
	var txns []model.Transaction
	for _, l := range lines {
		if l.Amount.IsZero() {
			continue
		}
		amount := l.Amount.Abs()

		t := model.Transaction{
			CompanyID:   companyID,
			Type:        model.TypeCashReceipt,
			Date:        l.Date,
			Description: l.Description,
			Reference:   l.Reference,
			Status:      model.StatusDraft,
		}
		bank := model.Detail{AccountID: bankAccountID, Description: l.Description}
		counter := model.Detail{AccountID: counterAccountID, Description: l.Description}
		if l.Amount.IsPositive() {
			bank.Debit = amount
			counter.Credit = amount
			t.Details = []model.Detail{bank, counter}
		} else {
			t.Type = model.TypeCashPayment
			counter.Debit = amount
			bank.Credit = amount
			t.Details = []model.Detail{counter, bank}
		}
		t.Recompute()
		txns = append(txns, t)
	}
	return txns
}

// uniqueRefs suffixes repeated references with -2, -3, ... in file order,
// so identical rows on one statement stay distinct and a re-import of the
// same file yields the same references.
func uniqueRefs(lines []StatementLine) {
	count := make(map[string]int, len(lines))
	for i := range lines {
		ref := lines[i].Reference
		count[ref]++
		if n := count[ref]; n > 1 {
			lines[i].Reference = fmt.Sprintf("%s-%d", ref, n)
		}
	}
}

// makeRef creates a reference like bca_20250103_TRSFEBANKI.
func makeRef(format string, date civil.Date, desc string) string {
	prefix := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, desc)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("%s_%04d%02d%02d_%s", format, date.Year, int(date.Month), date.Day, prefix)
}
