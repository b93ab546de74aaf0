package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Jahansayem/agencydesk/internal/crosssell"
	"github.com/Jahansayem/agencydesk/internal/database"
	"github.com/Jahansayem/agencydesk/internal/errors"
)

// Importer parses and validates customer CSV uploads.
type Importer struct {
	repo    *database.Repository
	maxRows int
}

// NewImporter creates a CSV importer.
func NewImporter(repo *database.Repository) *Importer {
	return &Importer{
		repo:    repo,
		maxRows: 5000,
	}
}

// RowError describes why one CSV row was rejected. Line numbers are 1-based
// and include the header line.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Result summarizes an import. Accepted rows are persisted; rejected rows are
// reported per line so the upload can be fixed and retried.
type Result struct {
	Accepted int        `json:"accepted"`
	Rejected int        `json:"rejected"`
	Errors   []RowError `json:"errors,omitempty"`
}

var requiredColumns = []string{"name", "tenure_months", "product_count", "retention_score", "engagement"}

var validEngagement = map[string]bool{
	string(crosssell.EngagementHigh):   true,
	string(crosssell.EngagementMedium): true,
	string(crosssell.EngagementLow):    true,
}

// Import reads a customer CSV and stores the valid rows for the agency.
// Rows are validated independently; one bad row never fails the upload.
func (i *Importer) Import(agencyID string, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewValidationError("CSV file is empty")
	}
	if err != nil {
		return nil, errors.NewValidationError("failed to read CSV header", err.Error())
	}

	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var accepted []*database.Customer

	line := 1
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, RowError{Line: line, Message: "malformed CSV row"})
			continue
		}

		if len(accepted) >= i.maxRows {
			return nil, errors.NewValidationError(fmt.Sprintf("import exceeds %d row limit", i.maxRows))
		}

		customer, rowErr := parseRow(agencyID, record, columns)
		if rowErr != "" {
			result.Rejected++
			result.Errors = append(result.Errors, RowError{Line: line, Message: rowErr})
			continue
		}

		accepted = append(accepted, customer)
	}

	if err := i.repo.BulkCreateCustomers(accepted); err != nil {
		return nil, errors.NewInternalError("failed to store imported customers", err)
	}

	result.Accepted = len(accepted)
	return result, nil
}

// mapColumns resolves header names to indexes, case-insensitively.
func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for idx, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = idx
	}

	var missing []string
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewValidationError("missing required columns", strings.Join(missing, ", "))
	}

	return columns, nil
}

func parseRow(agencyID string, record []string, columns map[string]int) (*database.Customer, string) {
	get := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	name := get("name")
	if name == "" {
		return nil, "name is required"
	}

	tenure, err := strconv.Atoi(get("tenure_months"))
	if err != nil || tenure < 0 {
		return nil, "tenure_months must be a non-negative integer"
	}

	products, err := strconv.Atoi(get("product_count"))
	if err != nil || products < 0 {
		return nil, "product_count must be a non-negative integer"
	}

	retention, err := strconv.ParseFloat(get("retention_score"), 64)
	if err != nil || retention < 0 || retention > 1 {
		return nil, "retention_score must be a number between 0 and 1"
	}

	engagement := strings.ToLower(get("engagement"))
	if !validEngagement[engagement] {
		return nil, "engagement must be high, medium, or low"
	}

	customer := database.NewCustomer(agencyID, name)
	customer.Email = get("email")
	customer.TenureMonths = tenure
	customer.ProductCount = products
	customer.RetentionScore = retention
	customer.Engagement = engagement

	// Optional signals: empty cells stay NULL, so the scorer falls back to
	// its neutral score.
	if raw := get("claims_satisfied"); raw != "" {
		satisfied, err := parseBool(raw)
		if err != nil {
			return nil, "claims_satisfied must be yes/no or true/false"
		}
		customer.ClaimsSatisfied = &satisfied
	}

	if raw := get("nps"); raw != "" {
		nps, err := strconv.Atoi(raw)
		if err != nil || nps < -100 || nps > 100 {
			return nil, "nps must be an integer between -100 and 100"
		}
		customer.NPS = &nps
	}

	return customer, ""
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "yes", "true", "1", "y":
		return true, nil
	case "no", "false", "0", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean: %s", raw)
}
