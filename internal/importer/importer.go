package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xavierca1/nivesh-crm/internal/entity"
)

const maxSheetBytes = 32 << 20

var (
	ErrNotPublishedSheet = errors.New("url is not a published sheet CSV link")
	ErrNoContactColumn   = errors.New("header has no name or contact column")
)

// Mapping holds zero-based column indexes. -1 means the column is absent.
type Mapping struct {
	Name       int
	Contact    int
	Email      int
	City       int
	Experience int
	Source     int
	Status     int
	SkipHeader bool
}

// SheetMapping is the layout of the published admissions sheet: a header
// row, then timestamp, name and phone.
var SheetMapping = Mapping{
	Name: 1, Contact: 2,
	Email: -1, City: -1, Experience: -1, Source: -1, Status: -1,
	SkipHeader: true,
}

// DetectMapping builds a mapping from a header row. Column names are matched
// case-insensitively.
func DetectMapping(header []string) (Mapping, error) {
	m := Mapping{Name: -1, Contact: -1, Email: -1, City: -1, Experience: -1, Source: -1, Status: -1, SkipHeader: true}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.Trim(h, `"`))) {
		case "name", "full name", "full_name":
			m.Name = i
		case "phone", "whatsapp", "contact", "mobile", "phone number":
			m.Contact = i
		case "email", "e-mail":
			m.Email = i
		case "city":
			m.City = i
		case "experience":
			m.Experience = i
		case "source", "campaign_source":
			m.Source = i
		case "status", "lead_status":
			m.Status = i
		}
	}
	if m.Name < 0 || m.Contact < 0 {
		return m, ErrNoContactColumn
	}
	return m, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(strings.Trim(row[i], `"`))
}

// ParseCSV reads candidates from r. With a nil mapping the first row is
// treated as a header and the mapping is detected from it. Only blank rows
// are dropped: a row missing its name or contact is passed on so the upsert
// reports it as rejected. The contact is left raw for the normalizer.
func ParseCSV(r io.Reader, m *Mapping) ([]entity.Candidate, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return []entity.Candidate{}, nil
	}

	var mapping Mapping
	if m == nil {
		mapping, err = DetectMapping(records[0])
		if err != nil {
			return nil, err
		}
	} else {
		mapping = *m
	}
	if mapping.SkipHeader {
		records = records[1:]
	}

	out := make([]entity.Candidate, 0, len(records))
	for _, row := range records {
		c := entity.Candidate{
			Name:       cell(row, mapping.Name),
			Contact:    cell(row, mapping.Contact),
			Email:      cell(row, mapping.Email),
			City:       cell(row, mapping.City),
			Experience: cell(row, mapping.Experience),
			Source:     cell(row, mapping.Source),
			Status:     cell(row, mapping.Status),
		}
		if c == (entity.Candidate{}) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// ParsePaste reads one record per line, tab or comma separated: name, then
// contact. Blank lines are ignored; a line without a contact column is kept
// with an empty contact so the upsert rejects it visibly.
func ParsePaste(text string) []entity.Candidate {
	out := []entity.Candidate{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cols := strings.FieldsFunc(line, func(r rune) bool { return r == '\t' || r == ',' })
		var c entity.Candidate
		if len(cols) > 0 {
			c.Name = strings.TrimSpace(cols[0])
		}
		if len(cols) > 1 {
			c.Contact = strings.TrimSpace(cols[1])
		}
		if c.Name == "" && c.Contact == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// IsPublishedSheetURL reports whether url points at a sheet exported with
// "Publish to web" as CSV.
func IsPublishedSheetURL(url string) bool {
	return strings.Contains(url, "/pub?") || strings.Contains(url, "output=csv")
}

// FetchSheet downloads a published sheet and parses it with SheetMapping.
func FetchSheet(ctx context.Context, client *http.Client, url string) ([]entity.Candidate, error) {
	if !IsPublishedSheetURL(url) {
		return nil, ErrNotPublishedSheet
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build sheet request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sheet: unexpected status %d", resp.StatusCode)
	}

	m := SheetMapping
	return ParseCSV(io.LimitReader(resp.Body, maxSheetBytes), &m)
}
