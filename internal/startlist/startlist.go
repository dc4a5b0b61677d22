// Package startlist imports and serves the participant list of an
// event. The engine never mutates rows; it only joins them against
// entries and DNF/DNS records for the status view.
package startlist

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/simhaf82/Handtiming/internal/store"
	"github.com/simhaf82/Handtiming/internal/timing"
)

// Service wraps the startlist snapshots.
type Service struct {
	store store.Store
}

// New returns a startlist service.
func New(st store.Store) *Service {
	return &Service{store: st}
}

// Rows returns the imported startlist in file order.
func (s *Service) Rows(ctx context.Context, eventID string) ([]timing.StartlistRow, error) {
	rows, err := s.store.Startlist(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []timing.StartlistRow{}
	}
	return rows, nil
}

// Import parses an uploaded CSV and replaces the event's startlist.
// Expected columns: start number, last name, first name, gender, year of
// birth; separator `;` or `,`; an optional header row is skipped.
func (s *Service) Import(ctx context.Context, eventID string, file io.Reader) ([]timing.StartlistRow, error) {
	rows, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", timing.ErrValidation, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: startlist file has no rows", timing.ErrValidation)
	}
	if err := s.store.SaveStartlist(ctx, eventID, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes the event's startlist.
func (s *Service) Delete(ctx context.Context, eventID string) error {
	return s.store.DeleteStartlist(ctx, eventID)
}

// Parse reads startlist rows from CSV data. The separator is sniffed
// from the first line.
func Parse(file io.Reader) ([]timing.StartlistRow, error) {
	br := bufio.NewReader(file)
	first, err := br.Peek(1024)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	sep := ';'
	if line, _, ok := strings.Cut(string(first), "\n"); ok || len(line) > 0 {
		if !strings.ContainsRune(line, ';') && strings.ContainsRune(line, ',') {
			sep = ','
		}
	}

	r := csv.NewReader(br)
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows []timing.StartlistRow
	for lineNo := 1; ; lineNo++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", lineNo, err)
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		if lineNo == 1 && isHeader(record) {
			continue
		}
		row := timing.StartlistRow{StartNumber: strings.TrimSpace(record[0])}
		if len(record) > 1 {
			row.LastName = strings.TrimSpace(record[1])
		}
		if len(record) > 2 {
			row.FirstName = strings.TrimSpace(record[2])
		}
		if len(record) > 3 {
			row.Gender = strings.TrimSpace(record[3])
		}
		if len(record) > 4 {
			row.YearOfBirth = strings.TrimSpace(record[4])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isHeader(record []string) bool {
	head := strings.ToLower(strings.TrimSpace(record[0]))
	switch head {
	case "startnummer", "startnumber", "start number", "nr", "nummer":
		return true
	}
	return false
}
