package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"pf-backoffice/metrics"
	"pf-backoffice/models"
	"pf-backoffice/utils"
)

// RequiredColumns must all be present in an import header, in any case.
var RequiredColumns = []string{
	"Reference",
	"Permit_Number",
	"Agent_Name",
	"Property_Type",
	"Location_Name",
	"Title_EN",
	"Description_EN",
	"Bathrooms",
	"Property_Size",
}

// RowError records why one CSV row was not imported. Row is 1-based and
// counts data rows only.
type RowError struct {
	Row       int    `json:"row"`
	Reference string `json:"reference"`
	Error     string `json:"error"`
}

// ImportResult summarises an import run.
type ImportResult struct {
	Processed int        `json:"processed"`
	Created   int        `json:"created"`
	Failed    int        `json:"failed"`
	Errors    []RowError `json:"errors"`
}

// Progress is called after each row with the number of rows done and the total.
type Progress func(done, total int)

// Importer turns CSV files into draft listings.
type Importer struct {
	listings *Listings
	rowDelay time.Duration
	logger   *utils.Logger
	now      func() time.Time
}

// NewImporter creates an Importer. rowDelay is waited between rows.
func NewImporter(listings *Listings, rowDelay time.Duration, logger *utils.Logger) *Importer {
	return &Importer{listings: listings, rowDelay: rowDelay, logger: logger, now: time.Now}
}

// Import reads a CSV with a header row and creates one draft per data row.
// A header missing required columns is rejected before any row is written.
// Row failures are collected and do not stop the run.
func (im *Importer) Import(ctx context.Context, r io.Reader, progress Progress) (*ImportResult, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}

	cols := indexColumns(header)
	if missing := missingColumns(cols); len(missing) > 0 {
		return nil, models.NewValidationError("", "Missing required columns: %s", strings.Join(missing, ", "))
	}

	result := &ImportResult{Errors: make([]RowError, 0)}
	for i, row := range rows {
		if i > 0 && im.rowDelay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(im.rowDelay):
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fields, err := cols.fields(row, i, im.now())
		result.Processed++
		if err == nil {
			_, err = im.listings.Create(ctx, fields)
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RowError{Row: i + 1, Reference: fields.Reference, Error: err.Error()})
			metrics.ImportedRows.WithLabelValues("failed").Inc()
			im.logger.Warn("[importer] row %d (%s) skipped: %v", i+1, fields.Reference, err)
		} else {
			result.Created++
			metrics.ImportedRows.WithLabelValues("created").Inc()
		}

		if progress != nil {
			progress(i+1, len(rows))
		}
	}

	im.logger.Info("[importer] processed %d rows: %d created, %d failed",
		result.Processed, result.Created, result.Failed)
	return result, nil
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, models.NewValidationError("file", "CSV file is empty")
	}
	if err != nil {
		return nil, nil, models.NewValidationError("file", "invalid CSV: %v", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, models.NewValidationError("file", "invalid CSV: %v", err)
		}
		if blank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// columns maps lower-cased header names to their position.
type columns map[string]int

func indexColumns(header []string) columns {
	cols := make(columns, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return cols
}

func missingColumns(cols columns) []string {
	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := cols[strings.ToLower(name)]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func (c columns) get(row []string, name string) string {
	i, ok := c[strings.ToLower(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c columns) fields(row []string, index int, now time.Time) (models.ListingFields, error) {
	f := models.ListingFields{
		Reference:      c.get(row, "Reference"),
		PermitNumber:   c.get(row, "Permit_Number"),
		AgentName:      c.get(row, "Agent_Name"),
		PropertyType:   c.get(row, "Property_Type"),
		LocationName:   c.get(row, "Location_Name"),
		Title:          c.get(row, "Title_EN"),
		Description:    c.get(row, "Description_EN"),
		Bathrooms:      c.get(row, "Bathrooms"),
		Size:           c.get(row, "Property_Size"),
		Price:          c.get(row, "Price"),
		Bedrooms:       c.get(row, "Bedrooms"),
		OfferingType:   c.get(row, "Offering_Type"),
		FurnishingType: c.get(row, "Furnishing"),
		ProjectStatus:  c.get(row, "Project_Status"),
	}
	if f.Reference == "" {
		f.Reference = fmt.Sprintf("REF-%d-%d", now.UnixMilli(), index)
	}
	if f.Price == "" {
		f.Price = "0"
	}
	for _, u := range strings.Split(c.get(row, "Images"), "|") {
		if u = strings.TrimSpace(u); u != "" {
			f.Images = append(f.Images, u)
		}
	}
	if v := c.get(row, "Location_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, models.NewValidationError("Location_ID", "%q is not a number", v)
		}
		f.LocationID = &id
	}
	return f, nil
}
