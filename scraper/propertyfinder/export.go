package propertyfinder

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"pf-backoffice/models"
	"pf-backoffice/storage"
	"pf-backoffice/utils"
)

// ExportColumns is the header row of an export. Page and Position record
// where each record appeared in the results.
var ExportColumns = []string{
	"Title", "Price", "Location", "Bedrooms", "Bathrooms", "Size", "Property Type", "Agent",
	"Verified", "Permit Number", "Reference", "Page", "Position", "URL", "Furnishing", "Completion Date",
}

// ExportCSV renders records as CSV with a header row.
func ExportCSV(records []models.ScrapedProperty) ([]byte, error) {
	var buf bytes.Buffer
	w := storage.NewCSVWriter(&buf)
	if err := w.WriteHeader(ExportColumns); err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(records))
	for _, p := range records {
		rows = append(rows, []string{
			p.Title, p.Price, p.Location, p.Bedrooms, p.Bathrooms, p.Size, p.PropertyType, p.Agent,
			strconv.FormatBool(p.Verified), p.PermitNumber, p.ReferenceNumber,
			strconv.Itoa(p.PageNumber), strconv.Itoa(p.PositionOnPage), p.URL, p.Furnishing, p.CompletionDate,
		})
	}
	if err := w.WriteRecords(rows); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFilename names an export of location taken on now's date.
func ExportFilename(location string, now time.Time) string {
	slug := utils.Slugify(ResolveLocation(location))
	if slug == "" {
		slug = "all"
	}
	return fmt.Sprintf("property_finder_%s_%s.csv", slug, now.Format("2006-01-02"))
}
