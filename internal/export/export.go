// Package export renders stored leads as CSV or pretty-printed JSON.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/leadsync/leadsync/internal/models"
)

// baseHeader is the fixed leading column set of every CSV export.
var baseHeader = []string{"Lead ID", "Name", "Email", "Phone", "Created Time", "Form ID", "Imported At"}

// Filename returns the download filename for an export at the given
// instant, e.g. facebook-leads-1756680000000.csv.
func Filename(now time.Time, extension string) string {
	return fmt.Sprintf("facebook-leads-%d.%s", now.UnixMilli(), extension)
}

// ToCSV renders leads as CSV. The custom-field columns are taken from
// the first lead, sorted by name, so the schema is stable within one
// export even when later leads carry different extras.
func ToCSV(leads []models.Lead) ([]byte, error) {
	var customColumns []string
	if len(leads) > 0 {
		for key := range leads[0].CustomFields {
			customColumns = append(customColumns, key)
		}
		sort.Strings(customColumns)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append(append([]string{}, baseHeader...), customColumns...)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, lead := range leads {
		row := []string{
			lead.ID,
			lead.Name,
			lead.Email,
			lead.Phone,
			lead.CreatedTime,
			lead.FormID,
			lead.ImportedAt.Format(time.RFC3339),
		}
		for _, column := range customColumns {
			row = append(row, lead.CustomFields[column])
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToJSON renders leads as indented JSON.
func ToJSON(leads []models.Lead) ([]byte, error) {
	return json.MarshalIndent(leads, "", "  ")
}
