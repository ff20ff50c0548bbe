package facebook

import (
	"strings"

	"github.com/leadsync/leadsync/internal/models"
)

// fallbackValue is used when a standard contact field is absent.
const fallbackValue = "N/A"

// standardFields are matched case-insensitively and excluded from the
// custom-field map.
var standardFields = map[string]struct{}{
	"full_name":    {},
	"first_name":   {},
	"last_name":    {},
	"name":         {},
	"email":        {},
	"phone_number": {},
	"phone":        {},
}

// RawLead is a lead record as returned by the Graph API.
type RawLead struct {
	ID          string     `json:"id"`
	CreatedTime string     `json:"created_time"`
	FieldData   []RawField `json:"field_data"`
}

// RawField is one entry of a lead's field_data array.
type RawField struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Normalize flattens a raw lead's field array into a Lead.
//
// Name resolves full_name, then first_name, then name; phone resolves
// phone_number, then phone; email has no alternates. Absent fields fall
// back to "N/A", so normalization is total. Every field outside the
// standard set is kept verbatim in CustomFields under its original,
// case-sensitive name.
func Normalize(raw RawLead) models.Lead {
	lead := models.Lead{
		ID:          raw.ID,
		CreatedTime: raw.CreatedTime,
		Name:        firstFieldValue(raw.FieldData, "full_name", "first_name", "name"),
		Email:       firstFieldValue(raw.FieldData, "email"),
		Phone:       firstFieldValue(raw.FieldData, "phone_number", "phone"),
	}

	for _, field := range raw.FieldData {
		if field.Name == "" {
			continue
		}
		if _, ok := standardFields[strings.ToLower(field.Name)]; ok {
			continue
		}
		if lead.CustomFields == nil {
			lead.CustomFields = make(map[string]string)
		}
		lead.CustomFields[field.Name] = firstValue(field)
	}

	return lead
}

// firstFieldValue returns the first value of the first field whose name
// matches any of names, in priority order, or the fallback.
func firstFieldValue(fields []RawField, names ...string) string {
	for _, name := range names {
		for _, field := range fields {
			if strings.EqualFold(field.Name, name) {
				if v := firstValue(field); v != "" {
					return v
				}
			}
		}
	}
	return fallbackValue
}

func firstValue(field RawField) string {
	if len(field.Values) == 0 {
		return ""
	}
	return field.Values[0]
}
