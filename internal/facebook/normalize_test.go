package facebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNamePriority(t *testing.T) {
	tests := []struct {
		name   string
		fields []RawField
		want   string
	}{
		{
			name: "full_name wins",
			fields: []RawField{
				{Name: "name", Values: []string{"Short"}},
				{Name: "full_name", Values: []string{"Jane Doe"}},
				{Name: "first_name", Values: []string{"Jane"}},
			},
			want: "Jane Doe",
		},
		{
			name: "first_name before name",
			fields: []RawField{
				{Name: "name", Values: []string{"Short"}},
				{Name: "first_name", Values: []string{"Jane"}},
			},
			want: "Jane",
		},
		{
			name: "case insensitive match",
			fields: []RawField{
				{Name: "FULL_NAME", Values: []string{"Jane Doe"}},
			},
			want: "Jane Doe",
		},
		{
			name:   "missing falls back",
			fields: []RawField{{Name: "email", Values: []string{"x@y.com"}}},
			want:   "N/A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead := Normalize(RawLead{ID: "L1", FieldData: tt.fields})
			assert.Equal(t, tt.want, lead.Name)
		})
	}
}

func TestNormalizePhonePriority(t *testing.T) {
	lead := Normalize(RawLead{ID: "L1", FieldData: []RawField{
		{Name: "phone", Values: []string{"+2"}},
		{Name: "phone_number", Values: []string{"+1"}},
	}})
	assert.Equal(t, "+1", lead.Phone)

	lead = Normalize(RawLead{ID: "L1", FieldData: []RawField{
		{Name: "phone", Values: []string{"+2"}},
	}})
	assert.Equal(t, "+2", lead.Phone)
}

func TestNormalizeIsTotal(t *testing.T) {
	lead := Normalize(RawLead{ID: "L1", CreatedTime: "2024-01-15T10:00:00+0000"})

	assert.Equal(t, "N/A", lead.Name)
	assert.Equal(t, "N/A", lead.Email)
	assert.Equal(t, "N/A", lead.Phone)
	assert.Equal(t, "2024-01-15T10:00:00+0000", lead.CreatedTime)
	assert.Empty(t, lead.CustomFields)
}

func TestNormalizeCustomFields(t *testing.T) {
	lead := Normalize(RawLead{ID: "L1", FieldData: []RawField{
		{Name: "email", Values: []string{"x@y.com"}},
		{Name: "last_name", Values: []string{"Doe"}},
		{Name: "Company_Size", Values: []string{"50-100"}},
		{Name: "budget", Values: []string{"1000", "2000"}},
	}})

	assert.Equal(t, "x@y.com", lead.Email)
	// Standard fields, last_name included, never leak into extras; the
	// original key casing is preserved; only the first value is kept.
	assert.Equal(t, map[string]string{
		"Company_Size": "50-100",
		"budget":       "1000",
	}, lead.CustomFields)
}

func TestNormalizeTakesFirstValue(t *testing.T) {
	lead := Normalize(RawLead{ID: "L1", FieldData: []RawField{
		{Name: "email", Values: []string{"first@y.com", "second@y.com"}},
	}})
	assert.Equal(t, "first@y.com", lead.Email)
}
