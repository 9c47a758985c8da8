package state

import (
	"strings"

	"github.com/tidwall/gjson"
)

const (
	FieldName     = "name"
	FieldContact  = "contact"
	FieldPlatform = "platform"
)

// LeadFields is the fixed record key order.
var LeadFields = []string{FieldName, FieldContact, FieldPlatform}

// LeadData holds the three lead fields; nil means absent.
type LeadData struct {
	Name     *string `json:"name"`
	Contact  *string `json:"contact"`
	Platform *string `json:"platform"`
}

func NewLeadData(name, contact, platform string) LeadData {
	return LeadData{
		Name:     optional(name),
		Contact:  optional(contact),
		Platform: optional(platform),
	}
}

// Get returns the field value and whether it is present and non-empty.
func (l LeadData) Get(field string) (string, bool) {
	var v *string
	switch field {
	case FieldName:
		v = l.Name
	case FieldContact:
		v = l.Contact
	case FieldPlatform:
		v = l.Platform
	default:
		return "", false
	}
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", false
	}
	return *v, true
}

func (l *LeadData) set(field string, v *string) {
	switch field {
	case FieldName:
		l.Name = v
	case FieldContact:
		l.Contact = v
	case FieldPlatform:
		l.Platform = v
	}
}

// Complete is true iff every field is present and non-empty.
func (l LeadData) Complete() bool {
	return len(l.Missing()) == 0
}

// Empty is true iff no field is present.
func (l LeadData) Empty() bool {
	return len(l.Missing()) == len(LeadFields)
}

// Missing lists absent fields in record key order.
func (l LeadData) Missing() []string {
	missing := make([]string, 0, len(LeadFields))
	for _, f := range LeadFields {
		if _, ok := l.Get(f); !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

func (l LeadData) Map() map[string]any {
	out := make(map[string]any, len(LeadFields))
	for _, f := range LeadFields {
		if v, ok := l.Get(f); ok {
			out[f] = v
		} else {
			out[f] = nil
		}
	}
	return out
}

func (l LeadData) Clone() LeadData {
	var out LeadData
	for _, f := range LeadFields {
		if v, ok := l.Get(f); ok {
			out.set(f, &v)
		}
	}
	return out
}

// ParseLeadRecord decodes model output into LeadData. It tolerates code fences,
// a leading "json" label, surrounding prose, mixed-case keys and numeric values.
// On failure it returns the all-null record together with ErrMalformedRecord.
func ParseLeadRecord(raw string) (LeadData, error) {
	body := stripFences(raw)
	if !gjson.Valid(body) {
		start := strings.Index(body, "{")
		end := strings.LastIndex(body, "}")
		if start < 0 || end <= start {
			return LeadData{}, ErrMalformedRecord
		}
		body = body[start : end+1]
		if !gjson.Valid(body) {
			return LeadData{}, ErrMalformedRecord
		}
	}

	parsed := gjson.Parse(body)
	if !parsed.IsObject() {
		return LeadData{}, ErrMalformedRecord
	}

	var out LeadData
	parsed.ForEach(func(key, value gjson.Result) bool {
		field := strings.ToLower(strings.TrimSpace(key.String()))
		switch value.Type {
		case gjson.String:
			out.set(field, optional(value.String()))
		case gjson.Number:
			out.set(field, optional(value.Raw))
		}
		return true
	})
	return out, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)
	if len(s) > 4 && strings.EqualFold(s[:4], "json") && !strings.HasPrefix(s, "{") {
		s = strings.TrimSpace(s[4:])
	}
	return s
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// HumanList joins items as "a", "a and b" or "a, b and c".
func HumanList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
