// ABOUTME: Schema definitions for the resource table screens.
// ABOUTME: Descriptors declare collections and fields; the admin UI renders from them.

package resource

import "strings"

// FieldKind controls how a field is rendered and how its input is coerced.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindNumber   FieldKind = "number"
	KindPassword FieldKind = "password"
	KindEnum     FieldKind = "enum"
)

// FieldDescriptor defines one editable field of a resource.
type FieldDescriptor struct {
	Name        string    // "product_name", "unit_price"
	Kind        FieldKind // input kind, defaults to text
	Placeholder string
	Note        string   // help text shown next to the label in update mode
	Options     []string // enum choices
	Sensitive   bool     // redacted in tables, omitted from updates when blank
}

// Label returns the human readable field name ("unit_price" -> "Unit price").
func (f FieldDescriptor) Label() string {
	return Humanize(f.Name)
}

// InputType maps the field kind to an HTML input type.
func (f FieldDescriptor) InputType() string {
	switch f.Kind {
	case KindNumber:
		return "number"
	case KindPassword:
		return "password"
	default:
		return "text"
	}
}

// ResourceDescriptor defines a selectable collection (products, users, ...).
type ResourceDescriptor struct {
	Name    string // URL path segment on the remote API
	Title   string
	IDField string // identifier column; first row key when empty
	Fields  []FieldDescriptor
	// ListColumns limits and orders the table columns; empty shows every
	// key of the fetched rows.
	ListColumns []string
	CanWrite    bool // create and update offered
	CanDelete   bool
}

// DisplayTitle returns Title or a humanized Name.
func (d ResourceDescriptor) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return Humanize(d.Name)
}

// Singular returns the resource name without a trailing "s" for form titles.
func (d ResourceDescriptor) Singular() string {
	return strings.TrimSuffix(d.Name, "s")
}

// Declared reports whether the descriptor carries an explicit field schema.
func (d ResourceDescriptor) Declared() bool {
	return len(d.Fields) > 0
}

// Field looks up a declared field by name.
func (d ResourceDescriptor) Field(name string) (FieldDescriptor, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// FormFields returns the fields rendered in the add/update form. The declared
// schema wins; otherwise fields are inferred from the sample row and are all
// rendered as text since an inferred schema cannot tell kinds apart.
func (d ResourceDescriptor) FormFields(sample *Row) []FieldDescriptor {
	if d.Declared() {
		return d.Fields
	}
	return d.InferFields(sample)
}

// InferFields builds text fields from a row's keys, skipping the identifier,
// other id columns and timestamps.
func (d ResourceDescriptor) InferFields(sample *Row) []FieldDescriptor {
	if sample == nil {
		return nil
	}
	idKey := d.identifierKey(*sample)
	var fields []FieldDescriptor
	for _, key := range sample.Keys() {
		if key == idKey || isIDColumn(key) || strings.Contains(key, "created_at") {
			continue
		}
		fields = append(fields, FieldDescriptor{
			Name:      key,
			Kind:      KindText,
			Sensitive: strings.Contains(key, "password"),
		})
	}
	return fields
}

// Columns returns the table columns for rows.
func (d ResourceDescriptor) Columns(rows []Row) []string {
	if len(d.ListColumns) > 0 {
		return d.ListColumns
	}
	if len(rows) == 0 {
		return nil
	}
	return rows[0].Keys()
}

// IsSensitive reports whether a column must be redacted in read views.
func (d ResourceDescriptor) IsSensitive(column string) bool {
	if f, ok := d.Field(column); ok && f.Sensitive {
		return true
	}
	return strings.Contains(column, "password")
}

// IdentifierOf extracts the row identifier as a string.
func (d ResourceDescriptor) IdentifierOf(row Row) (string, bool) {
	key := d.identifierKey(row)
	if key == "" {
		return "", false
	}
	v, ok := row.Get(key)
	if !ok || v == nil {
		return "", false
	}
	id := FormatValue(v)
	return id, id != ""
}

func (d ResourceDescriptor) identifierKey(row Row) string {
	if d.IDField != "" {
		if _, ok := row.Get(d.IDField); ok {
			return d.IDField
		}
	}
	keys := row.Keys()
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

func isIDColumn(key string) bool {
	return key == "id" || strings.HasSuffix(key, "_id")
}

// Humanize turns a snake_case column name into a label.
func Humanize(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
