// ABOUTME: Schema-based HTML renderer for the resource table screens.
// ABOUTME: Generates Tailwind-styled tables and htmx forms from resource descriptors.

package admin

import (
	"fmt"
	"html"
	"net/url"
	"slices"
	"strings"

	"github.com/2389/xylen/internal/controller"
	"github.com/2389/xylen/internal/resource"
)

const (
	redacted   = "********"
	emptyValue = "—"
)

// RenderResourceTable generates the rows table for a descriptor. base is the
// view's action prefix, e.g. /admin/tables/{view}.
func RenderResourceTable(desc resource.ResourceDescriptor, rows []resource.Row, base string) string {
	var sb strings.Builder
	columns := desc.Columns(rows)
	hasActions := desc.CanWrite || desc.CanDelete

	sb.WriteString(`<table class="min-w-full divide-y divide-gray-200">`)
	sb.WriteString(`<thead class="bg-gray-50"><tr>`)
	for _, col := range columns {
		sb.WriteString(fmt.Sprintf(`<th class="px-6 py-3 text-left text-xs font-medium text-gray-500 uppercase">%s</th>`,
			html.EscapeString(resource.Humanize(col))))
	}
	if hasActions {
		sb.WriteString(`<th class="px-6 py-3 text-right text-xs font-medium text-gray-500 uppercase">Actions</th>`)
	}
	sb.WriteString(`</tr></thead>`)
	sb.WriteString(`<tbody class="bg-white divide-y divide-gray-200">`)

	if len(rows) == 0 {
		span := len(columns)
		if hasActions {
			span++
		}
		if span == 0 {
			span = 1
		}
		sb.WriteString(fmt.Sprintf(`<tr><td colspan="%d" class="px-6 py-4 text-sm text-gray-400">No records</td></tr>`, span))
	}

	for _, row := range rows {
		sb.WriteString(`<tr>`)
		for _, col := range columns {
			sb.WriteString(fmt.Sprintf(`<td class="px-6 py-4 whitespace-nowrap text-sm text-gray-900">%s</td>`,
				html.EscapeString(displayValue(desc, row, col))))
		}
		if hasActions {
			sb.WriteString(`<td class="px-6 py-4 whitespace-nowrap text-right text-sm space-x-3">`)
			if id, ok := desc.IdentifierOf(row); ok {
				sb.WriteString(RenderRowActions(desc, id, base))
			}
			sb.WriteString(`</td>`)
		}
		sb.WriteString(`</tr>`)
	}

	sb.WriteString(`</tbody></table>`)
	return sb.String()
}

// RenderRowActions generates the Update and Delete buttons the descriptor allows.
func RenderRowActions(desc resource.ResourceDescriptor, id, base string) string {
	var parts []string
	if desc.CanWrite {
		parts = append(parts, actionForm(base+"/form", "Update", "text-blue-600 hover:text-blue-900", "",
			map[string]string{"mode": string(controller.ModeUpdate), "id": id}))
	}
	if desc.CanDelete {
		parts = append(parts, actionForm(base+"/delete/"+url.PathEscape(id), "Delete", "text-red-600 hover:text-red-900",
			fmt.Sprintf("Delete %s %s?", desc.Singular(), id), nil))
	}
	return strings.Join(parts, " ")
}

// RenderResourceForm generates the add/update form for the open form state.
func RenderResourceForm(desc resource.ResourceDescriptor, form controller.FormState, base string) string {
	if !form.Open {
		return ""
	}
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<form method="post" action="%s" hx-post="%s" hx-target="#table-view" hx-swap="outerHTML" class="bg-white rounded-lg shadow p-6 space-y-4 max-w-2xl">`,
		html.EscapeString(base+"/submit"), html.EscapeString(base+"/submit")))
	sb.WriteString(fmt.Sprintf(`<h3 class="text-lg font-semibold text-gray-900">%s %s record</h3>`,
		html.EscapeString(string(form.Mode)), html.EscapeString(desc.Singular())))

	for _, field := range form.Schema {
		sb.WriteString(`<div>`)
		label := html.EscapeString(field.Label())
		if form.Mode == controller.ModeUpdate && field.Note != "" {
			label += ` <span class="text-xs text-gray-400">` + html.EscapeString(field.Note) + `</span>`
		}
		sb.WriteString(fmt.Sprintf(`<label class="block text-sm font-medium text-gray-700">%s</label>`, label))
		sb.WriteString(renderInput(field, form.Fields[field.Name], base+"/field"))
		sb.WriteString(`</div>`)
	}

	sb.WriteString(`<div class="flex gap-4">`)
	sb.WriteString(`<button type="submit" class="px-4 py-2 bg-purple-600 text-white rounded hover:bg-purple-700">Save</button>`)
	sb.WriteString(fmt.Sprintf(`<button type="submit" formaction="%s" hx-post="%s" class="px-4 py-2 bg-gray-200 text-gray-700 rounded hover:bg-gray-300">Cancel</button>`,
		html.EscapeString(base+"/cancel"), html.EscapeString(base+"/cancel")))
	sb.WriteString(`</div>`)

	sb.WriteString(`</form>`)
	return sb.String()
}

func renderInput(field resource.FieldDescriptor, value any, fieldURL string) string {
	name := html.EscapeString(field.Name)
	sync := fmt.Sprintf(`hx-post="%s" hx-trigger="change" hx-swap="none"`, html.EscapeString(fieldURL))
	class := `class="mt-1 block w-full rounded border-gray-300 shadow-sm px-3 py-2 border"`
	current := resource.FormatValue(value)

	switch field.Kind {
	case resource.KindEnum:
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf(`<select name="%s" %s %s>`, name, sync, class))
		sb.WriteString(`<option value="">Select...</option>`)
		options := field.Options
		if current != "" && !slices.Contains(options, current) {
			options = append(slices.Clone(options), current)
		}
		for _, opt := range options {
			selected := ""
			if opt == current {
				selected = " selected"
			}
			sb.WriteString(fmt.Sprintf(`<option value="%s"%s>%s</option>`,
				html.EscapeString(opt), selected, html.EscapeString(opt)))
		}
		sb.WriteString(`</select>`)
		return sb.String()

	default:
		attrs := ""
		if field.Kind == resource.KindNumber {
			attrs = ` step="any"`
		}
		if field.Placeholder != "" {
			attrs += fmt.Sprintf(` placeholder="%s"`, html.EscapeString(field.Placeholder))
		}
		if current != "" {
			attrs += fmt.Sprintf(` value="%s"`, html.EscapeString(current))
		}
		return fmt.Sprintf(`<input type="%s" name="%s"%s %s %s>`, field.InputType(), name, attrs, sync, class)
	}
}

// actionForm renders a one-button form that works with and without htmx.
func actionForm(action, label, class, confirm string, values map[string]string) string {
	var sb strings.Builder
	escaped := html.EscapeString(action)
	confirmAttr := ""
	if confirm != "" {
		confirmAttr = fmt.Sprintf(` hx-confirm="%s"`, html.EscapeString(confirm))
	}
	sb.WriteString(fmt.Sprintf(`<form method="post" action="%s" hx-post="%s" hx-target="#table-view" hx-swap="outerHTML"%s class="inline">`,
		escaped, escaped, confirmAttr))

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf(`<input type="hidden" name="%s" value="%s">`,
			html.EscapeString(k), html.EscapeString(values[k])))
	}
	sb.WriteString(fmt.Sprintf(`<button type="submit" class="%s">%s</button>`, class, html.EscapeString(label)))
	sb.WriteString(`</form>`)
	return sb.String()
}

// displayValue renders one cell, redacting sensitive columns.
func displayValue(desc resource.ResourceDescriptor, row resource.Row, col string) string {
	if desc.IsSensitive(col) {
		return redacted
	}
	v, ok := row.Get(col)
	if !ok || v == nil {
		return emptyValue
	}
	return resource.FormatValue(v)
}
