// Package operation defines the automatable operations, their configuration
// schema, and the validation rules a configuration must pass before a run.
package operation

// ID identifies an operation.
type ID string

// Connect is the only operation: filter people search results and send
// connection invitations with an optional note.
const Connect ID = "connect"

// FieldType is the input kind of a configuration field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldTextarea FieldType = "textarea"
)

// Field describes one configuration value of an operation.
type Field struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Placeholder string    `json:"placeholder,omitempty"`
	Required    bool      `json:"required"`
	Min         *int      `json:"min,omitempty"`
	Max         *int      `json:"max,omitempty"`
	Default     any       `json:"defaultValue,omitempty"`
}

// Operation is a named task with its own configuration schema.
type Operation struct {
	ID          ID      `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Fields      []Field `json:"fields"`
}

func intPtr(v int) *int { return &v }

// Registry lists every operation the engine can run.
var Registry = []Operation{
	{
		ID:          Connect,
		Name:        "Send Connection Invites",
		Description: "Filters people search results and sends invites with an optional note.",
		Fields: []Field{
			{
				Key:         KeyJobTitle,
				Label:       "Job title contains",
				Type:        FieldText,
				Placeholder: "e.g. engineer, founder",
				Required:    true,
			},
			{
				Key:         KeyLocation,
				Label:       "Location contains",
				Type:        FieldText,
				Placeholder: "e.g. San Francisco",
			},
			{
				Key:     KeyMinMutual,
				Label:   "Minimum mutual connections",
				Type:    FieldNumber,
				Min:     intPtr(0),
				Default: 0,
			},
			{
				Key:      KeyDailyLimit,
				Label:    "Daily invite limit",
				Type:     FieldNumber,
				Min:      intPtr(1),
				Required: true,
				Default:  20,
			},
			{
				Key:         KeyPersonalNote,
				Label:       "Personal note template",
				Type:        FieldTextarea,
				Placeholder: "Hi {{firstName}}, great to connect...",
				Default:     "",
			},
		},
	},
}

// Lookup returns the registered operation with the given id.
func Lookup(id ID) (Operation, bool) {
	for _, op := range Registry {
		if op.ID == id {
			return op, true
		}
	}
	return Operation{}, false
}

// Defaults returns the default value of every field of op.
func Defaults(op Operation) map[string]any {
	values := make(map[string]any, len(op.Fields))
	for _, f := range op.Fields {
		values[f.Key] = defaultValue(f)
	}
	return values
}

func defaultValue(f Field) any {
	if f.Default != nil {
		return f.Default
	}
	if f.Type == FieldNumber {
		return 0
	}
	return ""
}
