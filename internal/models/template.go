package models

import (
	"strings"
	"time"
)

// Template enumerations
const (
	MessageTypeText        = "text"
	MessageTypeInteractive = "interactive"

	InteractiveButton = "button"
	InteractiveList   = "list"

	TemplateStatusDraft    = "draft"
	TemplateStatusActive   = "active"
	TemplateStatusInactive = "inactive"
)

// Button is one reply/url/call/copy button of an interactive message
type Button struct {
	ID          string  `json:"id" validate:"required"`
	DisplayText string  `json:"display_text" validate:"required"`
	Type        string  `json:"type" validate:"omitempty,oneof=reply url call copy"`
	Payload     *string `json:"payload,omitempty"`
	URL         *string `json:"url,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	CopyText    *string `json:"copy_text,omitempty"`
}

// ListRow is one selectable row of a list section
type ListRow struct {
	ID          string  `json:"id" validate:"required"`
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description,omitempty"`
	RowID       *string `json:"row_id,omitempty"`
}

// ListSection groups list rows under a title
type ListSection struct {
	Title string    `json:"title" validate:"required"`
	Rows  []ListRow `json:"rows" validate:"dive"`
}

// InteractiveMessage is the button or list payload of an interactive template
type InteractiveMessage struct {
	Type       string        `json:"type" validate:"required,oneof=button list"`
	Body       string        `json:"body"`
	Header     *string       `json:"header,omitempty"`
	Footer     *string       `json:"footer,omitempty"`
	Buttons    []Button      `json:"buttons,omitempty" validate:"dive"`
	Sections   []ListSection `json:"sections,omitempty" validate:"dive"`
	ButtonText *string       `json:"button_text,omitempty"`
}

// TemplateVariable declares a {{name}} placeholder
type TemplateVariable struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Type        string `json:"type" validate:"omitempty,oneof=string number email phone"`
}

// TemplateMetadata holds delivery hints
type TemplateMetadata struct {
	Priority   string         `json:"priority" validate:"omitempty,oneof=low medium high"`
	RetryCount int            `json:"retry_count" validate:"gte=0"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
	CustomData map[string]any `json:"custom_data,omitempty"`
}

// Template is a reusable text or interactive message
type Template struct {
	ID          string
	Name        string
	Description *string
	Category    string
	MessageType string
	Content     *string
	Interactive *InteractiveMessage
	Variables   []TemplateVariable
	Language    string
	Status      string
	Tags        []string
	Metadata    TemplateMetadata
	CreatedBy   string
	UpdatedBy   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApplyDefaults fills the enumerations' default values
func (t *Template) ApplyDefaults() {
	t.Name = strings.TrimSpace(t.Name)
	if t.Category == "" {
		t.Category = "other"
	}
	if t.MessageType == "" {
		t.MessageType = MessageTypeText
	}
	if t.Language == "" {
		t.Language = "en"
	}
	if t.Status == "" {
		t.Status = TemplateStatusDraft
	}
	if t.Metadata.Priority == "" {
		t.Metadata.Priority = "medium"
	}
	for i := range t.Variables {
		if t.Variables[i].Type == "" {
			t.Variables[i].Type = "string"
		}
	}
}

// Validate checks the template structure and returns every problem found
func (t *Template) Validate() []string {
	errs := make([]string, 0)

	if strings.TrimSpace(t.Name) == "" {
		errs = append(errs, "Template name is required")
	}

	switch t.MessageType {
	case MessageTypeText:
		if t.Content == nil || strings.TrimSpace(*t.Content) == "" {
			errs = append(errs, "Content is required for text templates")
		}
	case MessageTypeInteractive:
		if t.Interactive == nil {
			errs = append(errs, "Interactive message configuration is required")
			break
		}
		if strings.TrimSpace(t.Interactive.Body) == "" {
			errs = append(errs, "Interactive message body is required")
		}
		if t.Interactive.Type == InteractiveButton && len(t.Interactive.Buttons) == 0 {
			errs = append(errs, "At least one button is required for button-type interactive messages")
		}
		if t.Interactive.Type == InteractiveList && len(t.Interactive.Sections) == 0 {
			errs = append(errs, "At least one section is required for list-type interactive messages")
		}
	default:
		errs = append(errs, "Message type must be text or interactive")
	}

	return errs
}

// Preview returns the text content or the interactive body
func (t *Template) Preview() string {
	if t.MessageType == MessageTypeText {
		return deref(t.Content)
	}
	if t.Interactive != nil {
		return t.Interactive.Body
	}
	return ""
}

// Render substitutes the first {{name}} occurrence of each declared variable
// that has a value. Undeclared placeholders are left untouched.
func (t *Template) Render(values map[string]string) string {
	content := t.Preview()
	if content == "" {
		return content
	}

	for _, v := range t.Variables {
		if value, ok := values[v.Name]; ok {
			content = strings.Replace(content, "{{"+v.Name+"}}", value, 1)
		}
	}
	return content
}
