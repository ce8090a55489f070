// Package tui provides a terminal user interface for ccdash
package tui

import (
	"strings"

	"ccdash/config/models"
	"ccdash/config/validation"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
)

// FormField represents the index of each form field
const (
	FormFieldID = iota
	FormFieldName
	FormFieldBaseURL
	FormFieldAPIKey
	FormFieldModel
	FormFieldSmallModel
	FormFieldCount // Total number of fields
)

// FormData represents the data collected from the add form
type FormData struct {
	ID         string
	Name       string
	BaseURL    string
	APIKey     string
	Model      string
	SmallModel string
}

// Request converts the form into a single-model create request.
func (f FormData) Request() models.CreateRequest {
	return models.CreateRequest{
		ID:   strings.TrimSpace(f.ID),
		Name: strings.TrimSpace(f.Name),
		Config: models.ProviderConfig{
			BaseURL:    strings.TrimSpace(f.BaseURL),
			APIKey:     strings.TrimSpace(f.APIKey),
			ModelType:  models.ModelTypeSingle,
			Model:      strings.TrimSpace(f.Model),
			SmallModel: strings.TrimSpace(f.SmallModel),
		},
	}
}

// Validate applies the same checks the manager runs on create
func (f FormData) Validate() error {
	return validation.NewInputValidator().ValidateCreate(f.Request())
}

// Form styles
var (
	formLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(14)

	formFocusedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("205")).
				Bold(true).
				Width(14)

	formErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	formHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

type formField struct {
	label       string
	hint        string
	placeholder string
	limit       int
	secret      bool
}

var formFields = [FormFieldCount]formField{
	FormFieldID:         {"ID:", "Letters, digits, - and _", "work", 50, false},
	FormFieldName:       {"Name:", "Shown in lists", "Work account", 50, false},
	FormFieldBaseURL:    {"Base URL:", "http(s) endpoint of the provider", "https://api.example.com", 256, false},
	FormFieldAPIKey:     {"API Key:", "Stored as ANTHROPIC_AUTH_TOKEN", "sk-...", 256, true},
	FormFieldModel:      {"Model:", "Main model", "claude-sonnet-4-20250514", 128, false},
	FormFieldSmallModel: {"Small model:", "Optional, defaults to the main model", "", 128, false},
}

// FormInputs creates and initializes form input fields
func FormInputs() []textinput.Model {
	inputs := make([]textinput.Model, FormFieldCount)
	for i, f := range formFields {
		in := textinput.New()
		in.Placeholder = f.placeholder
		in.CharLimit = f.limit
		in.Width = 40
		in.Prompt = ""
		if f.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		inputs[i] = in
	}
	inputs[FormFieldID].Focus()
	return inputs
}

// GetFormData extracts FormData from form inputs
func GetFormData(inputs []textinput.Model) FormData {
	return FormData{
		ID:         inputs[FormFieldID].Value(),
		Name:       inputs[FormFieldName].Value(),
		BaseURL:    inputs[FormFieldBaseURL].Value(),
		APIKey:     inputs[FormFieldAPIKey].Value(),
		Model:      inputs[FormFieldModel].Value(),
		SmallModel: inputs[FormFieldSmallModel].Value(),
	}
}

// RenderForm renders the form view with inputs
func RenderForm(inputs []textinput.Model, focusIndex int, title string, errorMsg string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", 50)))
	b.WriteString("\n\n")

	for i, input := range inputs {
		f := formFields[i]
		if i == focusIndex {
			b.WriteString(formFocusedStyle.Render(f.label))
		} else {
			b.WriteString(formLabelStyle.Render(f.label))
		}
		b.WriteString(" ")
		b.WriteString(input.View())
		b.WriteString("\n")

		// Hint only for the focused field
		if i == focusIndex {
			b.WriteString(formLabelStyle.Render(""))
			b.WriteString(" ")
			b.WriteString(formHintStyle.Render(f.hint))
			b.WriteString("\n")
		}
	}

	if errorMsg != "" {
		b.WriteString("\n")
		b.WriteString(formErrorStyle.Render("✗ " + errorMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", 50)))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab/↓ next │ shift+tab/↑ previous │ enter save │ esc cancel"))

	return b.String()
}

// NextFormField moves focus to the next form field
func NextFormField(inputs []textinput.Model, currentFocus int) int {
	inputs[currentFocus].Blur()
	nextFocus := (currentFocus + 1) % len(inputs)
	inputs[nextFocus].Focus()
	return nextFocus
}

// PrevFormField moves focus to the previous form field
func PrevFormField(inputs []textinput.Model, currentFocus int) int {
	inputs[currentFocus].Blur()
	prevFocus := currentFocus - 1
	if prevFocus < 0 {
		prevFocus = len(inputs) - 1
	}
	inputs[prevFocus].Focus()
	return prevFocus
}
