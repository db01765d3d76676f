// Package assets provides embedded prompt text for the classifier.
//
// Prompt templates are stored as text files under prompts/ and embedded at compile time.
package assets

import (
	"bytes"
	_ "embed"
	"text/template"
)

// ClassifierSystemPrompt establishes the model's role as a game-asset classifier.
//
//go:embed prompts/classifier-system.txt
var ClassifierSystemPrompt string

//go:embed prompts/classifier-user.txt
var classifierUserTemplate string

var classifierUserTmpl = template.Must(template.New("classifier-user").Parse(classifierUserTemplate))

// ClassifierPromptData holds the dynamic data injected into the user prompt.
type ClassifierPromptData struct {
	// Filename is echoed to the model so it can fill the filename field.
	// Empty omits the hint.
	Filename string
}

// RenderClassifierUserPrompt renders the per-asset user instruction.
func RenderClassifierUserPrompt(filename string) string {
	var buf bytes.Buffer
	// The template has no failure paths beyond a broken writer.
	_ = classifierUserTmpl.Execute(&buf, ClassifierPromptData{Filename: filename})
	return buf.String()
}
