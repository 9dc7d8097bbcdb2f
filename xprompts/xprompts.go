// Package xprompts ships the declarative workflow documents this provider
// contributes to the host. The document schema is owned by the host's
// workflow engine; validation here is structural only.
package xprompts

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed documents/*.yml
var documentFiles embed.FS

const (
	documentsDirectoryNameConstant        = "documents"
	documentReadErrorTemplateConstant     = "read workflow document %s: %w"
	documentDecodeErrorTemplateConstant   = "decode workflow document %s: %w"
	duplicateNameErrorTemplateConstant    = "workflow document name %q appears more than once"
	missingNameErrorTemplateConstant      = "workflow document %s has no name"
	missingStepsErrorTemplateConstant     = "workflow document %q has no steps"
	missingCommandErrorTemplateConstant   = "workflow document %q step %q has no command"
	missingStepNameErrorTemplateConstant  = "workflow document %q has a step without a name"
)

// Arg declares one workflow document argument.
type Arg struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
	Default     string `yaml:"default,omitempty"`
}

// Step declares one workflow step and the command it runs.
type Step struct {
	Name    string `yaml:"name"`
	Command string `yaml:"command"`
}

// Document is one declarative workflow shipped by this provider.
type Document struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Args        []Arg  `yaml:"args,omitempty"`
	Steps       []Step `yaml:"steps"`
}

func validateDocument(fileName string, document Document) error {
	if len(strings.TrimSpace(document.Name)) == 0 {
		return fmt.Errorf(missingNameErrorTemplateConstant, fileName)
	}
	if len(document.Steps) == 0 {
		return fmt.Errorf(missingStepsErrorTemplateConstant, document.Name)
	}
	for _, step := range document.Steps {
		if len(strings.TrimSpace(step.Name)) == 0 {
			return fmt.Errorf(missingStepNameErrorTemplateConstant, document.Name)
		}
		if len(strings.TrimSpace(step.Command)) == 0 {
			return fmt.Errorf(missingCommandErrorTemplateConstant, document.Name, step.Name)
		}
	}
	return nil
}

// All parses and validates every embedded workflow document, sorted by name.
func All() ([]Document, error) {
	directoryEntries, readError := documentFiles.ReadDir(documentsDirectoryNameConstant)
	if readError != nil {
		return nil, readError
	}

	seenNames := map[string]bool{}
	documents := make([]Document, 0, len(directoryEntries))
	for _, directoryEntry := range directoryEntries {
		documentPath := documentsDirectoryNameConstant + "/" + directoryEntry.Name()
		documentBytes, fileError := documentFiles.ReadFile(documentPath)
		if fileError != nil {
			return nil, fmt.Errorf(documentReadErrorTemplateConstant, directoryEntry.Name(), fileError)
		}

		var document Document
		decodeError := yaml.Unmarshal(documentBytes, &document)
		if decodeError != nil {
			return nil, fmt.Errorf(documentDecodeErrorTemplateConstant, directoryEntry.Name(), decodeError)
		}

		validationError := validateDocument(directoryEntry.Name(), document)
		if validationError != nil {
			return nil, validationError
		}
		if seenNames[document.Name] {
			return nil, fmt.Errorf(duplicateNameErrorTemplateConstant, document.Name)
		}
		seenNames[document.Name] = true
		documents = append(documents, document)
	}

	sort.Slice(documents, func(firstIndex int, secondIndex int) bool {
		return documents[firstIndex].Name < documents[secondIndex].Name
	})
	return documents, nil
}

// Load resolves one workflow document by name.
func Load(name string) (Document, bool, error) {
	documents, allError := All()
	if allError != nil {
		return Document{}, false, allError
	}
	for _, document := range documents {
		if document.Name == name {
			return document, true, nil
		}
	}
	return Document{}, false, nil
}
