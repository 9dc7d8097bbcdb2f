package workspace

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	pathutils "github.com/sase-run/sase-github/internal/utils/path"
)

const (
	saseDirectoryNameConstant            = ".sase"
	projectsDirectoryNameConstant        = "projects"
	projectFileExtensionConstant         = ".gp"
	projectDirectoryPermissionsConstant  = 0o755
	projectFilePermissionsConstant       = 0o644
	documentReadErrorTemplateConstant    = "read project document %s: %w"
	documentDecodeErrorTemplateConstant  = "decode project document %s: %w"
	documentEncodeErrorTemplateConstant  = "encode project document %s: %w"
	documentWriteErrorTemplateConstant   = "write project document %s: %w"
	documentMkdirErrorTemplateConstant   = "create project directory %s: %w"
)

// ProjectDocument models a `.gp` project or changespec document. Field keys
// are uppercase `KEY: value` lines, which double as plain YAML mappings.
type ProjectDocument struct {
	Name           string `yaml:"NAME,omitempty"`
	WorkspaceDir   string `yaml:"WORKSPACE_DIR,omitempty"`
	BareRepoDir    string `yaml:"BARE_REPO_DIR,omitempty"`
	Description    string `yaml:"DESCRIPTION,omitempty"`
	Status         string `yaml:"STATUS,omitempty"`
	Parent         string `yaml:"PARENT,omitempty"`
	CheckoutTarget string `yaml:"CHECKOUT_TARGET,omitempty"`
	BranchName     string `yaml:"BRANCH_NAME,omitempty"`
	Workflow       string `yaml:"WORKFLOW,omitempty"`
}

// ProjectsBase returns the directory holding every project's `.gp` documents.
func ProjectsBase(homeDirectory string) string {
	return filepath.Join(homeDirectory, saseDirectoryNameConstant, projectsDirectoryNameConstant)
}

// ProjectFilePath returns the canonical path of a project's `.gp` document.
func ProjectFilePath(homeDirectory string, projectName string) string {
	return filepath.Join(ProjectsBase(homeDirectory), projectName, projectName+projectFileExtensionConstant)
}

// LoadProjectDocument reads and decodes a `.gp` document. A missing file
// yields an empty document without error so callers can populate new projects.
func LoadProjectDocument(fileSystem afero.Fs, documentPath string) (ProjectDocument, error) {
	fileExists, existsError := afero.Exists(fileSystem, documentPath)
	if existsError != nil {
		return ProjectDocument{}, fmt.Errorf(documentReadErrorTemplateConstant, documentPath, existsError)
	}
	if !fileExists {
		return ProjectDocument{}, nil
	}

	documentBytes, readError := afero.ReadFile(fileSystem, documentPath)
	if readError != nil {
		return ProjectDocument{}, fmt.Errorf(documentReadErrorTemplateConstant, documentPath, readError)
	}

	var document ProjectDocument
	decodeError := yaml.Unmarshal(documentBytes, &document)
	if decodeError != nil {
		return ProjectDocument{}, fmt.Errorf(documentDecodeErrorTemplateConstant, documentPath, decodeError)
	}
	return document, nil
}

// SaveProjectDocument encodes and writes a `.gp` document, creating the
// project directory when needed.
func SaveProjectDocument(fileSystem afero.Fs, documentPath string, document ProjectDocument) error {
	documentDirectory := filepath.Dir(documentPath)
	mkdirError := fileSystem.MkdirAll(documentDirectory, projectDirectoryPermissionsConstant)
	if mkdirError != nil {
		return fmt.Errorf(documentMkdirErrorTemplateConstant, documentDirectory, mkdirError)
	}

	documentBytes, encodeError := yaml.Marshal(document)
	if encodeError != nil {
		return fmt.Errorf(documentEncodeErrorTemplateConstant, documentPath, encodeError)
	}

	writeError := afero.WriteFile(fileSystem, documentPath, documentBytes, projectFilePermissionsConstant)
	if writeError != nil {
		return fmt.Errorf(documentWriteErrorTemplateConstant, documentPath, writeError)
	}
	return nil
}

var workspaceDirHomeExpander = pathutils.NewHomeExpander()

// ParseWorkspaceDir returns the WORKSPACE_DIR recorded in a `.gp` document,
// or an empty string when the document or field is absent. Hand-written
// documents may use a leading tilde; it is expanded here.
func ParseWorkspaceDir(fileSystem afero.Fs, documentPath string) (string, error) {
	document, loadError := LoadProjectDocument(fileSystem, documentPath)
	if loadError != nil {
		return "", loadError
	}
	return workspaceDirHomeExpander.Expand(strings.TrimSpace(document.WorkspaceDir)), nil
}

// SetWorkspaceDir records WORKSPACE_DIR in a `.gp` document, preserving the
// remaining fields and filling NAME for newly created documents.
func SetWorkspaceDir(fileSystem afero.Fs, documentPath string, workspaceDir string) error {
	document, loadError := LoadProjectDocument(fileSystem, documentPath)
	if loadError != nil {
		return loadError
	}
	document.WorkspaceDir = workspaceDir
	if len(document.Name) == 0 {
		document.Name = strings.TrimSuffix(filepath.Base(documentPath), projectFileExtensionConstant)
	}
	return SaveProjectDocument(fileSystem, documentPath, document)
}
