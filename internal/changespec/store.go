// Package changespec stores and enumerates changespec documents under the
// sase projects tree. A changespec is a `.gp` document living beside its
// project file, named after the change it tracks.
package changespec

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/sase-run/sase-github/internal/workspace"
)

const (
	changeSpecFileExtensionConstant         = ".gp"
	hyphenConstant                          = "-"
	underscoreConstant                      = "_"
	changeSpecNameTemplateConstant          = "%s_%s"
	activeStatusConstant                    = "Active"
	storeFileSystemMissingMessageConstant   = "changespec store filesystem not configured"
	storeHomeMissingMessageConstant         = "changespec store home directory not configured"
	storeRepositoryMissingMessageConstant   = "changespec store repository inspector not configured"
	workspaceDirMissingMessageTemplateConst = "WORKSPACE_DIR is not set in %s"
	listProjectsErrorTemplateConstant       = "list projects under %s: %w"
	listDocumentsErrorTemplateConstant      = "list documents under %s: %w"
)

// Terminal statuses: changespecs in these states no longer block their parent.
const (
	StatusSubmitted = "Submitted"
	StatusReverted  = "Reverted"
	StatusArchived  = "Archived"
)

// TerminalStatuses lists the states a finished changespec can hold.
var TerminalStatuses = []string{StatusSubmitted, StatusReverted, StatusArchived}

// Spec is one changespec document.
type Spec struct {
	Name            string
	FilePath        string
	ProjectBasename string
	Description     string
	Status          string
	Parent          string
	CheckoutTarget  string
	BranchName      string
}

// RepositoryInspector is the git surface changespec creation relies on.
type RepositoryInspector interface {
	CountCommits(executionContext context.Context, repositoryPath string, baseRevision string, headRevision string) (int, error)
}

// Store construction errors.
var (
	ErrStoreFileSystemNotConfigured = errors.New(storeFileSystemMissingMessageConstant)
	ErrStoreHomeNotConfigured       = errors.New(storeHomeMissingMessageConstant)
	ErrStoreRepositoryNotConfigured = errors.New(storeRepositoryMissingMessageConstant)
)

// Store enumerates and persists changespec documents.
type Store struct {
	fileSystem    afero.Fs
	homeDirectory string
	repository    RepositoryInspector
}

// NewStore constructs a changespec store. The repository inspector may be nil
// when only enumeration is needed; CreateForWorkflow requires it.
func NewStore(fileSystem afero.Fs, homeDirectory string, repository RepositoryInspector) (*Store, error) {
	if fileSystem == nil {
		return nil, ErrStoreFileSystemNotConfigured
	}
	if len(homeDirectory) == 0 {
		return nil, ErrStoreHomeNotConfigured
	}
	return &Store{fileSystem: fileSystem, homeDirectory: homeDirectory, repository: repository}, nil
}

// DeriveName builds the canonical changespec name for a workflow branch.
func DeriveName(projectName string, branchName string) string {
	return fmt.Sprintf(changeSpecNameTemplateConstant, projectName, strings.ReplaceAll(branchName, hyphenConstant, underscoreConstant))
}

// FindAll enumerates every changespec document across all projects. The
// project's own `.gp` document (named after its directory) is not a changespec.
func (store *Store) FindAll() ([]Spec, error) {
	projectsBase := workspace.ProjectsBase(store.homeDirectory)
	projectEntries, listError := afero.ReadDir(store.fileSystem, projectsBase)
	if listError != nil {
		baseExists, existsError := afero.DirExists(store.fileSystem, projectsBase)
		if existsError == nil && !baseExists {
			return nil, nil
		}
		return nil, fmt.Errorf(listProjectsErrorTemplateConstant, projectsBase, listError)
	}

	var specs []Spec
	for _, projectEntry := range projectEntries {
		if !projectEntry.IsDir() {
			continue
		}
		projectDirectory := filepath.Join(projectsBase, projectEntry.Name())
		documentEntries, documentsError := afero.ReadDir(store.fileSystem, projectDirectory)
		if documentsError != nil {
			return nil, fmt.Errorf(listDocumentsErrorTemplateConstant, projectDirectory, documentsError)
		}
		for _, documentEntry := range documentEntries {
			if documentEntry.IsDir() || !strings.HasSuffix(documentEntry.Name(), changeSpecFileExtensionConstant) {
				continue
			}
			documentName := strings.TrimSuffix(documentEntry.Name(), changeSpecFileExtensionConstant)
			if documentName == projectEntry.Name() {
				continue
			}
			documentPath := filepath.Join(projectDirectory, documentEntry.Name())
			document, loadError := workspace.LoadProjectDocument(store.fileSystem, documentPath)
			if loadError != nil {
				return nil, loadError
			}
			specName := document.Name
			if len(specName) == 0 {
				specName = documentName
			}
			specs = append(specs, Spec{
				Name:            specName,
				FilePath:        documentPath,
				ProjectBasename: projectEntry.Name(),
				Description:     document.Description,
				Status:          document.Status,
				Parent:          document.Parent,
				CheckoutTarget:  document.CheckoutTarget,
				BranchName:      document.BranchName,
			})
		}
	}

	sort.Slice(specs, func(firstIndex int, secondIndex int) bool {
		return specs[firstIndex].Name < specs[secondIndex].Name
	})
	return specs, nil
}

// FindByName locates a changespec by its canonical name.
func (store *Store) FindByName(name string) (Spec, bool, error) {
	specs, findError := store.FindAll()
	if findError != nil {
		return Spec{}, false, findError
	}
	for _, spec := range specs {
		if spec.Name == name {
			return spec, true, nil
		}
	}
	return Spec{}, false, nil
}

// HasActiveChildren reports whether any changespec still names the supplied
// spec as its parent without having reached a terminal status.
func HasActiveChildren(parent Spec, specs []Spec, terminalStatuses []string) bool {
	terminal := map[string]bool{}
	for _, status := range terminalStatuses {
		terminal[status] = true
	}
	for _, candidate := range specs {
		if candidate.Name == parent.Name {
			continue
		}
		if candidate.Parent != parent.Name {
			continue
		}
		if !terminal[candidate.Status] {
			return true
		}
	}
	return false
}

// WorkflowRequest carries the inputs for creating a changespec from a workflow.
type WorkflowRequest struct {
	ProjectName     string
	ProjectFilePath string
	CheckoutTarget  string
	BranchName      string
	Prompt          string
	WorkflowName    string
}

// CreateForWorkflow persists a changespec for a workflow branch. It requires
// new commits between the checkout target and the branch; when none exist the
// changespec is not created and an empty name is returned.
func (store *Store) CreateForWorkflow(executionContext context.Context, request WorkflowRequest) (string, error) {
	if store.repository == nil {
		return "", ErrStoreRepositoryNotConfigured
	}

	workspaceDir, parseError := workspace.ParseWorkspaceDir(store.fileSystem, request.ProjectFilePath)
	if parseError != nil {
		return "", parseError
	}
	if len(workspaceDir) == 0 {
		return "", fmt.Errorf(workspaceDirMissingMessageTemplateConst, request.ProjectFilePath)
	}

	commitCount, countError := store.repository.CountCommits(executionContext, workspaceDir, request.CheckoutTarget, request.BranchName)
	if countError != nil {
		return "", countError
	}
	if commitCount == 0 {
		return "", nil
	}

	changeSpecName := DeriveName(request.ProjectName, request.BranchName)
	changeSpecPath := filepath.Join(filepath.Dir(request.ProjectFilePath), changeSpecName+changeSpecFileExtensionConstant)
	saveError := workspace.SaveProjectDocument(store.fileSystem, changeSpecPath, workspace.ProjectDocument{
		Name:           changeSpecName,
		WorkspaceDir:   workspaceDir,
		Description:    request.Prompt,
		Status:         activeStatusConstant,
		CheckoutTarget: request.CheckoutTarget,
		BranchName:     request.BranchName,
		Workflow:       request.WorkflowName,
	})
	if saveError != nil {
		return "", saveError
	}
	return changeSpecName, nil
}
