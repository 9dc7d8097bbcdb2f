package workspace

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	claimsFileSuffixConstant           = ".claims"
	claimsLockFileSuffixConstant       = ".claims.lock"
	firstWorkspaceNumberConstant       = 1
	claimsReadErrorTemplateConstant    = "read claims for %s: %w"
	claimsDecodeErrorTemplateConstant  = "decode claims for %s: %w"
	claimsEncodeErrorTemplateConstant  = "encode claims for %s: %w"
	claimsWriteErrorTemplateConstant   = "write claims for %s: %w"
	claimsLockErrorTemplateConstant    = "lock claims for %s: %w"
	fieldFileSystemMissingConstant     = "workspace field filesystem not configured"
)

// WorkspaceClaim records one workflow's hold on a numbered workspace.
type WorkspaceClaim struct {
	WorkspaceNumber int    `yaml:"workspace_num"`
	WorkflowName    string `yaml:"workflow"`
	ProcessID       int    `yaml:"pid"`
	ChangeSpecName  string `yaml:"cl_name,omitempty"`
	Pinned          bool   `yaml:"pinned,omitempty"`
}

// ClaimLock serializes claim mutations across processes.
type ClaimLock interface {
	Lock() error
	Unlock() error
}

// LockFactory builds the lock guarding a project's claims file.
type LockFactory func(lockFilePath string) ClaimLock

// ErrFieldFileSystemNotConfigured indicates the field was constructed without a filesystem.
var ErrFieldFileSystemNotConfigured = errors.New(fieldFileSystemMissingConstant)

// Field tracks workspace claims beside a project's `.gp` document.
type Field struct {
	fileSystem  afero.Fs
	lockFactory LockFactory
}

type mutexClaimLock struct {
	mutex *sync.Mutex
}

func (claimLock mutexClaimLock) Lock() error {
	claimLock.mutex.Lock()
	return nil
}

func (claimLock mutexClaimLock) Unlock() error {
	claimLock.mutex.Unlock()
	return nil
}

// NewField constructs a workspace field. A nil lock factory defaults to
// OS-level file locks on the operating system filesystem; other filesystems
// fall back to an in-process mutex, since flock only works on real files.
func NewField(fileSystem afero.Fs, lockFactory LockFactory) (*Field, error) {
	if fileSystem == nil {
		return nil, ErrFieldFileSystemNotConfigured
	}
	if lockFactory == nil {
		if _, isOperatingSystemFs := fileSystem.(*afero.OsFs); isOperatingSystemFs {
			lockFactory = func(lockFilePath string) ClaimLock {
				return flock.New(lockFilePath)
			}
		} else {
			fieldMutex := &sync.Mutex{}
			lockFactory = func(string) ClaimLock {
				return mutexClaimLock{mutex: fieldMutex}
			}
		}
	}
	return &Field{fileSystem: fileSystem, lockFactory: lockFactory}, nil
}

func claimsFilePath(projectFilePath string) string {
	return projectFilePath + claimsFileSuffixConstant
}

func (field *Field) withLock(projectFilePath string, operation func() error) error {
	claimLock := field.lockFactory(projectFilePath + claimsLockFileSuffixConstant)
	lockError := claimLock.Lock()
	if lockError != nil {
		return fmt.Errorf(claimsLockErrorTemplateConstant, projectFilePath, lockError)
	}
	defer func() {
		_ = claimLock.Unlock()
	}()
	return operation()
}

func (field *Field) loadClaims(projectFilePath string) ([]WorkspaceClaim, error) {
	claimsPath := claimsFilePath(projectFilePath)
	claimsExist, existsError := afero.Exists(field.fileSystem, claimsPath)
	if existsError != nil {
		return nil, fmt.Errorf(claimsReadErrorTemplateConstant, projectFilePath, existsError)
	}
	if !claimsExist {
		return nil, nil
	}

	claimsBytes, readError := afero.ReadFile(field.fileSystem, claimsPath)
	if readError != nil {
		return nil, fmt.Errorf(claimsReadErrorTemplateConstant, projectFilePath, readError)
	}

	var claims []WorkspaceClaim
	decodeError := yaml.Unmarshal(claimsBytes, &claims)
	if decodeError != nil {
		return nil, fmt.Errorf(claimsDecodeErrorTemplateConstant, projectFilePath, decodeError)
	}
	return claims, nil
}

func (field *Field) saveClaims(projectFilePath string, claims []WorkspaceClaim) error {
	claimsBytes, encodeError := yaml.Marshal(claims)
	if encodeError != nil {
		return fmt.Errorf(claimsEncodeErrorTemplateConstant, projectFilePath, encodeError)
	}
	writeError := afero.WriteFile(field.fileSystem, claimsFilePath(projectFilePath), claimsBytes, projectFilePermissionsConstant)
	if writeError != nil {
		return fmt.Errorf(claimsWriteErrorTemplateConstant, projectFilePath, writeError)
	}
	return nil
}

// FirstAvailable returns the lowest workspace number without an active claim.
func (field *Field) FirstAvailable(projectFilePath string) (int, error) {
	availableNumber := 0
	operationError := field.withLock(projectFilePath, func() error {
		claims, loadError := field.loadClaims(projectFilePath)
		if loadError != nil {
			return loadError
		}
		claimedNumbers := map[int]bool{}
		for _, claim := range claims {
			claimedNumbers[claim.WorkspaceNumber] = true
		}
		for candidateNumber := firstWorkspaceNumberConstant; ; candidateNumber++ {
			if !claimedNumbers[candidateNumber] {
				availableNumber = candidateNumber
				return nil
			}
		}
	})
	if operationError != nil {
		return 0, operationError
	}
	return availableNumber, nil
}

// Claim records a hold on the supplied workspace number. It reports false when
// another workflow already holds the workspace.
func (field *Field) Claim(projectFilePath string, claim WorkspaceClaim) (bool, error) {
	claimed := false
	operationError := field.withLock(projectFilePath, func() error {
		claims, loadError := field.loadClaims(projectFilePath)
		if loadError != nil {
			return loadError
		}
		for _, existingClaim := range claims {
			if existingClaim.WorkspaceNumber == claim.WorkspaceNumber {
				claimed = existingClaim.WorkflowName == claim.WorkflowName
				return nil
			}
		}
		claims = append(claims, claim)
		claimed = true
		return field.saveClaims(projectFilePath, claims)
	})
	if operationError != nil {
		return false, operationError
	}
	return claimed, nil
}

// Release removes the claim on the supplied workspace number. The workspace
// number alone identifies the claim; workflow names can differ between claim
// and release when a run changes its checkout target. Releasing an unclaimed
// workspace is a no-op.
func (field *Field) Release(projectFilePath string, workspaceNumber int) error {
	return field.withLock(projectFilePath, func() error {
		claims, loadError := field.loadClaims(projectFilePath)
		if loadError != nil {
			return loadError
		}
		remainingClaims := claims[:0]
		removed := false
		for _, existingClaim := range claims {
			if !removed && existingClaim.WorkspaceNumber == workspaceNumber {
				removed = true
				continue
			}
			remainingClaims = append(remainingClaims, existingClaim)
		}
		if !removed {
			return nil
		}
		return field.saveClaims(projectFilePath, remainingClaims)
	})
}
