// Package workspace allocates the ephemeral directory that holds every clone of a run.
//
// Each repository lives at RepositoryPath(root, org, repo). The directory is
// never removed by the tool so a failed run can be inspected afterwards.
package workspace

import (
	"errors"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/git-manager/internal/runerrors"
)

const (
	temporaryDirectoryPrefixConstant       = "git-manager-"
	createWorkingDirectoryOperationName    = "create working directory"
	workingDirectoryCreatedMessage         = "Created a temporary directory for cloning repositories"
	logFieldWorkingDirectoryConstant       = "working_directory"
	fileSystemNotConfiguredMessageConstant = "workspace file system not configured"
)

// ErrFileSystemNotConfigured indicates the manager was constructed without a file system.
var ErrFileSystemNotConfigured = errors.New(fileSystemNotConfiguredMessageConstant)

// RepositoryPath derives the working copy directory for an organization repository.
func RepositoryPath(root string, organization string, repository string) string {
	return filepath.Join(root, organization, repository)
}

// Manager creates uniquely named working directories.
type Manager struct {
	fileSystem afero.Fs
	logger     *zap.Logger
}

// NewManager constructs a Manager backed by the provided file system.
func NewManager(fileSystem afero.Fs, logger *zap.Logger) (*Manager, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{fileSystem: fileSystem, logger: logger}, nil
}

// Create allocates a fresh temporary directory and returns its absolute path.
func (manager *Manager) Create() (string, error) {
	directoryPath, creationError := afero.TempDir(manager.fileSystem, "", temporaryDirectoryPrefixConstant)
	if creationError != nil {
		return "", runerrors.OperationError{Kind: runerrors.KindFilesystem, Operation: createWorkingDirectoryOperationName, Cause: creationError}
	}

	absolutePath, absoluteError := filepath.Abs(directoryPath)
	if absoluteError != nil {
		return "", runerrors.OperationError{Kind: runerrors.KindFilesystem, Operation: createWorkingDirectoryOperationName, Cause: absoluteError}
	}

	manager.logger.Info(workingDirectoryCreatedMessage, zap.String(logFieldWorkingDirectoryConstant, absolutePath))
	return absolutePath, nil
}
