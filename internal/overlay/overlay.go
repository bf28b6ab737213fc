// Package overlay copies the files of a playbook directory into a repository working copy.
package overlay

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/git-manager/internal/runerrors"
)

const (
	listPlaybookOperationName   = "list playbook directory"
	copyPlaybookFileOperation   = "copy playbook file"
	fileSystemNotConfiguredText = "overlay file system not configured"
	copiedPlaybookFileMessage   = "Copied playbook file"
	logFieldSourceConstant      = "source"
	logFieldDestinationConstant = "destination"
)

// ErrFileSystemNotConfigured indicates the overlay was constructed without a file system.
var ErrFileSystemNotConfigured = errors.New(fileSystemNotConfiguredText)

// Target identifies the repository receiving the overlay.
type Target struct {
	Organization string
	Repository   string
	Directory    string
}

// PlaybookOverlay copies regular files from a playbook directory into repositories.
type PlaybookOverlay struct {
	fileSystem afero.Fs
	logger     *zap.Logger
}

// NewPlaybookOverlay constructs a PlaybookOverlay backed by fileSystem.
func NewPlaybookOverlay(fileSystem afero.Fs, logger *zap.Logger) (*PlaybookOverlay, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlaybookOverlay{fileSystem: fileSystem, logger: logger}, nil
}

// Apply copies every regular file directly inside playbookDirectory into the
// target directory, overwriting files of the same name. Subdirectories are ignored.
// It returns the copied file names in directory order.
func (overlay *PlaybookOverlay) Apply(playbookDirectory string, target Target) ([]string, error) {
	entries, listError := afero.ReadDir(overlay.fileSystem, playbookDirectory)
	if listError != nil {
		return nil, overlay.failure(listPlaybookOperationName, target, listError)
	}

	copiedFiles := make([]string, 0, len(entries))
	for _, entry := range entries {
		sourcePath := filepath.Join(playbookDirectory, entry.Name())
		fileInfo, regularFile := overlay.resolveRegularFile(sourcePath, entry)
		if !regularFile {
			continue
		}

		destinationPath := filepath.Join(target.Directory, entry.Name())

		contents, readError := afero.ReadFile(overlay.fileSystem, sourcePath)
		if readError != nil {
			return copiedFiles, overlay.failure(copyPlaybookFileOperation, target, readError)
		}
		if writeError := afero.WriteFile(overlay.fileSystem, destinationPath, contents, fileInfo.Mode().Perm()); writeError != nil {
			return copiedFiles, overlay.failure(copyPlaybookFileOperation, target, writeError)
		}

		overlay.logger.Debug(copiedPlaybookFileMessage, zap.String(logFieldSourceConstant, sourcePath), zap.String(logFieldDestinationConstant, destinationPath))
		copiedFiles = append(copiedFiles, entry.Name())
	}

	return copiedFiles, nil
}

// resolveRegularFile follows symbolic links so linked files are copied like regular ones.
func (overlay *PlaybookOverlay) resolveRegularFile(sourcePath string, entry os.FileInfo) (os.FileInfo, bool) {
	if entry.Mode()&os.ModeSymlink == 0 {
		return entry, entry.Mode().IsRegular()
	}
	targetInfo, statError := overlay.fileSystem.Stat(sourcePath)
	if statError != nil {
		return nil, false
	}
	return targetInfo, targetInfo.Mode().IsRegular()
}

func (overlay *PlaybookOverlay) failure(operationName string, target Target, cause error) error {
	return runerrors.OperationError{
		Kind:         runerrors.KindFilesystem,
		Operation:    operationName,
		Organization: target.Organization,
		Repository:   target.Repository,
		Cause:        cause,
	}
}
