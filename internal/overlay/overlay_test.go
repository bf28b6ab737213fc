package overlay_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/git-manager/internal/overlay"
	"github.com/temirov/git-manager/internal/runerrors"
)

const (
	testPlaybookDirectoryConstant   = "/playbooks/ci"
	testRepositoryDirectoryConstant = "/tmp/run/acme/svc-a"
)

func TestPlaybookOverlayCopiesTopLevelFilesOnly(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, afero.WriteFile(fileSystem, testPlaybookDirectoryConstant+"/a.txt", []byte("alpha"), 0o644))
	require.NoError(testInstance, afero.WriteFile(fileSystem, testPlaybookDirectoryConstant+"/b.yml", []byte("beta: true"), 0o644))
	require.NoError(testInstance, afero.WriteFile(fileSystem, testPlaybookDirectoryConstant+"/sub/c.txt", []byte("nested"), 0o644))
	require.NoError(testInstance, fileSystem.MkdirAll(testRepositoryDirectoryConstant, 0o755))
	require.NoError(testInstance, afero.WriteFile(fileSystem, testRepositoryDirectoryConstant+"/a.txt", []byte("stale"), 0o644))

	playbookOverlay, creationError := overlay.NewPlaybookOverlay(fileSystem, zap.NewNop())
	require.NoError(testInstance, creationError)

	copiedFiles, applyError := playbookOverlay.Apply(testPlaybookDirectoryConstant, overlay.Target{Organization: "acme", Repository: "svc-a", Directory: testRepositoryDirectoryConstant})
	require.NoError(testInstance, applyError)
	require.Equal(testInstance, []string{"a.txt", "b.yml"}, copiedFiles)

	overwritten, readError := afero.ReadFile(fileSystem, testRepositoryDirectoryConstant+"/a.txt")
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "alpha", string(overwritten))

	copied, copiedError := afero.ReadFile(fileSystem, testRepositoryDirectoryConstant+"/b.yml")
	require.NoError(testInstance, copiedError)
	require.Equal(testInstance, "beta: true", string(copied))

	for _, unexpectedPath := range []string{"/sub", "/sub/c.txt", "/c.txt"} {
		exists, existsError := afero.Exists(fileSystem, testRepositoryDirectoryConstant+unexpectedPath)
		require.NoError(testInstance, existsError)
		require.False(testInstance, exists, unexpectedPath)
	}
}

func TestPlaybookOverlayReportsMissingDirectory(testInstance *testing.T) {
	playbookOverlay, creationError := overlay.NewPlaybookOverlay(afero.NewMemMapFs(), zap.NewNop())
	require.NoError(testInstance, creationError)

	_, applyError := playbookOverlay.Apply("/absent", overlay.Target{Organization: "acme", Repository: "svc-a", Directory: testRepositoryDirectoryConstant})
	require.Error(testInstance, applyError)

	kind, found := runerrors.KindOf(applyError)
	require.True(testInstance, found)
	require.Equal(testInstance, runerrors.KindFilesystem, kind)
}

func TestPlaybookOverlayReportsCopyFailures(testInstance *testing.T) {
	baseFileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, afero.WriteFile(baseFileSystem, testPlaybookDirectoryConstant+"/a.txt", []byte("alpha"), 0o644))

	playbookOverlay, creationError := overlay.NewPlaybookOverlay(afero.NewReadOnlyFs(baseFileSystem), zap.NewNop())
	require.NoError(testInstance, creationError)

	copiedFiles, applyError := playbookOverlay.Apply(testPlaybookDirectoryConstant, overlay.Target{Organization: "acme", Repository: "svc-a", Directory: testRepositoryDirectoryConstant})
	require.Error(testInstance, applyError)
	require.Empty(testInstance, copiedFiles)
	require.Contains(testInstance, applyError.Error(), "copy playbook file acme/svc-a failed")
}

func TestNewPlaybookOverlayRequiresFileSystem(testInstance *testing.T) {
	_, creationError := overlay.NewPlaybookOverlay(nil, zap.NewNop())
	require.ErrorIs(testInstance, creationError, overlay.ErrFileSystemNotConfigured)
}
