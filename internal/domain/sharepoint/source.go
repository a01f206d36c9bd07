package sharepoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/sharepointsync/internal/domain/shared"
)

// RemoteFile is a file as listed by the folder source. DownloadURL is a reference that
// does not expire; short-lived links are minted from it through a DownloadLinker.
type RemoteFile struct {
	Name        string
	DownloadURL string
}

// RemoteFolder is one subfolder of the configured root
type RemoteFolder struct {
	Name  string
	Files []RemoteFile
}

// FolderSource lists the subfolders of a remote root. Implementations are read-only and
// must report an empty or unreachable root as an error wrapping ErrSourceUnavailable.
type FolderSource interface {
	ListFolders(ctx context.Context, rootPath string) ([]RemoteFolder, error)
}

// DownloadLinker turns a stored download reference into a link that can be opened now.
// References that need no signing come back unchanged.
type DownloadLinker interface {
	LinkFor(ctx context.Context, ref string) (string, error)
}

// NewSourceUnavailableError wraps a connectivity, auth or listing failure.
func NewSourceUnavailableError(rootPath string, cause error) error {
	return shared.WrapDomainError(shared.CodeSourceUnavailable,
		fmt.Sprintf("Folder source unavailable for %q", rootPath), cause)
}

// ErrEmptyRoot is the cause reported when the root lists no folders at all.
var ErrEmptyRoot = errors.New("root folder listed no subfolders")

// RequireFolders turns an empty listing into a SourceUnavailable error.
func RequireFolders(rootPath string, folders []RemoteFolder) ([]RemoteFolder, error) {
	if len(folders) == 0 {
		return nil, NewSourceUnavailableError(rootPath, ErrEmptyRoot)
	}
	return folders, nil
}
