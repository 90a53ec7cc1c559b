package driving

import (
	"context"
	"io"

	"github.com/clearfile-labs/drive-core/internal/core/domain"
)

// DriveService exposes file operations on the user's connected drive. Every
// operation first resolves a valid access token for the user and fails with
// domain.ErrNotConnected when none is available.
type DriveService interface {
	// ListFiles returns one page of the user's files.
	ListFiles(ctx context.Context, userID, pageToken string) (*domain.FileList, error)

	// UploadFile uploads content to the user's drive.
	UploadFile(ctx context.Context, userID, name, contentType string, content io.Reader) (*domain.UploadResult, error)

	// CreateFile creates a new editor document.
	CreateFile(ctx context.Context, userID, title string, kind domain.FileKind, shareWith string) (*domain.CreateResult, error)

	// DownloadFile fetches a file's content for streaming back to the
	// caller.
	DownloadFile(ctx context.Context, userID, fileID string) (*domain.Download, error)
}
