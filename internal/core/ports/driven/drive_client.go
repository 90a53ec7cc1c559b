package driven

import (
	"context"
	"io"

	"github.com/clearfile-labs/drive-core/internal/core/domain"
)

// DriveClient wraps the provider's file API. It is a collaborator: every
// method takes an access token the caller has already validated. Failures
// surface as *domain.UpstreamError (provider-side) or domain.ErrTokenInvalid
// (token rejected between validation and use).
type DriveClient interface {
	// ListFiles returns one page of the user's files.
	ListFiles(ctx context.Context, accessToken, pageToken string) (*domain.FileList, error)

	// UploadFile uploads content under the given name, converting Office
	// and text formats to native editor documents where possible, and
	// makes the result viewable by link.
	UploadFile(ctx context.Context, accessToken, name, contentType string, content io.Reader) (*domain.UploadResult, error)

	// CreateFile creates an empty editor document of the given kind and
	// optionally shares it with shareWith as a writer.
	CreateFile(ctx context.Context, accessToken, title string, kind domain.FileKind, shareWith string) (*domain.CreateResult, error)

	// DownloadFile fetches a file's content, exporting native editor
	// documents to their Office equivalents.
	DownloadFile(ctx context.Context, accessToken, fileID string) (*domain.Download, error)
}
