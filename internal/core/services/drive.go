package services

import (
	"context"
	"fmt"
	"io"

	"github.com/clearfile-labs/drive-core/internal/core/domain"
	"github.com/clearfile-labs/drive-core/internal/core/ports/driven"
	"github.com/clearfile-labs/drive-core/internal/core/ports/driving"
)

// Ensure driveService implements DriveService
var _ driving.DriveService = (*driveService)(nil)

// driveService delegates file operations to the provider's drive client,
// resolving a valid access token for the user before each call.
type driveService struct {
	oauth  driving.OAuthService
	client driven.DriveClient
}

// NewDriveService creates a new drive service.
func NewDriveService(oauth driving.OAuthService, client driven.DriveClient) driving.DriveService {
	return &driveService{
		oauth:  oauth,
		client: client,
	}
}

// ListFiles returns one page of the user's files.
func (s *driveService) ListFiles(ctx context.Context, userID, pageToken string) (*domain.FileList, error) {
	token, err := s.oauth.GetValidToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.client.ListFiles(ctx, token, pageToken)
}

// UploadFile uploads content to the user's drive.
func (s *driveService) UploadFile(ctx context.Context, userID, name, contentType string, content io.Reader) (*domain.UploadResult, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: file name is required", domain.ErrInvalidInput)
	}

	token, err := s.oauth.GetValidToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.client.UploadFile(ctx, token, name, contentType, content)
}

// CreateFile creates a new editor document.
func (s *driveService) CreateFile(ctx context.Context, userID, title string, kind domain.FileKind, shareWith string) (*domain.CreateResult, error) {
	if kind.MIMEType() == "" {
		return nil, fmt.Errorf("%w: invalid file type %q", domain.ErrInvalidInput, kind)
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}

	token, err := s.oauth.GetValidToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.client.CreateFile(ctx, token, title, kind, shareWith)
}

// DownloadFile fetches a file's content.
func (s *driveService) DownloadFile(ctx context.Context, userID, fileID string) (*domain.Download, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: file_id is required", domain.ErrInvalidInput)
	}

	token, err := s.oauth.GetValidToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.client.DownloadFile(ctx, token, fileID)
}
