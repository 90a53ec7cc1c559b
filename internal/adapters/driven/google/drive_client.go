package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/clearfile-labs/drive-core/internal/core/domain"
	"github.com/clearfile-labs/drive-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DriveClient = (*DriveClient)(nil)

const (
	defaultAPIBase    = "https://www.googleapis.com/drive/v3"
	defaultUploadBase = "https://www.googleapis.com/upload/drive/v3"

	// listPageSize is the fixed page size for file listings.
	listPageSize = 10

	// maxDownloadSize caps in-memory downloads at 100 MiB.
	maxDownloadSize = 100 << 20
)

// DriveClient calls the Google Drive v3 REST API directly.
type DriveClient struct {
	http       *http.Client
	apiBase    string
	uploadBase string
}

// DriveOption customizes a DriveClient.
type DriveOption func(*DriveClient)

// WithDriveHTTPClient sets the HTTP client used for API calls.
func WithDriveHTTPClient(c *http.Client) DriveOption {
	return func(d *DriveClient) { d.http = c }
}

// WithDriveBaseURLs overrides the API and upload base URLs for tests.
func WithDriveBaseURLs(apiBase, uploadBase string) DriveOption {
	return func(d *DriveClient) {
		d.apiBase = strings.TrimSuffix(apiBase, "/")
		d.uploadBase = strings.TrimSuffix(uploadBase, "/")
	}
}

// NewDriveClient creates a Drive API client.
func NewDriveClient(opts ...DriveOption) *DriveClient {
	d := &DriveClient{
		http:       http.DefaultClient,
		apiBase:    defaultAPIBase,
		uploadBase: defaultUploadBase,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ListFiles returns one page of the user's files.
func (d *DriveClient) ListFiles(ctx context.Context, accessToken, pageToken string) (*domain.FileList, error) {
	q := url.Values{}
	q.Set("pageSize", fmt.Sprintf("%d", listPageSize))
	q.Set("fields", "nextPageToken, files(id, name, mimeType, webViewLink)")
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	var list domain.FileList
	if err := d.getJSON(ctx, accessToken, d.apiBase+"/files?"+q.Encode(), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// UploadFile uploads content as a multipart related request, converting known
// Office and text formats to native editor documents, and makes the result
// viewable by anyone with the link.
func (d *DriveClient) UploadFile(ctx context.Context, accessToken, name, contentType string, content io.Reader) (*domain.UploadResult, error) {
	meta := map[string]any{
		"name":     name,
		"mimeType": domain.ConvertedMIMEType(contentType),
	}

	body, boundary, err := buildMultipartRelated(meta, contentType, content)
	if err != nil {
		return nil, fmt.Errorf("build upload body: %w", err)
	}

	uploadURL := d.uploadBase + "/files?uploadType=multipart&fields=id,name,mimeType,webViewLink"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "multipart/related; boundary="+boundary)

	var file struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		MIMEType    string `json:"mimeType"`
		WebViewLink string `json:"webViewLink"`
	}
	if err := d.do(req, &file); err != nil {
		return nil, err
	}

	// Best effort: the file exists even if sharing fails.
	_ = d.createPermission(ctx, accessToken, file.ID, map[string]any{
		"type": "anyone",
		"role": "reader",
	}, nil)

	editLink := file.WebViewLink
	if editLink == "" {
		editLink = "https://drive.google.com/file/d/" + file.ID + "/view"
	}

	return &domain.UploadResult{
		FileID:   file.ID,
		FileName: file.Name,
		EditLink: editLink,
		ViewLink: "https://drive.google.com/file/d/" + file.ID + "/view",
	}, nil
}

// CreateFile creates an empty native editor document and optionally shares it
// with shareWith as a writer.
func (d *DriveClient) CreateFile(ctx context.Context, accessToken, title string, kind domain.FileKind, shareWith string) (*domain.CreateResult, error) {
	mimeType := kind.MIMEType()
	if mimeType == "" {
		return nil, fmt.Errorf("%w: unknown file kind %q", domain.ErrInvalidInput, kind)
	}

	meta, err := json.Marshal(map[string]any{
		"name":     title,
		"mimeType": mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal file metadata: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.apiBase+"/files?fields=id", bytes.NewReader(meta))
	if err != nil {
		return nil, fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	var file struct {
		ID string `json:"id"`
	}
	if err := d.do(req, &file); err != nil {
		return nil, err
	}

	result := &domain.CreateResult{
		Message:   fmt.Sprintf("%s created", title),
		FileID:    file.ID,
		EditLink:  kind.EditLink(file.ID),
		EmbedLink: kind.EmbedLink(file.ID),
	}

	if shareWith != "" {
		err := d.createPermission(ctx, accessToken, file.ID, map[string]any{
			"type":         "user",
			"role":         "writer",
			"emailAddress": shareWith,
		}, url.Values{"sendNotificationEmail": {"true"}})
		if err == nil {
			result.SharedWith = shareWith
		}
	}

	return result, nil
}

// DownloadFile fetches a file's content. Native editor documents are exported
// to their Office equivalents; everything else downloads as-is.
func (d *DriveClient) DownloadFile(ctx context.Context, accessToken, fileID string) (*domain.Download, error) {
	var meta struct {
		Name     string `json:"name"`
		MIMEType string `json:"mimeType"`
	}
	metaURL := d.apiBase + "/files/" + url.PathEscape(fileID) + "?fields=name,mimeType"
	if err := d.getJSON(ctx, accessToken, metaURL, &meta); err != nil {
		return nil, err
	}

	fileName := strings.ReplaceAll(meta.Name, " ", "_")
	contentMIME := meta.MIMEType

	var contentURL string
	if exportMIME, ext, ok := domain.ExportFormat(meta.MIMEType); ok {
		contentURL = d.apiBase + "/files/" + url.PathEscape(fileID) + "/export?mimeType=" + url.QueryEscape(exportMIME)
		contentMIME = exportMIME
		if !strings.HasSuffix(fileName, ext) {
			fileName += ext
		}
	} else {
		contentURL = d.apiBase + "/files/" + url.PathEscape(fileID) + "?alt=media"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Status: 0}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return nil, fmt.Errorf("read file content: %w", err)
	}

	return &domain.Download{
		FileName: fileName,
		MIMEType: contentMIME,
		Content:  content,
	}, nil
}

// createPermission posts a permission resource for a file.
func (d *DriveClient) createPermission(ctx context.Context, accessToken, fileID string, perm map[string]any, query url.Values) error {
	body, err := json.Marshal(perm)
	if err != nil {
		return fmt.Errorf("marshal permission: %w", err)
	}

	permURL := d.apiBase + "/files/" + url.PathEscape(fileID) + "/permissions"
	if len(query) > 0 {
		permURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, permURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build permission request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	return d.do(req, nil)
}

// getJSON performs an authenticated GET and decodes the JSON response.
func (d *DriveClient) getJSON(ctx context.Context, accessToken, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return d.do(req, out)
}

// do executes a request, maps error statuses into the domain taxonomy, and
// decodes a JSON body into out when out is non-nil.
func (d *DriveClient) do(req *http.Request, out any) error {
	resp, err := d.http.Do(req)
	if err != nil {
		return &domain.UpstreamError{Status: 0}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// checkStatus maps non-success responses into domain errors.
func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.ErrTokenInvalid
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	default:
		return &domain.UpstreamError{Status: resp.StatusCode}
	}
}

// buildMultipartRelated assembles the two-part body Drive's multipart upload
// expects: JSON metadata first, raw content second.
func buildMultipartRelated(meta map[string]any, contentType string, content io.Reader) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := w.CreatePart(metaHeader)
	if err != nil {
		return nil, "", err
	}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return nil, "", err
	}

	contentHeader := textproto.MIMEHeader{}
	contentHeader.Set("Content-Type", contentType)
	contentPart, err := w.CreatePart(contentHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(contentPart, content); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.Boundary(), nil
}
