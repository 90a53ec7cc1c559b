package domain

// FileKind identifies a native Google editor document type
type FileKind string

const (
	FileKindDoc     FileKind = "doc"
	FileKindSheet   FileKind = "sheet"
	FileKindSlide   FileKind = "slide"
	FileKindForm    FileKind = "form"
	FileKindDrawing FileKind = "drawing"
)

// MIMEType returns the Google Workspace MIME type for the kind, or "" when
// the kind is unknown.
func (k FileKind) MIMEType() string {
	switch k {
	case FileKindDoc:
		return "application/vnd.google-apps.document"
	case FileKindSheet:
		return "application/vnd.google-apps.spreadsheet"
	case FileKindSlide:
		return "application/vnd.google-apps.presentation"
	case FileKindForm:
		return "application/vnd.google-apps.form"
	case FileKindDrawing:
		return "application/vnd.google-apps.drawing"
	default:
		return ""
	}
}

// editorPath maps a kind to its docs.google.com URL path segment.
func (k FileKind) editorPath() string {
	switch k {
	case FileKindDoc:
		return "document"
	case FileKindSheet:
		return "spreadsheets"
	case FileKindSlide:
		return "presentation"
	case FileKindForm:
		return "forms"
	case FileKindDrawing:
		return "drawings"
	default:
		return ""
	}
}

// EditLink returns the Google editor URL for a file of this kind.
func (k FileKind) EditLink(fileID string) string {
	return "https://docs.google.com/" + k.editorPath() + "/d/" + fileID + "/edit"
}

// EmbedLink returns the Google editor preview URL for a file of this kind.
func (k FileKind) EmbedLink(fileID string) string {
	return "https://docs.google.com/" + k.editorPath() + "/d/" + fileID + "/preview"
}

// DriveFile is a single file entry from the provider's listing API
type DriveFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MIMEType    string `json:"mimeType"`
	WebViewLink string `json:"webViewLink,omitempty"`
}

// FileList is one page of a drive listing
type FileList struct {
	Files         []DriveFile `json:"files"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
}

// UploadResult describes an uploaded file and where to open it
type UploadResult struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	EditLink string `json:"editLink"`
	ViewLink string `json:"viewLink"`
}

// CreateResult describes a newly created editor file
type CreateResult struct {
	Message    string `json:"message"`
	FileID     string `json:"fileId"`
	EditLink   string `json:"editLink"`
	EmbedLink  string `json:"embedLink"`
	SharedWith string `json:"sharedWith,omitempty"`
}

// Download carries a downloaded file's content and metadata.
type Download struct {
	FileName string
	MIMEType string
	Content  []byte
}

// ConvertedMIMEType maps an uploaded content type to the Google editor type it
// should be converted into on upload. Types without a conversion upload as-is.
func ConvertedMIMEType(contentType string) string {
	switch contentType {
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"text/plain",
		"application/pdf":
		return "application/vnd.google-apps.document"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"text/csv":
		return "application/vnd.google-apps.spreadsheet"
	case "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return "application/vnd.google-apps.presentation"
	default:
		return contentType
	}
}

// ExportFormat returns the Office export MIME type and filename extension for
// a native Google editor type. ok is false for types downloaded as-is.
func ExportFormat(mimeType string) (exportMIME, extension string, ok bool) {
	switch mimeType {
	case "application/vnd.google-apps.document":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document", ".docx", true
	case "application/vnd.google-apps.spreadsheet":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ".xlsx", true
	case "application/vnd.google-apps.presentation":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation", ".pptx", true
	default:
		return "", "", false
	}
}
