package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clearfile-labs/drive-core/internal/core/domain"
)

func testDriveClient(t *testing.T, handler http.Handler) *DriveClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewDriveClient(
		WithDriveBaseURLs(srv.URL, srv.URL+"/upload"),
		WithDriveHTTPClient(srv.Client()),
	)
}

func TestListFiles(t *testing.T) {
	client := testDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok1" {
			t.Errorf("Authorization = %q, want Bearer tok1", got)
		}
		if got := r.URL.Query().Get("pageSize"); got != "10" {
			t.Errorf("pageSize = %q, want 10", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"files": [
				{"id": "f1", "name": "notes.txt", "mimeType": "text/plain", "webViewLink": "https://drive.google.com/file/d/f1/view"},
				{"id": "f2", "name": "Budget", "mimeType": "application/vnd.google-apps.spreadsheet"}
			],
			"nextPageToken": "page2"
		}`))
	}))

	list, err := client.ListFiles(context.Background(), "tok1", "")
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(list.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2", len(list.Files))
	}
	if list.Files[0].ID != "f1" || list.Files[1].Name != "Budget" {
		t.Errorf("unexpected files: %+v", list.Files)
	}
	if list.NextPageToken != "page2" {
		t.Errorf("NextPageToken = %q, want page2", list.NextPageToken)
	}
}

func TestListFiles_PassesPageToken(t *testing.T) {
	client := testDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("pageToken"); got != "page2" {
			t.Errorf("pageToken = %q, want page2", got)
		}
		w.Write([]byte(`{"files": []}`))
	}))

	if _, err := client.ListFiles(context.Background(), "tok1", "page2"); err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
}

func TestListFiles_TokenRejected(t *testing.T) {
	client := testDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.ListFiles(context.Background(), "stale", "")
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("ListFiles() error = %v, want ErrTokenInvalid", err)
	}
}

func TestUploadFile_ConvertsAndShares(t *testing.T) {
	var sharedPerm map[string]any

	client := testDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/upload/files"):
			mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "multipart/related" {
				t.Fatalf("Content-Type = %q, want multipart/related", r.Header.Get("Content-Type"))
			}

			mr := multipart.NewReader(r.Body, params["boundary"])

			metaPart, err := mr.NextPart()
			if err != nil {
				t.Fatalf("missing metadata part: %v", err)
			}
			var meta map[string]any
			if err := json.NewDecoder(metaPart).Decode(&meta); err != nil {
				t.Fatalf("decode metadata: %v", err)
			}
			if meta["name"] != "report.docx" {
				t.Errorf("metadata name = %v, want report.docx", meta["name"])
			}
			if meta["mimeType"] != "application/vnd.google-apps.document" {
				t.Errorf("metadata mimeType = %v, want converted editor type", meta["mimeType"])
			}

			contentPart, err := mr.NextPart()
			if err != nil {
				t.Fatalf("missing content part: %v", err)
			}
			content, _ := io.ReadAll(contentPart)
			if string(content) != "file body" {
				t.Errorf("content = %q, want file body", content)
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id": "up1", "name": "report.docx", "webViewLink": "https://docs.google.com/document/d/up1/edit"}`))

		case r.URL.Path == "/files/up1/permissions":
			json.NewDecoder(r.Body).Decode(&sharedPerm)
			w.Write([]byte(`{"id": "perm1"}`))

		default:
			http.NotFound(w, r)
		}
	}))

	docx := "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	result, err := client.UploadFile(context.Background(), "tok1", "report.docx", docx, strings.NewReader("file body"))
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	if result.FileID != "up1" {
		t.Errorf("FileID = %q, want up1", result.FileID)
	}
	if result.EditLink != "https://docs.google.com/document/d/up1/edit" {
		t.Errorf("EditLink = %q", result.EditLink)
	}
	if sharedPerm["type"] != "anyone" || sharedPerm["role"] != "reader" {
		t.Errorf("permission = %v, want anyone/reader", sharedPerm)
	}
}

func TestUploadFile_SurvivesPermissionFailure(t *testing.T) {
	client := testDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/permissions") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "up1", "name": "notes.txt"}`))
	}))

	result, err := client.UploadFile(context.Background(), "tok1", "notes.txt", "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("UploadFile() error = %v, upload succeeded and must be reported", err)
	}
	if result.FileID != "up1" {
		t.Errorf("FileID = %q, want up1", result.FileID)
	}
}

func TestCreateFile(t *testing.T) {
	var shareQuery string
	var sharedPerm map[string]any

	client := testDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/files" && r.Method == http.MethodPost:
			var meta map[string]any
			json.NewDecoder(r.Body).Decode(&meta)
			if meta["mimeType"] != "application/vnd.google-apps.spreadsheet" {
				t.Errorf("mimeType = %v, want spreadsheet", meta["mimeType"])
			}
			if meta["name"] != "Q3 Budget" {
				t.Errorf("name = %v, want Q3 Budget", meta["name"])
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id": "sheet1"}`))

		case r.URL.Path == "/files/sheet1/permissions":
			shareQuery = r.URL.RawQuery
			json.NewDecoder(r.Body).Decode(&sharedPerm)
			w.Write([]byte(`{"id": "perm1"}`))

		default:
			http.NotFound(w, r)
		}
	}))

	result, err := client.CreateFile(context.Background(), "tok1", "Q3 Budget", domain.FileKindSheet, "teammate@example.com")
	if err != nil {
		t.Fatalf("CreateFile() error = %v", err)
	}
	if result.FileID != "sheet1" {
		t.Errorf("FileID = %q, want sheet1", result.FileID)
	}
	if result.EditLink != "https://docs.google.com/spreadsheets/d/sheet1/edit" {
		t.Errorf("EditLink = %q", result.EditLink)
	}
	if result.EmbedLink != "https://docs.google.com/spreadsheets/d/sheet1/preview" {
		t.Errorf("EmbedLink = %q", result.EmbedLink)
	}
	if result.SharedWith != "teammate@example.com" {
		t.Errorf("SharedWith = %q", result.SharedWith)
	}
	if sharedPerm["role"] != "writer" || sharedPerm["emailAddress"] != "teammate@example.com" {
		t.Errorf("permission = %v", sharedPerm)
	}
	if !strings.Contains(shareQuery, "sendNotificationEmail=true") {
		t.Errorf("share query = %q, want notification email", shareQuery)
	}
}

func TestCreateFile_UnknownKind(t *testing.T) {
	client := testDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no API call expected for an unknown kind")
	}))

	_, err := client.CreateFile(context.Background(), "tok1", "x", domain.FileKind("spreadsheet"), "")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("CreateFile() error = %v, want ErrInvalidInput", err)
	}
}

func TestDownloadFile_ExportsNativeDoc(t *testing.T) {
	client := testDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/files/doc1" && r.URL.Query().Get("fields") != "":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"name": "Project Plan", "mimeType": "application/vnd.google-apps.document"}`))

		case r.URL.Path == "/files/doc1/export":
			want := "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
			if got := r.URL.Query().Get("mimeType"); got != want {
				t.Errorf("export mimeType = %q, want %q", got, want)
			}
			w.Write([]byte("exported bytes"))

		default:
			http.NotFound(w, r)
		}
	}))

	dl, err := client.DownloadFile(context.Background(), "tok1", "doc1")
	if err != nil {
		t.Fatalf("DownloadFile() error = %v", err)
	}
	if dl.FileName != "Project_Plan.docx" {
		t.Errorf("FileName = %q, want Project_Plan.docx", dl.FileName)
	}
	if string(dl.Content) != "exported bytes" {
		t.Errorf("Content = %q", dl.Content)
	}
}

func TestDownloadFile_RegularFile(t *testing.T) {
	client := testDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Query().Get("fields") != "":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"name": "photo.png", "mimeType": "image/png"}`))

		case r.URL.Query().Get("alt") == "media":
			w.Write([]byte("png bytes"))

		default:
			t.Errorf("unexpected request: %s", r.URL)
			http.NotFound(w, r)
		}
	}))

	dl, err := client.DownloadFile(context.Background(), "tok1", "f1")
	if err != nil {
		t.Fatalf("DownloadFile() error = %v", err)
	}
	if dl.FileName != "photo.png" {
		t.Errorf("FileName = %q, want photo.png", dl.FileName)
	}
	if dl.MIMEType != "image/png" {
		t.Errorf("MIMEType = %q, want image/png", dl.MIMEType)
	}
	if string(dl.Content) != "png bytes" {
		t.Errorf("Content = %q", dl.Content)
	}
}

func TestDownloadFile_NotFound(t *testing.T) {
	client := testDriveClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.DownloadFile(context.Background(), "tok1", "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DownloadFile() error = %v, want ErrNotFound", err)
	}
}
