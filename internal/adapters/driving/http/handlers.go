package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/clearfile-labs/drive-core/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// AuthURLResponse carries the provider authorization URL
// @Description Provider authorization URL for the caller to open
type AuthURLResponse struct {
	AuthURL string `json:"authUrl" example:"https://accounts.google.com/o/oauth2/auth?..."`
}

// ConnectionStatusResponse reports whether the caller holds a working credential
// @Description Drive connection status
type ConnectionStatusResponse struct {
	IsConnected bool `json:"isConnected" example:"true"`
}

// TokenResponse carries a valid provider access token
// @Description Provider access token
type TokenResponse struct {
	Token string `json:"token" example:"ya29...."`
}

// MessageResponse carries a human-readable confirmation
// @Description Confirmation message
type MessageResponse struct {
	Message string `json:"message" example:"Drive account disconnected"`
}

// callbackRequest is the JSON body for the non-redirecting callback variant
type callbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks store connections)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "A backing store is unreachable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Auth endpoints

// handleAuth godoc
// @Summary      Start Drive authorization
// @Description  Returns the provider authorization URL for the caller to open in a browser
// @Tags         Authentication
// @Produce      json
// @Param        callback_url  query     string  false  "Frontend URL to return to after authorization"
// @Success      200  {object}  AuthURLResponse
// @Failure      401  {object}  ErrorResponse  "Missing caller identity"
// @Failure      500  {object}  ErrorResponse  "Could not generate authorization URL"
// @Security     BearerAuth
// @Router       /auth [get]
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	callbackURL := r.URL.Query().Get("callback_url")
	if callbackURL == "" {
		callbackURL = s.defaultCallbackURL
	}

	authURL, err := s.oauthService.GenerateAuthURL(r.Context(), authCtx.UserID, callbackURL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate authorization URL")
		return
	}

	writeJSON(w, http.StatusOK, AuthURLResponse{AuthURL: authURL})
}

// handleAuthCallback godoc
// @Summary      OAuth callback (redirecting)
// @Description  Completes the authorization flow. Always redirects: to the flow's callback URL with the token on success, or to the default callback URL with an error code on failure. The far end is a browser mid-redirect-chain, so a bare error page is never returned.
// @Tags         Authentication
// @Param        code   query  string  true  "Authorization code from the provider"
// @Param        state  query  string  true  "State token bound to the flow"
// @Success      302
// @Router       /auth/callback [get]
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" || state == "" {
		s.redirectWithError(w, r, "missing_code_or_state")
		return
	}

	result, err := s.oauthService.HandleCallback(r.Context(), code, state)
	if err != nil {
		s.redirectWithError(w, r, callbackErrorCode(err))
		return
	}

	target := appendQuery(result.CallbackURL, "token", result.AccessToken)
	http.Redirect(w, r, target, http.StatusFound)
}

// handleAuthCallback2 godoc
// @Summary      OAuth callback (JSON)
// @Description  Completes the authorization flow for clients that received the code and state directly, returning the token as JSON instead of redirecting
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      callbackRequest  true  "Code and state"
// @Success      200      {object}  TokenResponse
// @Failure      400      {object}  ErrorResponse  "Invalid body, state, or code"
// @Router       /auth/callback2 [post]
func (s *Server) handleAuthCallback2(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" || req.State == "" {
		writeError(w, http.StatusBadRequest, "code and state are required")
		return
	}

	result, err := s.oauthService.HandleCallback(r.Context(), req.Code, req.State)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidOrExpiredState):
			writeError(w, http.StatusBadRequest, "invalid or expired authentication state")
		case errors.Is(err, domain.ErrAuthenticationFailed):
			writeError(w, http.StatusBadRequest, "authentication failed")
		default:
			writeError(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleAuthStatus godoc
// @Summary      Drive connection status
// @Description  Reports whether the caller holds a credential that currently yields a valid access token
// @Tags         Authentication
// @Produce      json
// @Success      200  {object}  ConnectionStatusResponse
// @Failure      401  {object}  ErrorResponse  "Missing caller identity"
// @Failure      502  {object}  ErrorResponse  "Provider unavailable"
// @Security     BearerAuth
// @Router       /auth/status [get]
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	connected, err := s.oauthService.CheckStatus(r.Context(), authCtx.UserID)
	if err != nil {
		if domain.IsUpstreamError(err) {
			writeError(w, http.StatusBadGateway, "provider unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to check connection status")
		return
	}

	writeJSON(w, http.StatusOK, ConnectionStatusResponse{IsConnected: connected})
}

// handleAuthToken godoc
// @Summary      Get a valid access token
// @Description  Returns a currently valid provider access token for the caller, refreshing transparently if needed
// @Tags         Authentication
// @Produce      json
// @Success      200  {object}  TokenResponse
// @Failure      401  {object}  ErrorResponse  "Not connected or identity missing"
// @Failure      502  {object}  ErrorResponse  "Provider unavailable"
// @Security     BearerAuth
// @Router       /auth/token [get]
func (s *Server) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	token, err := s.oauthService.GetValidToken(r.Context(), authCtx.UserID)
	if err != nil {
		writeTokenError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// handleDisconnect godoc
// @Summary      Disconnect Drive account
// @Description  Deletes the caller's stored credential. Idempotent.
// @Tags         Authentication
// @Produce      json
// @Success      200  {object}  MessageResponse
// @Failure      401  {object}  ErrorResponse  "Missing caller identity"
// @Security     BearerAuth
// @Router       /auth/disconnect [post]
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	message, err := s.oauthService.Disconnect(r.Context(), authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to disconnect")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// Drive endpoints

// handleListFiles godoc
// @Summary      List Drive files
// @Description  Returns one page of the caller's files
// @Tags         Drive
// @Produce      json
// @Param        page_token  query     string  false  "Token for the next page"
// @Success      200  {object}  domain.FileList
// @Failure      401  {object}  ErrorResponse  "Not connected"
// @Failure      502  {object}  ErrorResponse  "Provider unavailable"
// @Security     BearerAuth
// @Router       /drive/files [get]
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	list, err := s.driveService.ListFiles(r.Context(), authCtx.UserID, r.URL.Query().Get("page_token"))
	if err != nil {
		writeDriveError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// handleUploadFile godoc
// @Summary      Upload a file to Drive
// @Description  Uploads a multipart file, converting Office and text formats to native editor documents
// @Tags         Drive
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "File to upload"
// @Success      200  {object}  domain.UploadResult
// @Failure      400  {object}  ErrorResponse  "Missing or unreadable file"
// @Failure      401  {object}  ErrorResponse  "Not connected"
// @Failure      502  {object}  ErrorResponse  "Provider unavailable"
// @Security     BearerAuth
// @Router       /drive/upload [post]
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	result, err := s.driveService.UploadFile(r.Context(), authCtx.UserID, header.Filename, contentType, file)
	if err != nil {
		writeDriveError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleCreateFile godoc
// @Summary      Create an editor document
// @Description  Creates an empty native editor document (doc, sheet, slide, form, or drawing), optionally sharing it with another user as a writer
// @Tags         Drive
// @Produce      json
// @Param        title       query     string  true   "Document title"
// @Param        file_type   query     string  true   "File type: 'doc', 'sheet', 'slide', 'form', 'drawing'"
// @Param        user_email  query     string  false  "Email address to share the document with"
// @Success      200  {object}  domain.CreateResult
// @Failure      400  {object}  ErrorResponse  "Missing title or unknown file type"
// @Failure      401  {object}  ErrorResponse  "Not connected"
// @Failure      502  {object}  ErrorResponse  "Provider unavailable"
// @Security     BearerAuth
// @Router       /drive/create-file [post]
func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	title := q.Get("title")
	kind := domain.FileKind(q.Get("file_type"))
	shareWith := q.Get("user_email")

	result, err := s.driveService.CreateFile(r.Context(), authCtx.UserID, title, kind, shareWith)
	if err != nil {
		writeDriveError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleDownloadFile godoc
// @Summary      Download a Drive file
// @Description  Streams a file's content as an attachment, exporting native editor documents to their Office equivalents
// @Tags         Drive
// @Produce      application/octet-stream
// @Param        file_id  query  string  true  "File ID"
// @Success      200  {file}  binary
// @Failure      400  {object}  ErrorResponse  "Missing file_id"
// @Failure      401  {object}  ErrorResponse  "Not connected"
// @Failure      404  {object}  ErrorResponse  "File not found"
// @Failure      502  {object}  ErrorResponse  "Provider unavailable"
// @Security     BearerAuth
// @Router       /drive/download-file [get]
func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	fileID := r.URL.Query().Get("file_id")
	if fileID == "" {
		writeError(w, http.StatusBadRequest, "file_id is required")
		return
	}

	dl, err := s.driveService.DownloadFile(r.Context(), authCtx.UserID, fileID)
	if err != nil {
		writeDriveError(w, err)
		return
	}

	w.Header().Set("Content-Type", dl.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dl.Content)
}

// redirectWithError sends the browser to the default callback URL carrying an
// error code. The callback flow never renders a bare error page.
func (s *Server) redirectWithError(w http.ResponseWriter, r *http.Request, errCode string) {
	target := appendQuery(s.defaultCallbackURL, "error", errCode)
	http.Redirect(w, r, target, http.StatusFound)
}

// callbackErrorCode maps a callback failure to the error query parameter the
// frontend keys on.
func callbackErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidOrExpiredState):
		return "invalid_state"
	case errors.Is(err, domain.ErrAuthenticationFailed):
		return "auth_failed"
	default:
		return "internal_error"
	}
}

// writeTokenError maps token resolution failures for /auth/token.
func writeTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotConnected):
		writeError(w, http.StatusUnauthorized, "no valid token available")
	case domain.IsUpstreamError(err):
		writeError(w, http.StatusBadGateway, "provider unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "failed to retrieve token")
	}
}

// writeDriveError maps drive operation failures to HTTP status codes.
func writeDriveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotConnected):
		writeError(w, http.StatusUnauthorized, "drive account not connected")
	case errors.Is(err, domain.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "access token rejected")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "file not found")
	case domain.IsUpstreamError(err):
		writeError(w, http.StatusBadGateway, "provider unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "drive operation failed")
	}
}

// appendQuery appends key=value to a URL, respecting any existing query.
func appendQuery(rawURL, key, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL + "?" + key + "=" + url.QueryEscape(value)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
