package api

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
)

// Backend endpoint paths, relative to the API root
const (
	EndpointCheckSession            = "check_session"
	EndpointCallback                = "lark_callback"
	EndpointLogin                   = "login"
	EndpointLogout                  = "logout"
	EndpointFolders                 = "folders"
	EndpointAllFolders              = "all_folders"
	EndpointDLTypes                 = "dl_types"
	EndpointTemplates               = "templates"
	EndpointPlaceholders            = "placeholders"
	EndpointTransmittalPlaceholders = "transmittal_placeholders"
	EndpointSetMode                 = "set_mode"
	EndpointSetOutputFormat         = "set_output_format"
	EndpointUploadExcel             = "upload_excel"
	EndpointGeneratePDFs            = "generate_pdfs"
	EndpointDownloadZip             = "download_zip"
	EndpointCleanup                 = "cleanup"
	EndpointPrinters                = "printers"
	EndpointPrintFiles              = "print_files"
	EndpointUsers                   = "users"
	EndpointAuditTrail              = "audit_trail"
	EndpointAuditDetails            = "audit_details"
)

// LoginURL is where the user starts third-party sign-in in a browser
func (c *Client) LoginURL() string {
	return c.URL(EndpointLogin)
}

// CheckSession probes the current session
func (c *Client) CheckSession(ctx context.Context) (*Session, error) {
	var s Session
	if err := c.getJSON(ctx, EndpointCheckSession, nil, &s); err != nil {
		return nil, err
	}
	if s.Success {
		c.persistSession()
	}
	return &s, nil
}

// ExchangeCode trades an authorization code for a session cookie
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Session, error) {
	var s Session
	if err := c.getJSON(ctx, EndpointCallback, url.Values{"code": {code}}, &s); err != nil {
		return nil, err
	}
	if s.Success {
		c.persistSession()
	}
	return &s, nil
}

// Logout ends the backend session and forgets the local cookie
func (c *Client) Logout(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.getJSON(ctx, EndpointLogout, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Success {
		c.ClearSession()
	}
	return &resp, nil
}

// Folders lists the folders the current user may generate from
func (c *Client) Folders(ctx context.Context) ([]string, error) {
	var folders []string
	if err := c.getJSON(ctx, EndpointFolders, nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// AllFolders lists every folder (admin only)
func (c *Client) AllFolders(ctx context.Context) ([]string, error) {
	var folders []string
	if err := c.getJSON(ctx, EndpointAllFolders, nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

type folderRequest struct {
	Folder string `json:"folder"`
}

// DLTypes lists document types available in a folder
func (c *Client) DLTypes(ctx context.Context, folder string) ([]string, error) {
	var types []string
	if err := c.sendJSON(ctx, http.MethodPost, EndpointDLTypes, folderRequest{Folder: folder}, &types); err != nil {
		return nil, err
	}
	return types, nil
}

// Templates lists content templates in a folder
func (c *Client) Templates(ctx context.Context, folder string) (*TemplatesResponse, error) {
	var resp TemplatesResponse
	if err := c.sendJSON(ctx, http.MethodPost, EndpointTemplates, folderRequest{Folder: folder}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PlaceholderRequest identifies one template
type PlaceholderRequest struct {
	Folder   string `json:"folder"`
	DLType   string `json:"dl_type"`
	Template string `json:"template"`
}

// Placeholders lists the merge fields of a template
func (c *Client) Placeholders(ctx context.Context, req PlaceholderRequest) (*PlaceholdersResponse, error) {
	var resp PlaceholdersResponse
	if err := c.sendJSON(ctx, http.MethodPost, EndpointPlaceholders, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TransmittalPlaceholders lists the merge fields of the transmittal template.
// An empty folder asks for the session default.
func (c *Client) TransmittalPlaceholders(ctx context.Context, folder string) (*TransmittalPlaceholdersResponse, error) {
	var query url.Values
	if folder != "" {
		query = url.Values{"folder": {folder}}
	}
	var resp TransmittalPlaceholdersResponse
	if err := c.getJSON(ctx, EndpointTransmittalPlaceholders, query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetMode selects the processing mode server-side
func (c *Client) SetMode(ctx context.Context, mode string) (*ModeResponse, error) {
	var resp ModeResponse
	if err := c.sendJSON(ctx, http.MethodPost, EndpointSetMode, map[string]string{"mode": mode}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetOutputFormat selects zip or print output server-side
func (c *Client) SetOutputFormat(ctx context.Context, format string) (*FormatResponse, error) {
	var resp FormatResponse
	if err := c.sendJSON(ctx, http.MethodPost, EndpointSetOutputFormat, map[string]string{"format": format}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadExcel sends a spreadsheet for server-side parsing
func (c *Client) UploadExcel(ctx context.Context, path string) (*UploadResponse, error) {
	body, contentType, err := multipartFile(path)
	if err != nil {
		return nil, err
	}
	var resp UploadResponse
	r := request{method: http.MethodPost, endpoint: EndpointUploadExcel, body: body, contentType: contentType}
	if err := c.doJSON(ctx, r, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GeneratePDFs submits a spreadsheet for generation and returns the
// newline-delimited event stream. The caller's context bounds the whole run.
func (c *Client) GeneratePDFs(ctx context.Context, path string) (io.ReadCloser, error) {
	body, contentType, err := multipartFile(path)
	if err != nil {
		return nil, err
	}
	resp, _, err := c.do(ctx, request{
		method:      http.MethodPost,
		endpoint:    EndpointGeneratePDFs,
		body:        body,
		contentType: contentType,
		stream:      true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Download is a retrieved artifact
type Download struct {
	Filename string
	Size     int64
}

// DownloadZip streams the generated archive into w
func (c *Client) DownloadZip(ctx context.Context, w io.Writer) (*Download, error) {
	resp, _, err := c.do(ctx, request{method: http.MethodGet, endpoint: EndpointDownloadZip, stream: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	d := &Download{Filename: "documents.zip"}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		d.Filename = params["filename"]
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return nil, NewErrorWithCause(ErrTypeNetwork, EndpointDownloadZip, "download interrupted", err)
	}
	d.Size = n
	return d, nil
}

// Cleanup removes server-side temporary files and resets the server session state
func (c *Client) Cleanup(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.sendJSON(ctx, http.MethodPost, EndpointCleanup, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Printers lists printers known to the backend host
func (c *Client) Printers(ctx context.Context) ([]Printer, error) {
	var resp struct {
		Printers []Printer `json:"printers"`
	}
	if err := c.getJSON(ctx, EndpointPrinters, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Printers, nil
}

// PrintFiles prints the generated documents of one area. An empty printer uses the default.
func (c *Client) PrintFiles(ctx context.Context, area, printer string) (*StatusResponse, error) {
	var query url.Values
	if printer != "" {
		query = url.Values{"printer": {printer}}
	}
	var resp StatusResponse
	if err := c.getJSON(ctx, EndpointPrintFiles+"/"+url.PathEscape(area), query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Users lists managed users (admin only)
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.getJSON(ctx, EndpointUsers, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser adds a user (admin only)
func (c *Client) CreateUser(ctx context.Context, u User) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.sendJSON(ctx, http.MethodPost, EndpointUsers, u, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateUser replaces the folders and access of the user keyed by email (admin only)
func (c *Client) UpdateUser(ctx context.Context, email string, u User) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.sendJSON(ctx, http.MethodPut, userPath(email), u, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteUser removes a user (admin only)
func (c *Client) DeleteUser(ctx context.Context, email string) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.sendJSON(ctx, http.MethodDelete, userPath(email), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func userPath(email string) string {
	return EndpointUsers + "/" + url.PathEscape(email)
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// AuditTrail fetches one page of generation runs
func (c *Client) AuditTrail(ctx context.Context, page, limit int) (*AuditPage, error) {
	var resp AuditPage
	if err := c.getJSON(ctx, EndpointAuditTrail, pageQuery(page, limit), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AuditDetails fetches one page of processed records for a run
func (c *Client) AuditDetails(ctx context.Context, id, page, limit int) (*AuditDetail, error) {
	var resp AuditDetail
	endpoint := fmt.Sprintf("%s/%d", EndpointAuditDetails, id)
	if err := c.getJSON(ctx, endpoint, pageQuery(page, limit), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
