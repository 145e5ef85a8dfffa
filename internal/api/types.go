package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Output formats accepted by set_output_format
const (
	FormatZip   = "zip"
	FormatPrint = "print"
)

// Processing modes accepted by set_mode
const (
	ModeDLOnly          = "DL Only"
	ModeDLTransmittal   = "DL w/ Transmittal"
	ModeTransmittalOnly = "Transmittal Only"
)

// Access levels
const (
	AccessAdmin = "admin"
	AccessUser  = "user"
)

// Session is the payload of check_session and lark_callback
type Session struct {
	Success  bool     `json:"success"`
	Username string   `json:"username"`
	Role     string   `json:"role"`
	Access   string   `json:"access"`
	Clients  []string `json:"clients"`
	Avatar   Avatar   `json:"avatar"`
	Detail   string   `json:"detail,omitempty"`
}

// Avatar is the profile picture reported with a session. The backend sends
// the identity provider's user object; older builds sent the URL alone.
type Avatar struct {
	URL string `json:"avatar_url,omitempty"`
}

func (a *Avatar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		a.URL = ""
		return nil
	case data[0] == '"':
		return json.Unmarshal(data, &a.URL)
	case data[0] == '{':
		var obj struct {
			AvatarURL string `json:"avatar_url"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		a.URL = obj.AvatarURL
		return nil
	default:
		return fmt.Errorf("avatar: unexpected JSON %s", data)
	}
}

// StatusResponse is the generic {success, message, detail} envelope
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// TemplateStatus reports which server-side templates are loaded for a mode
type TemplateStatus struct {
	DLTemplate          string `json:"dl_template,omitempty"`
	TransmittalTemplate string `json:"transmittal_template,omitempty"`
}

// ModeResponse is returned by set_mode
type ModeResponse struct {
	Success        bool           `json:"success"`
	Mode           string         `json:"mode"`
	TemplateStatus TemplateStatus `json:"template_status"`
}

// FormatResponse is returned by set_output_format
type FormatResponse struct {
	Success bool   `json:"success"`
	Format  string `json:"format"`
}

// TemplatesResponse is returned by templates
type TemplatesResponse struct {
	Message   string   `json:"message,omitempty"`
	Detail    string   `json:"detail,omitempty"`
	Templates []string `json:"templates"`
}

// PlaceholdersResponse is returned by placeholders
type PlaceholdersResponse struct {
	Message          string   `json:"message,omitempty"`
	Detail           string   `json:"detail,omitempty"`
	Placeholders     []string `json:"placeholders"`
	TemplateCombined bool     `json:"template_combined"`
}

// TransmittalPlaceholdersResponse is returned by transmittal_placeholders
type TransmittalPlaceholdersResponse struct {
	Message      string   `json:"message,omitempty"`
	Detail       string   `json:"detail,omitempty"`
	Placeholders []string `json:"placeholders"`
	TemplateType string   `json:"template_type,omitempty"`
	Folder       string   `json:"folder,omitempty"`
}

// UploadResponse is returned by upload_excel
type UploadResponse struct {
	Data   []Row  `json:"data"`
	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Printer is one entry of the printers list
type Printer struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// User is a managed user record
type User struct {
	Email   string   `json:"email"`
	Clients []string `json:"clients"`
	Access  string   `json:"access"`
}

// Pagination is the server-side paging envelope shared by audit endpoints
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	TotalCount  int  `json:"total_count"`
	Limit       int  `json:"limit"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// AuditEntry is one generation run
type AuditEntry struct {
	ID            int    `json:"id"`
	Client        string `json:"client"`
	ProcessedBy   string `json:"processed_by"`
	ProcessedAt   string `json:"processed_at"`
	TotalAccounts int    `json:"total_accounts"`
	Mode          string `json:"mode"`
}

// AuditPage is returned by audit_trail
type AuditPage struct {
	Entries    []AuditEntry `json:"entries"`
	Pagination Pagination   `json:"pagination"`
}

// Account is one processed record inside an audit run
type Account struct {
	DLCode  string `json:"dl_code"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Area    string `json:"area"`
}

// AuditDetail is returned by audit_details
type AuditDetail struct {
	AuditID       int        `json:"audit_id"`
	Client        string     `json:"client"`
	ProcessedBy   string     `json:"processed_by"`
	ProcessedAt   string     `json:"processed_at"`
	TotalAccounts int        `json:"total_accounts"`
	Mode          string     `json:"mode"`
	Accounts      []Account  `json:"accounts"`
	Pagination    Pagination `json:"pagination"`
}
