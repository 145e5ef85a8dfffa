package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/yildizm/dlgen/internal/app"
	"github.com/yildizm/dlgen/internal/logger"
	"github.com/yildizm/dlgen/internal/ui/components"
	"github.com/yildizm/dlgen/internal/wizard"
)

// Screen is what the model is currently drawing
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenGenerator
	ScreenUsers
	ScreenUserForm
	ScreenAudit
	ScreenAuditDetail
)

// field is one row of the generator form
type field int

const (
	fieldFormat field = iota
	fieldMode
	fieldFolder
	fieldDocType
	fieldTemplate
	fieldFile
	fieldGenerate
)

var fieldLabels = map[field]string{
	fieldFormat:   "Output format",
	fieldMode:     "Mode",
	fieldFolder:   "Folder",
	fieldDocType:  "DL type",
	fieldTemplate: "Template",
	fieldFile:     "Spreadsheet",
	fieldGenerate: "Generate",
}

// purpose says what an open picker or input is collecting
type purpose int

const (
	purposeNone purpose = iota
	purposeCode
	purposeFormat
	purposeMode
	purposeFolder
	purposeDocType
	purposeTemplate
	purposePath
	purposeArea
	purposePrinter
	purposeSearch
)

// Options configures the interactive UI
type Options struct {
	DownloadDir          string
	CleanupAfterDownload bool
	Logger               *logger.Logger
}

// Model is the bubbletea model over the application state
type Model struct {
	ctx    context.Context
	app    *app.App
	opts   Options
	log    *logger.Logger
	styles *Styles

	width    int
	height   int
	ready    bool
	quitting bool
	tick     int

	screen  Screen
	focus   field
	busy    string
	spinner *components.Spinner

	// Picker or text input currently open, if any
	picking purpose
	picker  *components.List
	typing  purpose
	input   textinput.Model

	// Print flow picks an area, then a printer
	area string

	progress *components.ProgressBar
	updates  chan wizard.Snapshot
	runDone  chan error

	userList     *components.List
	userQuery    string
	accessFilter string
	confirmEmail string
	formCursor   int
	emailInput   textinput.Model

	auditList *components.List
}
