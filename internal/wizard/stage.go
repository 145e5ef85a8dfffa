package wizard

// Stage is the furthest resolved step of the generation flow
type Stage int

const (
	NoFormat Stage = iota
	FormatSelected
	ModeSelected
	FolderSelected
	TransmittalFolderSelected
	DocTypeSelected
	TemplateSelected
	FileUploaded
	Generating
	Succeeded
	Failed
)

var stageNames = map[Stage]string{
	NoFormat:                  "no_format",
	FormatSelected:            "format_selected",
	ModeSelected:              "mode_selected",
	FolderSelected:            "folder_selected",
	TransmittalFolderSelected: "transmittal_folder_selected",
	DocTypeSelected:           "doc_type_selected",
	TemplateSelected:          "template_selected",
	FileUploaded:              "file_uploaded",
	Generating:                "generating",
	Succeeded:                 "succeeded",
	Failed:                    "failed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// CanUpload reports whether a spreadsheet may be attached at this stage
func (s Stage) CanUpload() bool {
	switch s {
	case TemplateSelected, TransmittalFolderSelected, FileUploaded, Succeeded, Failed:
		return true
	}
	return false
}

// CanGenerate reports whether a run may be submitted at this stage
func (s Stage) CanGenerate() bool {
	switch s {
	case FileUploaded, Succeeded, Failed:
		return true
	}
	return false
}
