package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yildizm/dlgen/internal/api"
	"github.com/yildizm/dlgen/internal/wizard"
)

// selection is the set of wizard choices given on the command line
type selection struct {
	Format   string
	Mode     string
	Folder   string
	DocType  string
	Template string
}

// addSelectionFlags binds the wizard choice flags to sel
func addSelectionFlags(cmd *cobra.Command, sel *selection) {
	cmd.Flags().StringVar(&sel.Format, "format", "", "output format (zip, print); defaults to generation.output_format")
	cmd.Flags().StringVar(&sel.Mode, "mode", api.ModeDLOnly, fmt.Sprintf("processing mode (%s)", strings.Join(wizard.Modes, ", ")))
	cmd.Flags().StringVar(&sel.Folder, "folder", "", "client template folder")
	cmd.Flags().StringVar(&sel.DocType, "doc-type", "", "DL type (not used in Transmittal Only mode)")
	cmd.Flags().StringVar(&sel.Template, "template", "", "template file (not used in Transmittal Only mode)")
}

// withDefaults fills unset choices from the configuration
func (s selection) withDefaults() selection {
	if s.Format == "" && cfg != nil {
		s.Format = cfg.Generation.OutputFormat
	}
	return s
}

type step struct {
	flag    string
	value   string
	apply   func(context.Context, string) error
	options func(wizard.Snapshot) []string
}

func (s selection) steps(w *wizard.Machine) []step {
	steps := []step{
		{"--format", s.Format, w.SelectFormat, func(sn wizard.Snapshot) []string { return sn.FormatOptions.Values }},
		{"--mode", s.Mode, w.SelectMode, func(sn wizard.Snapshot) []string { return sn.ModeOptions.Values }},
		{"--folder", s.Folder, w.SelectFolder, func(sn wizard.Snapshot) []string { return sn.FolderOptions.Values }},
	}
	if s.Mode == api.ModeTransmittalOnly {
		return steps
	}
	return append(steps,
		step{"--doc-type", s.DocType, w.SelectDocType, func(sn wizard.Snapshot) []string { return sn.DocTypeOptions.Values }},
		step{"--template", s.Template, w.SelectTemplate, func(sn wizard.Snapshot) []string { return sn.TemplateOptions.Values }},
	)
}

// drive walks the wizard through every choice in order. The first missing
// or rejected choice stops it and names the values that would be accepted.
func drive(ctx context.Context, w *wizard.Machine, sel selection) error {
	for _, st := range sel.steps(w) {
		if st.value == "" {
			return fmt.Errorf("%s is required%s", st.flag, choices(st.options(w.Snapshot())))
		}
		if err := st.apply(ctx, st.value); err != nil {
			if errors.Is(err, wizard.ErrInvalidOption) {
				return fmt.Errorf("%s %q is not available%s", st.flag, st.value, choices(st.options(w.Snapshot())))
			}
			return describe(err)
		}
	}
	return nil
}

func choices(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return " (choose from: " + strings.Join(values, ", ") + ")"
}
