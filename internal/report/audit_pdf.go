// Package report renders audit records as PDF documents.
package report

import (
	"fmt"
	"strconv"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/yildizm/dlgen/internal/api"
)

var (
	colorPrimary = &props.Color{Red: 31, Green: 78, Blue: 121}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// Options control the document header
type Options struct {
	Author      string
	GeneratedAt time.Time
}

// AuditPDF renders a run and the accounts it processed. The caller passes
// every account to include; d.Accounts is ignored when accounts is non-nil.
func AuditPDF(d *api.AuditDetail, accounts []api.Account, opts Options) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("report: audit detail is required")
	}
	if accounts == nil {
		accounts = d.Accounts
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}

	builder := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(fmt.Sprintf("Audit #%d", d.AuditID), true)
	if opts.Author != "" {
		builder = builder.WithAuthor(opts.Author, true)
	}
	m := maroto.New(builder.Build())

	m.AddRows(headerRow(d, opts.GeneratedAt))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRow(d, len(accounts)))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	if len(accounts) == 0 {
		m.AddRows(row.New(7).Add(col.New(12).Add(text.New("No accounts found", props.Text{
			Size: 8, Align: align.Center, Top: 1, Color: colorGray,
		}))))
	}
	for _, r := range accountRows(accounts) {
		m.AddRows(r)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("report: generate audit PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func headerRow(d *api.AuditDetail, generatedAt time.Time) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New("Generation Audit", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Client: "+nonEmpty(d.Client, "-"), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("AUDIT RECORD", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New("#"+strconv.Itoa(d.AuditID), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Exported: "+generatedAt.Format("2006-01-02 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func summaryRow(d *api.AuditDetail, included int) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("RUN", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Processed by: %s   |   At: %s   |   Mode: %s",
				nonEmpty(d.ProcessedBy, "-"),
				nonEmpty(d.ProcessedAt, "-"),
				nonEmpty(d.Mode, "-"),
			), props.Text{Size: 8, Top: 6, Color: colorGray}),
			text.New(fmt.Sprintf("Accounts: %d total, %d listed", d.TotalAccounts, included), props.Text{
				Size: 8, Top: 10, Color: colorGray,
			}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2, Left: 1,
		}))
	}
	return row.New(8).Add(
		h("DL Code", 2),
		h("Name", 3),
		h("Address", 5),
		h("Area", 2),
	)
}

func accountRows(accounts []api.Account) []core.Row {
	rows := make([]core.Row, 0, len(accounts))
	cell := func(s string, size int) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 8, Top: 1, Left: 1}))
	}
	for _, a := range accounts {
		rows = append(rows, row.New(7).Add(
			cell(a.DLCode, 2),
			cell(a.Name, 3),
			cell(a.Address, 5),
			cell(a.Area, 2),
		))
	}
	return rows
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
