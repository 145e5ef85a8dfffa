package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/yildizm/dlgen/internal/api"
	"github.com/yildizm/dlgen/internal/formatter"
	"github.com/yildizm/dlgen/internal/report"
)

var (
	auditPage    int
	auditPDFPath string
	auditAllRows bool
)

func newAuditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Browse the audit trail (admin only)",
		Long:  "Browse past generation runs and the accounts each one processed.",
	}
	cmd.AddCommand(newAuditListCommand())
	cmd.AddCommand(newAuditShowCommand())
	cmd.AddCommand(newAuditExportCommand())
	return cmd
}

func newAuditListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List generation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			_, a, err := connect(ctx)
			if err != nil {
				return err
			}
			page, err := a.Audit.Load(ctx, auditPage)
			if err != nil {
				return describe(err)
			}
			return printReport(formatter.AuditPageReport(page))
		},
	}
	cmd.Flags().IntVarP(&auditPage, "page", "p", 1, "page number")
	return cmd
}

func newAuditShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run and the accounts it processed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAuditID(args[0])
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			_, a, err := connect(ctx)
			if err != nil {
				return err
			}
			detail, err := a.Audit.Open(ctx, id, auditPage)
			if err != nil {
				return describe(err)
			}
			return printReport(formatter.AuditDetailReport(detail))
		},
	}
	cmd.Flags().IntVarP(&auditPage, "page", "p", 1, "page of accounts")
	return cmd
}

func newAuditExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a run as a PDF report",
		Long: `Write a PDF report of one run. By default the report holds the given
page of accounts; with --all every page is fetched and included.`,
		Example: `  dlgen audit export 42 --pdf audit-42.pdf
  dlgen audit export 42 --pdf audit-42.pdf --all`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAuditID(args[0])
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			_, a, err := connect(ctx)
			if err != nil {
				return err
			}

			detail, err := a.Audit.Open(ctx, id, auditPage)
			if err != nil {
				return describe(err)
			}
			accounts := append([]api.Account(nil), detail.Accounts...)
			if auditAllRows {
				for page := detail.Pagination.CurrentPage + 1; page <= detail.Pagination.TotalPages; page++ {
					next, err := a.Audit.Open(ctx, id, page)
					if err != nil {
						return describe(err)
					}
					accounts = append(accounts, next.Accounts...)
				}
			}

			author := ""
			if u := a.User(); u != nil {
				author = u.Username
			}
			data, err := report.AuditPDF(detail, accounts, report.Options{Author: author, GeneratedAt: time.Now()})
			if err != nil {
				return err
			}
			if err := handleOutputDestination(data, auditPDFPath); err != nil {
				return err
			}
			status("audit", "Exported audit #%d (%d accounts) to %s", id, len(accounts), auditPDFPath)
			return nil
		},
	}
	cmd.Flags().IntVarP(&auditPage, "page", "p", 1, "page of accounts to export")
	cmd.Flags().StringVar(&auditPDFPath, "pdf", "", "output PDF file")
	cmd.Flags().BoolVar(&auditAllRows, "all", false, "include every page of accounts")
	_ = cmd.MarkFlagRequired("pdf")
	return cmd
}

func parseAuditID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid audit id: %s", s)
	}
	return id, nil
}
