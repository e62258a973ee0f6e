package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"lodging-ledger/internal/auth"
	"lodging-ledger/internal/config"
	lodging "lodging-ledger/internal/lodging/domain"
	"lodging-ledger/internal/lodging/infrastructure"
)

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the summary and every month on record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.close()

			doc, err := s.ledger.Document(cmd.Context())
			if err != nil {
				return err
			}
			printDocument(cmd.OutOrStdout(), doc)
			return nil
		},
	}
}

func printDocument(w io.Writer, doc *lodging.Document) {
	summary := lodging.Summarize(doc)
	fmt.Fprintf(w, "Daily rate: %s\n", doc.User.DailyRate.StringFixed(2))
	fmt.Fprintf(w, "Months: %d (%d closed), days: %d\n", summary.Months, summary.ClosedMonths, summary.TotalDays)
	fmt.Fprintf(w, "Total paid: %s, monthly mean: %s, open estimate: %s\n",
		summary.TotalPaid.StringFixed(2), summary.MonthlyMean.StringFixed(2), summary.OpenEstimatedCost.StringFixed(2))
	if len(doc.Months) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MONTH\tDAYS\tSTATUS\tCOMPUTED\tPAID\tDISCREPANCY")
	for _, key := range doc.Months.Keys() {
		view := lodging.ViewMonth(doc, key)
		status := "open"
		if view.Closed {
			status = "closed"
		}
		flag := ""
		if view.HasDiscrepancy {
			flag = view.Discrepancy.StringFixed(2)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			key, view.DayCount, status, amountOrDash(view.ComputedAmount), amountOrDash(view.PaidAmount), flag)
	}
	_ = tw.Flush()
}

func newToggleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle YYYY-MM-DD",
		Short: "Add a day, or remove it when already logged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.ledger.ToggleDay(cmd.Context(), args[0], nil)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: day %d %s\n", res.Month, res.Day, res.Outcome)
			return nil
		},
	}
}

func newLogYesterdayCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "log-yesterday",
		Short: "Log the previous day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.close()

			logged, err := s.ledger.LogPreviousDay(cmd.Context(), nil)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %s\n", logged.Date.Format("2006-01-02"))
			return nil
		},
	}
}

func newCloseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "close YYYY-MM PAID",
		Short: "Close a month with the amount actually paid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.close()

			view, err := s.ledger.CloseMonth(cmd.Context(), args[0], args[1])
			if err != nil {
				return describe(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Closed %s: %d days, computed %s, paid %s\n",
				view.Month, view.DayCount, amountOrDash(view.ComputedAmount), amountOrDash(view.PaidAmount))
			if view.HasDiscrepancy {
				fmt.Fprintf(out, "Discrepancy: %s\n", view.Discrepancy.StringFixed(2))
			}
			return nil
		},
	}
}

func newReopenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reopen YYYY-MM",
		Short: "Reopen a closed month and clear its amounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.close()

			view, err := s.ledger.ReopenMonth(cmd.Context(), args[0])
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reopened %s\n", view.Month)
			return nil
		},
	}
}

type migrateOptions struct {
	to     string
	target config.StorageConfig
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	mo := &migrateOptions{}
	cmd := &cobra.Command{
		Use:   "migrate --to BACKEND",
		Short: "Copy the document from the configured backend into another one",
		Long: `migrate loads the document from the configured backend, normalizes it and
saves it into the target backend. Legacy JSON files with day lists are written
back in the day map form.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			target := mergeStorage(cfg.Storage, mo)
			candidate := cfg
			candidate.Storage = target
			if err := candidate.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			source, err := infrastructure.Open(ctx, cfg.Storage)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer func() { _ = source.Close(ctx) }()
			doc, err := source.Gateway.Load(ctx)
			if err != nil {
				return fmt.Errorf("load source: %w", err)
			}
			if err := doc.Validate(); err != nil {
				return fmt.Errorf("source document: %w", err)
			}

			dest, err := infrastructure.Open(ctx, target)
			if err != nil {
				return fmt.Errorf("open target: %w", err)
			}
			defer func() { _ = dest.Close(ctx) }()
			if err := dest.Gateway.Save(ctx, doc); err != nil {
				return fmt.Errorf("save target: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d months from %s to %s\n", len(doc.Months), cfg.Storage.Backend, target.Backend)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&mo.to, "to", "", "Target backend: file, sqlite, postgres or mongo")
	flags.StringVar(&mo.target.DataFile, "data-file", "", "Target JSON file for the file backend")
	flags.StringVar(&mo.target.SQLitePath, "sqlite-path", "", "Target database file for the sqlite backend")
	flags.StringVar(&mo.target.PostgresDSN, "postgres-dsn", "", "Target DSN for the postgres backend")
	flags.StringVar(&mo.target.MongoURI, "mongo-uri", "", "Target URI for the mongo backend")
	flags.StringVar(&mo.target.MongoDatabase, "mongo-database", "", "Target database for the mongo backend")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// mergeStorage starts from the configured storage and applies the target flags.
func mergeStorage(base config.StorageConfig, mo *migrateOptions) config.StorageConfig {
	out := base
	out.Backend = strings.ToLower(strings.TrimSpace(mo.to))
	if mo.target.DataFile != "" {
		out.DataFile = mo.target.DataFile
	}
	if mo.target.SQLitePath != "" {
		out.SQLitePath = mo.target.SQLitePath
	}
	if mo.target.PostgresDSN != "" {
		out.PostgresDSN = mo.target.PostgresDSN
	}
	if mo.target.MongoURI != "" {
		out.MongoURI = mo.target.MongoURI
	}
	if mo.target.MongoDatabase != "" {
		out.MongoDatabase = mo.target.MongoDatabase
	}
	return out
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		role    string
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("AUTH_JWT_SECRET is not configured")
			}
			normalized, ok := auth.NormalizeRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			token, err := auth.IssueToken([]byte(cfg.Auth.JWTSecret), subject, normalized, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(auth.RoleViewer), "Role claim: viewer, editor or admin")
	cmd.Flags().StringVar(&subject, "subject", "lodgingctl", "Subject claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func amountOrDash(v *decimal.Decimal) string {
	if v == nil {
		return "-"
	}
	return v.StringFixed(2)
}

// describe turns ledger errors into the messages the HTTP API shows.
func describe(err error) error {
	var verr *lodging.ValidationError
	switch {
	case errors.Is(err, lodging.ErrMonthClosed):
		return errors.New("this month is closed and cannot be changed")
	case errors.Is(err, lodging.ErrDuplicateDay):
		return errors.New("this day has already been logged")
	case errors.Is(err, lodging.ErrMonthNotFound):
		return errors.New("this month has no lodging record")
	case errors.As(err, &verr):
		return fmt.Errorf("invalid %s: %s", verr.Field, verr.Message)
	default:
		return err
	}
}
