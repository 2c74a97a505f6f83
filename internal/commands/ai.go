package commands

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/insight"
	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/store"
)

func newInsightCommand(a *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "insight",
		Short: "Ask the model for observations about recent activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			st := s.Snapshot()
			svc, err := a.insights(ctx, st.Settings.PrimaryCurrency)
			if err != nil {
				return err
			}
			return markdown(cmd.OutOrStdout(), svc.FinancialInsights(ctx, insightData(st)), raw)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown source")
	return cmd
}

func newSuggestCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <description>",
		Short: "Suggest an expense category for a description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			st := s.Snapshot()
			svc, err := a.insights(ctx, st.Settings.PrimaryCurrency)
			if err != nil {
				return err
			}
			name := svc.SuggestCategory(ctx, strings.Join(args, " "), st.Categories)
			if name == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No suggestion.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), *name)
			return nil
		},
	}
}

func newReceiptCommand(a *app) *cobra.Command {
	var account, category string

	cmd := &cobra.Command{
		Use:   "receipt <image>",
		Short: "Read merchant, total and date from a receipt photo",
		Long: `Read merchant, total and date from a receipt photo. With --account the
receipt is booked as an expense against that account.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, mime, err := readImage(args[0])
			if err != nil {
				return err
			}

			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			st := s.Snapshot()
			svc, err := a.insights(ctx, st.Settings.PrimaryCurrency)
			if err != nil {
				return err
			}
			r := svc.ExtractReceipt(ctx, insight.Image{MIMEType: mime, Data: data})
			if r == nil {
				return errors.New("could not read the receipt")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Merchant: %s\n", r.Merchant)
			fmt.Fprintf(out, "Total:    %s\n", amount(r.Total, st.Settings.PrimaryCurrency))
			fmt.Fprintf(out, "Date:     %s\n", r.Date)
			if account == "" {
				return nil
			}

			p := store.TransactionParams{
				Date:        r.Date,
				Description: r.Merchant,
				Amount:      r.Total,
				Type:        model.TransactionExpense,
				Receipt:     dataURL(mime, data),
			}
			if p.AccountID, err = accountRef(account, st.Accounts); err != nil {
				return err
			}
			if category != "" {
				if p.CategoryID, err = categoryRef(category, st.Categories); err != nil {
					return err
				}
			} else if name := svc.SuggestCategory(ctx, r.Merchant, st.Categories); name != nil {
				p.CategoryID, _ = categoryRef(*name, st.Categories)
			}
			t, err := s.AddTransaction(ctx, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Booked expense %s\n", short(t.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "book the receipt against this account")
	cmd.Flags().StringVar(&category, "category", "", "category for the booked expense (default: suggested)")
	return cmd
}

// readImage loads an image file and sniffs its MIME type.
func readImage(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading receipt: %w", err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return nil, "", fmt.Errorf("%s is not an image (%s)", path, mime)
	}
	return data, mime, nil
}

func dataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// receiptRef turns a --receipt value into the stored payload. Data URLs pass
// through unchanged, anything else is read as an image file.
func receiptRef(v string) (string, error) {
	if v == "" || strings.HasPrefix(v, "data:") {
		return v, nil
	}
	data, mime, err := readImage(v)
	if err != nil {
		return "", err
	}
	return dataURL(mime, data), nil
}

func newReportCommand(a *app) *cobra.Command {
	var from, to, htmlPath string
	var raw bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a narrative report for a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			st := s.Snapshot()
			today := s.Today()

			start, err := dateOr(from, date.New(today.Year(), today.Month(), 1))
			if err != nil {
				return err
			}
			end, err := dateOr(to, today)
			if err != nil {
				return err
			}
			if end.Before(start) {
				return fmt.Errorf("--to %s is before --from %s", end, start)
			}

			svc, err := a.insights(ctx, st.Settings.PrimaryCurrency)
			if err != nil {
				return err
			}
			md := svc.GenerateReport(ctx, insightData(st), start, end)

			if htmlPath != "" {
				doc, err := reportHTML(fmt.Sprintf("Financial report %s to %s", start, end), md)
				if err != nil {
					return err
				}
				if err := os.WriteFile(htmlPath, doc, 0o644); err != nil {
					return fmt.Errorf("writing report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", htmlPath)
				return nil
			}
			return markdown(cmd.OutOrStdout(), md, raw)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day (default: start of this month)")
	cmd.Flags().StringVar(&to, "to", "", "last day (default: today)")
	cmd.Flags().StringVar(&htmlPath, "html", "", "write the report as an HTML file")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown source")
	return cmd
}

// reportHTML renders md into a standalone HTML page.
func reportHTML(title, md string) ([]byte, error) {
	var body bytes.Buffer
	conv := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := conv.Convert([]byte(md), &body); err != nil {
		return nil, fmt.Errorf("converting report: %w", err)
	}

	var doc bytes.Buffer
	fmt.Fprintf(&doc, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n<h1>%s</h1>\n",
		html.EscapeString(title), html.EscapeString(title))
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")
	return doc.Bytes(), nil
}
