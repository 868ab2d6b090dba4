package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codz-dev/uploader/pkg/mount"
	"github.com/codz-dev/uploader/pkg/widget"
)

// idleLoop satisfies widget.Loop for pages that are only parsed.
type idleLoop struct{}

func (idleLoop) Dispatch(fn func()) { fn() }
func (idleLoop) AfterFunc(time.Duration, func()) func() bool {
	return func() bool { return false }
}

// widgetReport describes one discovered widget.
type widgetReport struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Single   bool     `json:"single"`
	Required bool     `json:"required"`
	Accept   string   `json:"accept,omitempty"`
	MaxKB    int64    `json:"maxSizeKB"`
	Lang     string   `json:"lang"`
	Existing int      `json:"existingFiles"`
	Form     string   `json:"form,omitempty"`
	Action   string   `json:"action,omitempty"`
	Method   string   `json:"deleteMethod"`
	Issues   []string `json:"issues,omitempty"`
}

func inspectCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect PAGE",
		Short: "List the upload widgets a page declares",
		Long: `Parse a host page the way serve mounts it and list every upload
widget with its configuration and enclosing form.

Malformed data-existing-files entries are reported, since serve skips
them silently apart from a log line.

Examples:
  uploader inspect templates/new-post.html
  uploader inspect --json templates/new-post.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			reports, err := inspectPage(f)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			printReports(cmd.OutOrStdout(), args[0], reports)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}

// inspectPage mounts the page from r and describes its widgets.
func inspectPage(r io.Reader) ([]widgetReport, error) {
	issues := newIssueHandler()
	page, err := mount.Mount(r, mount.Options{
		Widget: widget.Options{Loop: idleLoop{}, Logger: slog.New(issues)},
	})
	if err != nil {
		return nil, err
	}
	defer page.Close()

	reports := make([]widgetReport, 0, len(page.Widgets()))
	for _, w := range page.Widgets() {
		cfg := w.Config()
		rep := widgetReport{
			ID:       cfg.ID,
			Name:     cfg.Name,
			Single:   cfg.Single,
			Required: cfg.Required,
			Accept:   cfg.Accept,
			MaxKB:    cfg.MaxSizeKB,
			Lang:     string(cfg.Lang),
			Existing: len(cfg.Existing),
			Method:   cfg.DeleteMethod,
			Issues:   issues.forWidget(cfg.ID),
		}
		if form, ok := page.Form(cfg.ID); ok {
			rep.Form = form.ID
			rep.Action = form.Action
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// issueHandler collects warnings logged while mounting, by widget.
type issueHandler struct {
	found map[string][]string
}

func newIssueHandler() *issueHandler {
	return &issueHandler{found: make(map[string][]string)}
}

func (h *issueHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelWarn
}

func (h *issueHandler) Handle(_ context.Context, r slog.Record) error {
	var widgetID, index, detail string
	r.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "widget":
			widgetID = a.Value.String()
		case "index":
			index = a.Value.String()
		case "error":
			detail = a.Value.String()
		}
		return true
	})

	msg := r.Message
	if index != "" {
		msg += " (entry " + index + ")"
	}
	if detail != "" {
		msg += ": " + detail
	}
	h.found[widgetID] = append(h.found[widgetID], msg)
	return nil
}

func (h *issueHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *issueHandler) WithGroup(string) slog.Handler      { return h }

func (h *issueHandler) forWidget(id string) []string {
	return h.found[id]
}

func printReports(out io.Writer, path string, reports []widgetReport) {
	if len(reports) == 0 {
		fmt.Fprintf(out, "No upload widgets in %s\n", path)
		return
	}
	fmt.Fprintf(out, "%d upload widget(s) in %s\n\n", len(reports), path)
	for _, r := range reports {
		mode := "multiple"
		if r.Single {
			mode = "single"
		}
		fmt.Fprintf(out, "  #%s\n", r.ID)
		fmt.Fprintf(out, "    name:     %s (%s)\n", r.Name, mode)
		fmt.Fprintf(out, "    accept:   %s\n", orDash(r.Accept))
		fmt.Fprintf(out, "    max size: %d KB\n", r.MaxKB)
		fmt.Fprintf(out, "    required: %t\n", r.Required)
		fmt.Fprintf(out, "    language: %s\n", r.Lang)
		fmt.Fprintf(out, "    existing: %d file(s), deleted with %s\n", r.Existing, r.Method)
		if r.Form != "" {
			fmt.Fprintf(out, "    form:     #%s -> %s\n", r.Form, orDash(r.Action))
		} else {
			fmt.Fprintf(out, "    form:     none (values are not submitted)\n")
		}
		for _, issue := range r.Issues {
			fmt.Fprintf(out, "    \033[33m⚠\033[0m %s\n", issue)
		}
		fmt.Fprintln(out)
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
