package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"shiori/internal/core"
	"shiori/internal/export"
	"shiori/internal/projection"
	"shiori/internal/qr"
	"shiori/internal/services"
	"shiori/internal/storage"
	"shiori/internal/transfer"
)

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	var tab string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the itinerary grouped by date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.Session(cmd.Context())
			if err != nil {
				return err
			}
			printView(cmd.OutOrStdout(), s.Itinerary.View(), tab)
			return nil
		},
	}
	cmd.Flags().StringVar(&tab, "tab", projection.AllKey, "date (YYYY-MM-DD), \"undecided\" or \"ALL\"")
	return cmd
}

// draftFlags collects entry fields. Only flags set on the command line end up
// in the draft.
type draftFlags struct {
	date, time, title, cost, memo, url string
}

func (f *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "date (YYYY-MM-DD), empty for undecided")
	cmd.Flags().StringVar(&f.time, "time", "", "time (HH:MM)")
	cmd.Flags().StringVar(&f.title, "title", "", "destination or activity")
	cmd.Flags().StringVar(&f.cost, "cost", "", "cost in yen")
	cmd.Flags().StringVar(&f.memo, "memo", "", "free-form note")
	cmd.Flags().StringVar(&f.url, "url", "", "reference link")
}

func (f *draftFlags) draft(cmd *cobra.Command) core.Draft {
	var d core.Draft
	set := func(name string, dst **string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = core.Str(v)
		}
	}
	set("date", &d.Date, f.date)
	set("time", &d.Time, f.time)
	set("title", &d.Title, f.title)
	set("cost", &d.Cost, f.cost)
	set("memo", &d.Memo, f.memo)
	set("url", &d.URL, f.url)
	return d
}

// NewAddCommand creates the add command.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	flags := &draftFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.Session(cmd.Context())
			if err != nil {
				return err
			}
			e, err := s.Itinerary.Add(cmd.Context(), flags.draft(cmd))
			if errors.Is(err, core.ErrEmptyTitle) {
				return errors.New("title is required")
			}
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "added #%d %s", e.ID, e.Title)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	flags := &draftFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := opts.Session(cmd.Context())
			if err != nil {
				return err
			}
			e, err := s.Itinerary.Update(cmd.Context(), id, flags.draft(cmd))
			switch {
			case errors.Is(err, services.ErrNotFound):
				return fmt.Errorf("no entry with id %d", id)
			case errors.Is(err, core.ErrEmptyTitle):
				return errors.New("title cannot be empty")
			case err != nil:
				return err
			}
			printSuccess(cmd.OutOrStdout(), "updated #%d %s", e.ID, e.Title)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(opts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := opts.Session(cmd.Context())
			if err != nil {
				return err
			}
			if e, ok := s.Itinerary.Get(id); ok && !yes {
				printEntry(cmd.OutOrStdout(), e, color.New(color.Faint))
			}
			err = s.Itinerary.Remove(cmd.Context(), id, confirmer(opts, cmd, yes))
			switch {
			case errors.Is(err, services.ErrNotFound):
				return fmt.Errorf("no entry with id %d", id)
			case errors.Is(err, services.ErrNotConfirmed):
				printWarning(cmd.OutOrStdout(), "cancelled")
				return nil
			case err != nil:
				return err
			}
			printSuccess(cmd.OutOrStdout(), "removed #%d", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// NewClearCommand creates the clear command.
func NewClearCommand(opts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry and the saved copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.Session(cmd.Context())
			if err != nil {
				return err
			}
			err = s.Itinerary.ClearAll(cmd.Context(), confirmer(opts, cmd, yes))
			if errors.Is(err, services.ErrNotConfirmed) {
				printWarning(cmd.OutOrStdout(), "cancelled")
				return nil
			}
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "cleared")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// confirmer answers yes when --yes was given and prompts otherwise.
func confirmer(opts *RootOptions, cmd *cobra.Command, yes bool) services.Confirmer {
	if yes {
		return services.Confirmed(true)
	}
	return promptConfirmer(opts.input(), cmd.OutOrStdout())
}

// promptConfirmer asks on out and accepts "y" or "yes" from in.
func promptConfirmer(in io.Reader, out io.Writer) services.Confirmer {
	return services.ConfirmFunc(func(_ context.Context, prompt string) bool {
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	})
}

// NewShareCommand creates the share command.
func NewShareCommand(opts *RootOptions) *cobra.Command {
	var base string
	var showQR bool
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Print a link that carries the whole itinerary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.Session(cmd.Context())
			if err != nil {
				return err
			}
			if base == "" {
				base = s.BaseURL
			}
			link, err := s.Itinerary.ShareLink(base)
			if errors.Is(err, transfer.ErrPayloadTooLarge) {
				return fmt.Errorf("itinerary is too large for a QR code, use export instead: %w", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			if showQR {
				art, err := qr.Terminal(link)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), art)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "origin and path the link points to")
	cmd.Flags().BoolVar(&showQR, "qr", false, "also print the link as a QR code")
	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <link|token>",
		Short: "Replace the itinerary with a shared one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.Session(cmd.Context())
			if err != nil {
				return err
			}
			n, err := s.Itinerary.Import(cmd.Context(), transfer.Normalize(args[0]))
			if err != nil {
				return fmt.Errorf("could not read shared data: %w", err)
			}
			printSuccess(cmd.OutOrStdout(), "imported %d entries", n)
			return nil
		},
	}
}

// NewExportCommand creates the export command.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the itinerary as plain text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.Session(cmd.Context())
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return export.Write(cmd.OutOrStdout(), s.Itinerary.View())
			}
			var buf bytes.Buffer
			if err := export.Write(&buf, s.Itinerary.View()); err != nil {
				return err
			}
			if err := storage.WriteFileAtomic(output, buf.Bytes()); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "wrote %s", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write, stdout when empty (e.g. "+export.Filename+")")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
