package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds what every command shares.
type RootOptions struct {
	// Open creates the session on first use.
	Open func(ctx context.Context) (*Session, error)
	// In is read by interactive prompts. Defaults to os.Stdin.
	In io.Reader

	session *Session
}

// Session returns the open session, opening it on first call.
func (o *RootOptions) Session(ctx context.Context) (*Session, error) {
	if o.session != nil {
		return o.session, nil
	}
	if o.Open == nil {
		return nil, errors.New("no session configured")
	}
	s, err := o.Open(ctx)
	if err != nil {
		return nil, err
	}
	o.session = s
	return s, nil
}

// Close closes the session if one was opened.
func (o *RootOptions) Close() error {
	if o.session == nil {
		return nil
	}
	err := o.session.Close()
	o.session = nil
	return err
}

func (o *RootOptions) input() io.Reader {
	if o.In != nil {
		return o.In
	}
	return os.Stdin
}

// NewRootCommand creates the root command for the shiori CLI.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "shiori",
		Short:         "旅のしおり - travel itinerary planner",
		Long:          "Plan a trip as a list of dated entries, share it as a link or QR code and export it as text.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewShareCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}
