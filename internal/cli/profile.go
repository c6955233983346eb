package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-intel/internal/api"
)

func newProfileCommand(opts *rootOptions) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect or reset a user's tuning profile",
	}
	cmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "User whose profile to use")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the profile with its summary and recent changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			return runProfileShow(cmd.Context(), opts, userID, cmd.OutOrStdout())
		},
	}
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore the profile defaults and restart its changelog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			return runProfileReset(cmd.Context(), opts, userID, cmd.OutOrStdout())
		},
	}
	cmd.AddCommand(show, reset)
	return cmd
}

type profileView struct {
	api.ProfileResponse
	api.TransparencyResponse
}

func runProfileShow(ctx context.Context, opts *rootOptions, userID string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c, closeFn, err := connect(ctx, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	var view profileView
	req := api.ProfileRequest{UserID: userID}
	if err := c.Call(ctx, api.MethodGetProfile, req, &view.ProfileResponse); err != nil {
		return err
	}
	if err := c.Call(ctx, api.MethodGetTransparency, req, &view.TransparencyResponse); err != nil {
		return err
	}
	return printJSON(out, view)
}

func runProfileReset(ctx context.Context, opts *rootOptions, userID string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c, closeFn, err := connect(ctx, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	var resp api.ProfileResponse
	if err := c.Call(ctx, api.MethodResetProfile, api.ProfileRequest{UserID: userID}, &resp); err != nil {
		return err
	}
	return printJSON(out, resp)
}
