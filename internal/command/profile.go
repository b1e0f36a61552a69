package command

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tangled-dev/tangled/internal/setup"
	"github.com/tangled-dev/tangled/shared/domain"
)

var errNoProfile = errors.New("no profile stored for this user")

func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Read or write profiles in the users collection",
	}
	cmd.AddCommand(newProfileGetCmd(), newProfileSetCmd())
	return cmd
}

func newProfileGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the stored profile of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, _ := cmd.Flags().GetString("uid")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			deps, err := setup.SetupCore(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer deps.Close()

			profile, err := deps.Store.GetProfile(cmd.Context(), uid)
			if err != nil {
				return err
			}
			if profile == nil {
				return fmt.Errorf("%s: %w", uid, errNoProfile)
			}
			return printResult(cmd, profile, func(w io.Writer) {
				fmt.Fprintf(w, "name: %s\navatar: %s\n", profile.DisplayName, profile.AvatarURL)
			})
		},
	}
	cmd.Flags().String("uid", "", "user id")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}

func newProfileSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the profile of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, _ := cmd.Flags().GetString("uid")
			name, _ := cmd.Flags().GetString("name")
			avatar, _ := cmd.Flags().GetString("avatar")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			deps, err := setup.SetupCore(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer deps.Close()

			profile := domain.Profile{DisplayName: name, AvatarURL: avatar}
			if err := deps.Store.PutProfile(cmd.Context(), uid, profile); err != nil {
				return err
			}
			return printResult(cmd, profile, func(w io.Writer) {
				fmt.Fprintf(w, "profile of %s saved\n", uid)
			})
		},
	}
	cmd.Flags().String("uid", "", "user id")
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("avatar", "", "avatar URL")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}
