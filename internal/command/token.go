package command

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tangled-dev/tangled/shared/domain"
	"github.com/tangled-dev/tangled/shared/jwt"
)

// NewTokenCmd issues identity tokens for development and scripted clients.
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an identity token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, _ := cmd.Flags().GetString("uid")
			name, _ := cmd.Flags().GetString("name")
			avatar, _ := cmd.Flags().GetString("avatar")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			token, err := jwt.New(cfg.JwtKey(), cfg.JwtTTL()).NewToken(domain.User{
				Id:          uid,
				DisplayName: name,
				AvatarURL:   avatar,
			})
			if err != nil {
				return err
			}
			return printResult(cmd, map[string]string{"token": token}, func(w io.Writer) {
				fmt.Fprintln(w, token)
			})
		},
	}
	cmd.Flags().String("uid", "", "user id claim")
	cmd.Flags().String("name", "", "display name claim")
	cmd.Flags().String("avatar", "", "avatar URL claim")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}
