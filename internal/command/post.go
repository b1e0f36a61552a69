package command

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tangled-dev/tangled/internal/composer"
	"github.com/tangled-dev/tangled/internal/setup"
	"github.com/tangled-dev/tangled/shared/domain"
	"github.com/tangled-dev/tangled/shared/validation"
)

// pathPicker "picks" the file given on the command line.
type pathPicker struct {
	path         string
	allowedMimes []string
	maxSize      int64
}

func (p pathPicker) Pick(ctx context.Context) (*domain.PendingFile, error) {
	if p.path == "" {
		return nil, nil
	}
	return validation.OpenImageFile(p.path, p.allowedMimes, p.maxSize)
}

func NewPostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _ := cmd.Flags().GetString("body")
			imagePath, _ := cmd.Flags().GetString("image")
			uid, _ := cmd.Flags().GetString("as")
			name, _ := cmd.Flags().GetString("name")
			avatar, _ := cmd.Flags().GetString("avatar")

			// checked before the image is uploaded
			if strings.TrimSpace(body) == "" {
				return composer.ErrEmptyBody
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			deps, err := setup.SetupCore(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer deps.Close()

			var user *domain.User
			if uid != "" {
				user = &domain.User{Id: uid, DisplayName: name, AvatarURL: avatar}
			}

			c := deps.NewComposer(pathPicker{
				path:         imagePath,
				allowedMimes: cfg.Public.AllowedImageMimeTypes,
				maxSize:      cfg.Public.MaxImageSize,
			})
			c.Mount(ctx, user)
			c.SetBody(body)

			if imagePath != "" {
				upload, err := c.TriggerFilePicker(ctx)
				if err != nil {
					return err
				}
				if _, err := upload.Wait(ctx); err != nil {
					return fmt.Errorf("image %s: %w", imagePath, err)
				}
			}

			thread, err := c.Submit(ctx, user)
			if err != nil {
				return err
			}
			return printResult(cmd, thread, func(w io.Writer) {
				fmt.Fprintf(w, "posted thread %s\n", thread.Id)
				if thread.HasImage() {
					fmt.Fprintf(w, "image: %s\n", thread.Image)
				}
			})
		},
	}

	cmd.Flags().String("body", "", "thread text")
	cmd.Flags().String("image", "", "path of an image to attach")
	cmd.Flags().String("as", "", "post as this user id (anonymous when empty)")
	cmd.Flags().String("name", "", "display name claim for --as")
	cmd.Flags().String("avatar", "", "avatar URL claim for --as")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func NewThreadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List recent threads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			deps, err := setup.SetupCore(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer deps.Close()

			threads, err := deps.Store.RecentThreads(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if threads == nil {
				threads = []domain.Thread{}
			}
			return printResult(cmd, threads, func(w io.Writer) {
				if len(threads) == 0 {
					fmt.Fprintln(w, "no threads")
					return
				}
				for _, t := range threads {
					owner := "anonymous"
					if t.OwnerId != nil {
						owner = *t.OwnerId
					}
					fmt.Fprintf(w, "%s  %s  %s  %s\n", t.Id, t.CreatedTime.Format("2006-01-02 15:04"), owner, firstLine(t.Body))
				}
			})
		},
	}
	cmd.Flags().Int("limit", 20, "number of threads to show")
	return cmd
}

func firstLine(s string) string {
	line, _, cut := strings.Cut(s, "\n")
	if cut {
		return line + " ..."
	}
	return line
}
