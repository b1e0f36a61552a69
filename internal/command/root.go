package command

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tangled-dev/tangled/shared/config"
	"github.com/tangled-dev/tangled/shared/logger"
)

const AppName = "tangled"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "tangled - post threads with an optional image",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("config_folder", "config", "path to folder with configs")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewServeCmd(),
		NewPostCmd(),
		NewThreadsCmd(),
		NewProfileCmd(),
		NewTokenCmd(),
	)
	return cmd
}

func Execute() error {
	return NewRootCmd(Version).Execute()
}

// loadConfig reads the config folder and sets up the logger from it.
// MustLoad panics on a bad config; the panic is turned into an error here.
func loadConfig(cmd *cobra.Command) (cfg *config.Config, err error) {
	folder, _ := cmd.Flags().GetString("config_folder")
	defer func() {
		if r := recover(); r != nil {
			err = configError{folder: folder, reason: r}
		}
	}()
	cfg = config.MustLoad(folder)
	logger.InitializeWriter(cmd.ErrOrStderr(), cfg.Public.Log.Level, cfg.Public.Log.JSON)
	return cfg, nil
}
