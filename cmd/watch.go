package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"content-factory/internal/app"
)

func newWatchCmd(stdout, stderr io.Writer, flags *runFlags) *cobra.Command {
	return &cobra.Command{
		Use:           "watch <file_or_dir ...>",
		Short:         "监听稿件目录，保存后自动重新规整",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(args, stdout, stderr)
			if err != nil {
				return err
			}
			return app.Watch(cmd.Context(), opts)
		},
	}
}
