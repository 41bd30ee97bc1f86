package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"content-factory/internal/config"
)

func newSetCmd(flags *runFlags) *cobra.Command {
	setCmd := &cobra.Command{
		Use:           "set",
		Short:         "写入本地设置",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	setCmd.AddCommand(&cobra.Command{
		Use:           "key <api_key>",
		Short:         "保存模型 API Key 到 ~/.content-factory/.env",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if key == "" {
				return fmt.Errorf("API Key 不能为空")
			}
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("读取当前目录失败：%w", err)
			}
			cfg, paths, err := config.Load(flags.configArg, cwd)
			if err != nil {
				return err
			}
			if err := config.UpsertEnvVar(paths.EnvPath, cfg.APIKeyEnv, key); err != nil {
				return fmt.Errorf("写入 %s 失败：%w", paths.EnvPath, err)
			}
			return nil
		},
	})
	return setCmd
}
