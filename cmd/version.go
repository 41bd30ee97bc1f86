package cmd

import (
	"fmt"
	"io"
)

// Set at build time with -ldflags "-X content-factory/cmd.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func versionText() string {
	return fmt.Sprintf("content-factory 版本：%s\n提交：%s\n构建时间：%s\n", Version, Commit, BuildTime)
}

func printVersion(w io.Writer) {
	fmt.Fprint(w, versionText())
}
