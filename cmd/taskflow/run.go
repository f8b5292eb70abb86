package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sravan-boop/taskflow/internal/cli"
	"github.com/sravan-boop/taskflow/internal/httpapi"
)

func Run(ctx context.Context, args []string) int {
	httpapi.Version = Version
	root := cli.NewRootCmd(Version)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return 0
}
