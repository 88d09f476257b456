package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/fieldsync/internal/client/cli"
	"github.com/dmitrijs2005/fieldsync/internal/client/config"
)

func main() {

	cfg := config.LoadConfig()

	root := cli.NewRootCommand(cli.DefaultFactory(cfg))
	root.SetArgs(config.Args(os.Args[1:]))

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.ExitCode(err))
	}

}
