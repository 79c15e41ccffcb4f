// Command sproc executes stored procedures and prints their result sets.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/sproc/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
