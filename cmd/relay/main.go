package main

import (
	"context"
	"fmt"
	"os"

	"github.com/onflow/relay-node/cmd"
)

func main() {
	err := cmd.NewRelayCommand(cmd.GenuineFactory).ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cmd.ExitCode(err))
}
