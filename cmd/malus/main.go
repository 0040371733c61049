package main

import (
	"context"
	"fmt"
	"os"

	"github.com/onflow/relay-node/cmd"
	malus "github.com/onflow/relay-node/insecure/cmd"
)

func main() {
	err := malus.NewMalusCommand(cmd.GenuineFactory).ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cmd.ExitCode(err))
}
