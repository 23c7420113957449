// Command insalatactl is a thin HTTP client for insalatad's command
// surface, with its root command split from one file per subcommand
// group under cmd/.
package main

import (
	"fmt"
	"os"

	"github.com/tumi8/insalata-go/cmd/insalatactl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
