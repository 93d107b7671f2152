// painless serves a web editor for file-backed parameters.
package main

import (
	"os"

	"github.com/painless-params/painless/server/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
