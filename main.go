// portfolio serves Zach's personal site.
package main

import (
	"context"
	"os"

	"github.com/Zachkp/portfolio/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
