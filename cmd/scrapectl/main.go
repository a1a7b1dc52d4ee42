package main

import (
	"github.com/webharvest/scrape-client/internal/cli"
)

func main() {
	cli.Execute()
}
