package main

import (
	"github.com/marcel-krsh/usn/internal/cli"
)

func main() {
	cli.Execute()
}
