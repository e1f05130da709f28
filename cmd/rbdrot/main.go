package main

import "github.com/rbdrot-project/rbdrot/internal/cli"

func main() {
	cli.Execute()
}
