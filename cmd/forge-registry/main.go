package main

import "github.com/liquid-forge/forge-architecture/internal/cli"

func main() {
	cli.Execute()
}
