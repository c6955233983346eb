package main

import "github.com/miradorstack/mirador-intel/internal/cli"

func main() {
	cli.Execute()
}
