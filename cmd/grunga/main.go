package main

import "github.com/grunga-fit/grunga/internal/cli"

func main() {
	cli.Execute()
}
