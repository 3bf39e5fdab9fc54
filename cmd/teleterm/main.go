package main

import "github.com/groblegark/teleterm/internal/cmd"

func main() {
	cmd.Execute()
}
