package main

import "craftbridge/internal/cli/cmd"

func main() {
	cmd.Execute()
}
