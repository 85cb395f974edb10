package main

import "github.com/rangepull/rangepull/cmd"

func main() {
	cmd.Execute()
}
