package main

import "github.com/gridscope/gridscope/cmd"

func main() {
	cmd.Execute()
}
