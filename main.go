package main

import "github.com/sw33tLie/carbonscope/cmd"

func main() {
	cmd.Execute()
}
