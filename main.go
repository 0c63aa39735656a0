package main

import "github.com/mkolarik/gesture-gate/cmd"

func main() {
	cmd.Execute()
}
