package main

import "github.com/bayclock/bayclock/cmd"

func main() {
	cmd.Execute()
}
