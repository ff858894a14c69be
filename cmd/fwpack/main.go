package main

import "github.com/fwpack/fwpack/cmd/fwpack/cmd"

func main() {
	cmd.Execute()
}
