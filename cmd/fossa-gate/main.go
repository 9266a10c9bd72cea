package main

import "github.com/davarch/fossa-gate/cmd/fossa-gate/cli"

func main() {
	cli.Execute()
}
