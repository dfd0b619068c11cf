package main

import "github.com/pyrestack/pyre/cmd"

func main() {
	cmd.Execute()
}
