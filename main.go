package main

import "github.com/sw33tLie/intender/cmd"

func main() {
	cmd.Execute()
}
