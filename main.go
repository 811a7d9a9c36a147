// main package for the gnatllvm command-line tool
// Package main is the entry point for the gnatllvm CLI.
package main

import "github.com/toabey/gnat-llvm/cmd"

func main() {
	cmd.Execute()
}
