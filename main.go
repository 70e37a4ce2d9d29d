package main

import "github.com/dotcommander/viralscore/cmd"

func main() {
	cmd.Execute()
}
