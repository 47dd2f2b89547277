package main

import "github.com/OpenTraceLab/kicadgen/cmd/kigen/cmd"

func main() {
	cmd.Execute()
}
