package main

import "github.com/eslsoft/flashdeck/cmd"

func main() {
	cmd.Execute()
}
