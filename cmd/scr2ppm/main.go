package main

import "github.com/bryanchriswhite/scr2ppm/cmd/scr2ppm/commands"

func main() {
	commands.Execute()
}
