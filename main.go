package main

import "github.com/wislaw/lexchat/cmd"

func main() {
	cmd.Execute()
}
