package main

import "github.com/prperemyshlev/guild-rejoin/cmd/rejoinctl/cmd"

func main() {
	cmd.Execute()
}
