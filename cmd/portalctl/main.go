package main

import "portal/cmd/portalctl/commands"

func main() {
	commands.Execute()
}
