package main

import "github.com/erwiqair/skydesk/cmd"

func main() {
	cmd.Execute()
}
