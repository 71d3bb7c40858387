package main

import "relaybot/internal/cli"

func main() {
	cli.Execute()
}
