package main

import "extension-mirror/internal/cli"

func main() {
	cli.Execute()
}
