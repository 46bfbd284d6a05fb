package main

import "github.com/clipchain/clipchain/internal/cli"

func main() {
	cli.Main()
}
