package main

import "github.com/vietddude/tema/internal/cli"

func main() {
	cli.Execute()
}
