package main

import "github.com/vietddude/walletnotify/internal/cli"

func main() {
	cli.Execute()
}
