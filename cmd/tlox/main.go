package main

import "github.com/ffcd00/tlox/pkg/cli"

func main() {
	cli.Run()
}
