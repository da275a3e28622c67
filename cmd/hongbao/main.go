package main

import "github.com/hongbaolabs/hongbao/internal/cli"

func main() {
	cli.Execute()
}
