package main

import "github.com/itish2003/semsearch/cli"

func main() {
	cli.Execute()
}
