package main

import "github.com/spider7r/trading-journal-sub002/cmd"

func main() {
	cmd.Execute()
}
