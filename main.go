package main

import "github.com/streambinder/spotiseek/cmd"

func main() {
	cmd.Execute()
}
