package main

import "github.com/luki/twatch/cmd"

func main() {
	cmd.Execute()
}
