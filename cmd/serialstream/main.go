package main

import "github.com/allbin/serialstream/cmd"

func main() {
	cmd.Execute()
}
