package main

import "gdsync/cmd"

func main() {
	cmd.Execute()
}
