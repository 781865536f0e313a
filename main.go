package main

import "manhole-tracker/cmd"

func main() {
	cmd.Execute()
}
