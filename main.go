package main

import "alaidocs/cmd"

func main() {
	cmd.Execute()
}
