package main

import "projup/cmd"

func main() {
	cmd.Execute()
}
