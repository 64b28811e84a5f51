package main

import "kennel-portal/cmd"

func main() {
	cmd.Execute()
}
