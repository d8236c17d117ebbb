package main

import "keymatch/cmd"

func main() {
	cmd.Execute()
}
