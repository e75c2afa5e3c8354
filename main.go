package main

import "github.com/billm/framehub/cmd"

func main() {
	cmd.Execute()
}
