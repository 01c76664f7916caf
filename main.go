package main

import "github.com/markb/glogin/cmd"

func main() {
	cmd.Execute()
}
