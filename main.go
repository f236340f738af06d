package main

import "github.com/warenvoyage/apiserver/cmd"

func main() {
	cmd.Execute()
}
