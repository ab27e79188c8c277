package main

import "github.com/cinelist/cineapi/cmd"

func main() {
	cmd.Execute()
}
