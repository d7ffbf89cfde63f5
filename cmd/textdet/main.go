package main

import "github.com/MeKo-Tech/textdet/cmd/textdet/cmd"

func main() {
	cmd.Execute()
}
