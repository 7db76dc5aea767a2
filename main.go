package main

import "github.com/gezinff87-dev/papagaio/cmd"

func main() {
	cmd.Execute()
}
