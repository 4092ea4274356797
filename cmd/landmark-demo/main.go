package main

import "github.com/gophi/landmark/cmd/landmark-demo/cmd"

func main() {
	cmd.Execute()
}
