package main

import "github.com/mvp-joe/submodel/internal/cli"

func main() {
	cli.Execute()
}
