package main

import "github.com/sunbk201/appbundle/cmd"

func main() {
	cmd.Execute()
}
