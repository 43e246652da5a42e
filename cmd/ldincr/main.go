package main

import "github.com/blacktop/ld-incr/cmd/ldincr/cmd"

func main() {
	cmd.Execute()
}
