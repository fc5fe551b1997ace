package main

import "github.com/jsphweid/harmonybeat/cmd"

func main() {
	cmd.Execute()
}
