package main

import "github.com/hand/redislock/cmd"

func main() {
	cmd.Execute()
}
