package main

import "github.com/MeKo-Tech/visionbridge/cmd/visionbridge/cmd"

func main() {
	cmd.Execute()
}
