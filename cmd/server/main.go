package main // Entry point package

import "github.com/iliyamo/event-hub/cmd/server/cmd"

func main() {
	cmd.Execute()
}
