package main

import (
	"context"
	"portalharvest/cmd/portalharvest/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
