package main

import (
	"os"

	"travel-feed-backend/cmd"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "reindex" {
		cmd.Reindex()
		return
	}
	cmd.Run()
}
