package main

import (
	"log"

	"github.com/ysy950803/tgflow/cmd/tgflow"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	tgflow.Execute()
}
