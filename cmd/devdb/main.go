package main

import (
	"context"
	"os"

	"devdb/pkg/app"
)

func main() {
	os.Exit(app.Execute(context.Background(), os.Args[1:]))
}
