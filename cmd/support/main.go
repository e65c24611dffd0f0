package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/chiplogic/internal/support"
)

func main() {
	os.Exit(support.Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
