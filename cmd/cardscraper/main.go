package main

import (
	"cardscraper/cmd/cardscraper/cmd"
	"cardscraper/lib/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext()
	cmd.Execute(ctx)
}
