package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/pterm/pterm"

	"go-jiractl/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		if ctx.Err() != nil {
			pterm.Println()
			pterm.Println(pterm.Gray("Interrupted."))
			os.Exit(1)
		}
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
}
