package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/birbparty/birb-pay/cmd/birbpay/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.NewBirbpayCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
