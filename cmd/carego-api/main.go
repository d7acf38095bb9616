package main

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

func main() {
	app := mustBootstrapCareGoAPI()
	defer app.Close()

	if err := app.Run(); err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Fatal("carego-api stopped", zap.Error(err))
	}
}
