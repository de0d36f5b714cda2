package main

import (
	"merge-service/app"
	"merge-service/pkg/observability"
)

func main() {
	observability.StartProfiling("merge-service")
	app.Run()
}
