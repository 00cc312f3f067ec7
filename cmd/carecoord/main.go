package main

import (
	"go.uber.org/fx"

	"github.com/carecoord/carecoord/internal/bootstrap"
	pkg "github.com/carecoord/carecoord/pkg/routes"
)

func main() {
	bootstrap.Loadenv()
	app := fx.New(
		pkg.EchoModules,
	)
	app.Run()
}
