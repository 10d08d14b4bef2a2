// Package main runs the tern URL shortener.
//
//	@title			Tern URL Shortener API
//	@version		1.0
//	@description	Deterministic short codes with a coalescing read-through cache.
//	@host			localhost:8080
//	@BasePath		/
//	@schemes		http https
package main

import (
	_ "github.com/sp3dr4/tern/docs"
	"github.com/sp3dr4/tern/internal/fx"
)

func main() {
	fx.NewHTTPServerApp().Run()
}
