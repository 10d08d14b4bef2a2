package fx

import (
	"go.uber.org/fx"

	httpFX "github.com/sp3dr4/tern/internal/fx/http"
)

// HTTPServerModules combines all modules needed for HTTP server entrypoint
var HTTPServerModules = fx.Options(
	CoreModules,
	httpFX.HTTPModule,
	httpFX.HTTPLifecycleModule,
)

// NewHTTPServerApp builds the HTTP server application
func NewHTTPServerApp(opts ...fx.Option) *fx.App {
	return fx.New(append([]fx.Option{HTTPServerModules}, opts...)...)
}
