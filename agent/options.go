package agent

// Option is a functional option for configuring a MainHandler beyond the
// wire-visible Config.
type Option func(*MainHandler)

// WithLogger attaches a logger to the handler.
//
// Example:
//
//	handler, err := agent.New(mem, cfg, agent.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(h *MainHandler) {
		h.logger = logger
	}
}
