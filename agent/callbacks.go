package agent

// Logger receives diagnostic events from the handler: session opens and
// drops, dispatch outcomes, denied memory operations. It is optional —
// without one the agent stays completely silent, which is the right
// default inside a firmware superloop where there may be nowhere for
// text to go.
//
// Implementations are called from the same context that calls Process
// and must return quickly; a slow sink stalls the tick. On a hosted
// target the standard log package is enough:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	handler, err := agent.New(mem, cfg, agent.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug reports per-request detail: command, subfunction, response code
	Debug(msg string, keysAndValues ...interface{})

	// Info reports session-level events: discover accepted, heartbeat timeout
	Info(msg string, keysAndValues ...interface{})

	// Error reports faults the agent survived, such as a memory access
	// the target rejected
	Error(msg string, keysAndValues ...interface{})
}
