package logger

import "fmt"

// Scoped prefixes every message with the configuration name it belongs to,
// so interleaved output of a multi-configuration run stays attributable.
// The zero value is unusable; construct with ForConfiguration.
type Scoped struct {
	prefix string
}

// ForConfiguration returns a Scoped logger labelled "configs/<name>".
func ForConfiguration(name string) *Scoped {
	return &Scoped{prefix: fmt.Sprintf("[configs/%s] ", name)}
}

// Op formats an operation tag like "[ sh ]" used in front of step output,
// mirroring the fixed-width operation column of the run log.
func Op(op string) string {
	return fmt.Sprintf("[ %-8s ]", op)
}

func (s *Scoped) Infof(format string, a ...any) {
	Info(s.prefix+format+"\n", a...)
}

func (s *Scoped) Warnf(format string, a ...any) {
	Warn(s.prefix+format+"\n", a...)
}

func (s *Scoped) Errorf(format string, a ...any) {
	Error(s.prefix+format+"\n", a...)
}

func (s *Scoped) Debugf(format string, a ...any) {
	Debug(s.prefix+format+"\n", a...)
}
