package logger

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// contactKeys are field names whose string values identify a client or a
// payee. They are masked before any encoder sees them.
var contactKeys = map[string]struct{}{
	"whatsapp":  {},
	"phone":     {},
	"email":     {},
	"upi_vpa":   {},
	"payee_vpa": {},
	"gstin":     {},
}

// NewRedactingCore wraps core so contact fields are masked.
func NewRedactingCore(core zapcore.Core) zapcore.Core {
	return &redactingCore{Core: core}
}

type redactingCore struct {
	zapcore.Core
}

func (c *redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactingCore{Core: c.Core.With(redactFields(fields))}
}

func (c *redactingCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *redactingCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(entry, redactFields(fields))
}

func redactFields(fields []zapcore.Field) []zapcore.Field {
	var out []zapcore.Field
	for i, f := range fields {
		if _, ok := contactKeys[f.Key]; !ok || f.Type != zapcore.StringType {
			continue
		}
		if out == nil {
			out = make([]zapcore.Field, len(fields))
			copy(out, fields)
		}
		out[i].String = Mask(f.String)
	}
	if out == nil {
		return fields
	}
	return out
}

// Mask keeps the last four characters of a phone number and the domain of an
// email or UPI ID.
func Mask(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if at := strings.LastIndex(value, "@"); at > 0 {
		return "***" + value[at:]
	}
	if len(value) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
