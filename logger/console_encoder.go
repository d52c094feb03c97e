package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset  = "\x1b[0m"
	colorBold   = "\x1b[1m"
	colorTime   = "\x1b[38;5;107m"
	colorName   = "\x1b[38;5;208m"
	colorNumber = "\x1b[38;5;108m"
	colorWarn   = "\x1b[48;5;58m\x1b[38;5;179m"
	colorError  = "\x1b[48;5;52m\x1b[38;5;167m"
)

var bufferPool = buffer.NewPool()

// consoleEncoder writes one calm line per entry:
// "13:04:35  pipeline  window computed  #12 (19 nodes, 31 edges)"
type consoleEncoder struct {
	zapcore.Encoder // base encoder for With() field accumulation
}

func newConsoleEncoder() *consoleEncoder {
	return &consoleEncoder{
		Encoder: zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
	}
}

func (enc *consoleEncoder) Clone() zapcore.Encoder {
	return &consoleEncoder{Encoder: enc.Encoder.Clone()}
}

func (enc *consoleEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := bufferPool.Get()

	final.AppendString(colorTime)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	if lvl := levelString(ent.Level); lvl != "" {
		final.AppendString("  ")
		final.AppendString(lvl)
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(colorName)
		final.AppendString(ent.LoggerName)
		final.AppendString(colorReset)
	}

	final.AppendString("  ")
	final.AppendString(ent.Message)

	if summary := summarizeFields(fields); summary != "" {
		final.AppendString("  ")
		final.AppendString(summary)
	}

	final.AppendString("\n")
	return final, nil
}

func levelString(level zapcore.Level) string {
	switch level {
	case zapcore.InfoLevel:
		return ""
	case zapcore.DebugLevel:
		return "DEBUG"
	case zapcore.WarnLevel:
		return colorBold + colorWarn + "WARN" + colorReset
	default:
		return colorBold + colorError + level.CapitalString() + colorReset
	}
}

func fieldValue(field zapcore.Field) string {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", field.Integer)
	case zapcore.BoolType:
		if field.Integer == 1 {
			return "true"
		}
		return "false"
	case zapcore.ErrorType:
		if err, ok := field.Interface.(error); ok {
			return err.Error()
		}
	}
	if field.Interface != nil {
		return fmt.Sprintf("%v", field.Interface)
	}
	return ""
}

// summarizeFields renders window and graph-size fields compactly and the rest as key=value.
func summarizeFields(fields []zapcore.Field) string {
	var parts []string
	var nodes, edges string

	for _, field := range fields {
		val := fieldValue(field)
		if val == "" {
			continue
		}
		switch field.Key {
		case FieldWindow:
			parts = append(parts, colorNumber+"#"+val+colorReset)
		case FieldNodes:
			nodes = val
		case FieldEdges:
			edges = val
		case FieldDurationMS:
			parts = append(parts, colorNumber+val+colorReset+"ms")
		default:
			parts = append(parts, field.Key+"="+val)
		}
	}

	if nodes != "" || edges != "" {
		if nodes == "" {
			nodes = "?"
		}
		if edges == "" {
			edges = "?"
		}
		parts = append(parts, "("+colorNumber+nodes+colorReset+" nodes, "+colorNumber+edges+colorReset+" edges)")
	}

	return strings.Join(parts, " ")
}
