/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: formatter.go
Description: Console log formatter for the modernizer. Colours levels, tags pipeline
stages and prints structured fields in a stable order.
*/

package logging

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CustomFormatter renders one compact line per entry
type CustomFormatter struct {
	Timestamp bool
	Caller    bool
	Colors    bool
	Stages    bool // Prefix entries with the pipeline stage they come from
}

// Format implements logrus.Formatter
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var output strings.Builder

	if f.Timestamp {
		output.WriteString(f.paint(36, entry.Time.Format("2006-01-02 15:04:05.000")))
		output.WriteString(" ")
	}

	output.WriteString(f.paint(levelColor(entry.Level), strings.ToUpper(entry.Level.String())))
	output.WriteString(" ")

	if f.Stages {
		if stage := stagePrefix(entry.Message); stage != "" {
			output.WriteString(f.paint(35, "["+stage+"]"))
			output.WriteString(" ")
		}
	}

	if f.Caller && entry.HasCaller() {
		output.WriteString(f.paint(33, fmt.Sprintf("[%s:%d]", entry.Caller.File, entry.Caller.Line)))
		output.WriteString(" ")
	}

	output.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		output.WriteString(" ")
		output.WriteString(f.formatFields(entry.Data))
	}

	output.WriteString("\n")
	return []byte(output.String()), nil
}

func (f *CustomFormatter) paint(color int, s string) string {
	if !f.Colors {
		return s
	}
	return fmt.Sprintf("\033[%dm%s\033[0m", color, s)
}

// levelColor returns the ANSI colour code for a level
func levelColor(level logrus.Level) int {
	switch level {
	case logrus.InfoLevel:
		return 32 // Green
	case logrus.WarnLevel:
		return 33 // Yellow
	case logrus.ErrorLevel:
		return 31 // Red
	case logrus.FatalLevel, logrus.PanicLevel:
		return 35 // Magenta
	default:
		return 37 // White
	}
}

// stagePrefix maps pipeline messages to a short stage tag
func stagePrefix(message string) string {
	switch {
	case strings.HasPrefix(message, "Format detected"), strings.HasPrefix(message, "Detection"):
		return "DETECT"
	case strings.HasPrefix(message, "Input parsed"), strings.HasPrefix(message, "Parse"):
		return "PARSE"
	case strings.HasPrefix(message, "Entity"), strings.HasPrefix(message, "Entities"):
		return "SCHEMA"
	case strings.HasPrefix(message, "Service boundaries"), strings.HasPrefix(message, "Split"):
		return "SEGMENT"
	case strings.HasPrefix(message, "Overlay"):
		return "OVERLAY"
	case strings.Contains(message, "warning"):
		return "WARN"
	case strings.HasPrefix(message, "Batch"), strings.HasPrefix(message, "Worker"):
		return "BATCH"
	default:
		return ""
	}
}

// formatFields prints fields sorted by key so lines diff cleanly between runs
func (f *CustomFormatter) formatFields(fields logrus.Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = f.paint(34, k) + "=" + f.paint(32, formatValue(fields[k]))
	}
	return strings.Join(parts, " ")
}

// formatValue shortens long values
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case time.Duration:
		return v.String()
	case time.Time:
		return v.Format("15:04:05.000")
	case float64:
		return fmt.Sprintf("%.2f", v)
	case string:
		if len(v) > 50 {
			return v[:50] + "..."
		}
		return v
	case []byte:
		if len(v) > 20 {
			return fmt.Sprintf("[%d bytes]", len(v))
		}
		return fmt.Sprintf("%x", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
