package logtail

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var all []string
		for scanner.Scan() {
			all = append(all, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, errors.Errorf("read log: %w", err)
		}
		return all, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one parsed log line.
type Entry struct {
	Time    time.Time
	Level   zerolog.Level
	Message string
	Error   string
	Fields  map[string]any
	Raw     string
}

// Parse decodes one JSON log line as written by the logging package. Lines
// that are not JSON come back with Level NoLevel and the text as Message.
func Parse(line string) Entry {
	entry := Entry{Raw: line, Level: zerolog.NoLevel}
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		entry.Message = trimmed
		return entry
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		entry.Message = trimmed
		return entry
	}

	if v, ok := fields[zerolog.TimestampFieldName].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			entry.Time = ts
		}
		delete(fields, zerolog.TimestampFieldName)
	}
	if v, ok := fields[zerolog.LevelFieldName].(string); ok {
		if lvl, err := zerolog.ParseLevel(v); err == nil {
			entry.Level = lvl
		}
		delete(fields, zerolog.LevelFieldName)
	}
	if v, ok := fields[zerolog.MessageFieldName].(string); ok {
		entry.Message = v
		delete(fields, zerolog.MessageFieldName)
	}
	if v, ok := fields[zerolog.ErrorFieldName].(string); ok {
		entry.Error = v
		delete(fields, zerolog.ErrorFieldName)
	}
	if len(fields) > 0 {
		entry.Fields = fields
	}
	return entry
}

// ReadEntries reads and parses the last maxLines of the log at path,
// keeping entries at or above min.
func ReadEntries(path string, maxLines int, min zerolog.Level) ([]Entry, error) {
	lines, err := Read(path, maxLines)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e := Parse(line)
		if e.Level != zerolog.NoLevel && e.Level < min {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

var levelColors = map[zerolog.Level]*color.Color{
	zerolog.TraceLevel: color.New(color.FgHiBlack),
	zerolog.DebugLevel: color.New(color.FgCyan),
	zerolog.InfoLevel:  color.New(color.FgGreen),
	zerolog.WarnLevel:  color.New(color.FgYellow, color.Bold),
	zerolog.ErrorLevel: color.New(color.FgRed, color.Bold),
	zerolog.FatalLevel: color.New(color.FgRed, color.Bold),
	zerolog.PanicLevel: color.New(color.FgRed, color.Bold),
}

var (
	dimColor   = color.New(color.FgHiBlack)
	fieldColor = color.New(color.FgBlue)
	errColor   = color.New(color.FgRed)
)

// Format renders an entry as one line:
//
//	15:04:05 WRN message key=value error="..."
//
// Colors follow fatih/color's global NoColor switch.
func Format(e Entry) string {
	if e.Level == zerolog.NoLevel && e.Time.IsZero() && e.Fields == nil {
		return e.Message
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(dimColor.Sprint(e.Time.Local().Format("15:04:05")))
		b.WriteByte(' ')
	}
	lvl := strings.ToUpper(levelAbbrev(e.Level))
	if c, ok := levelColors[e.Level]; ok {
		lvl = c.Sprint(lvl)
	}
	b.WriteString(lvl)
	b.WriteByte(' ')
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(fieldColor.Sprint(k + "="))
		b.WriteString(fmt.Sprint(e.Fields[k]))
	}
	if e.Error != "" {
		b.WriteByte(' ')
		b.WriteString(errColor.Sprintf("error=%q", e.Error))
	}
	return b.String()
}

func levelAbbrev(l zerolog.Level) string {
	switch l {
	case zerolog.TraceLevel:
		return "trc"
	case zerolog.DebugLevel:
		return "dbg"
	case zerolog.InfoLevel:
		return "inf"
	case zerolog.WarnLevel:
		return "wrn"
	case zerolog.ErrorLevel:
		return "err"
	case zerolog.FatalLevel:
		return "ftl"
	case zerolog.PanicLevel:
		return "pnc"
	default:
		return "???"
	}
}
