// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logstore

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/parley/internal/model"
)

// =============================================================================
// RECORD FORMAT
// =============================================================================
//
// A log file is a Markdown document: a file header followed by one section
// per exchange. Fields appear in a fixed order:
//
//	## 2026-10-15T12:00:00.123Z
//	**Model:** openai/gpt-4o
//	**Temperature:** 0.7
//	**Response Time:** 1.42s
//	**User:** what is a monad?
//	**Assistant:** a monoid in the category of endofunctors
//	**Error:** request timed out      (only on failed exchanges)
//
// Value lines starting with "\", "## " or "**" are escaped with a leading
// backslash, so a section header or field marker can only come from the writer.

const (
	sectionPrefix = "## "
	timeLayout    = time.RFC3339Nano

	fieldModel        = "Model"
	fieldTemperature  = "Temperature"
	fieldResponseTime = "Response Time"
	fieldUser         = "User"
	fieldAssistant    = "Assistant"
	fieldError        = "Error"

	// maxLineSize bounds a single log line when parsing.
	maxLineSize = 16 * 1024 * 1024
)

// Metadata is the per-record header data that is not part of the exchange.
type Metadata struct {
	Temperature  float64
	ResponseTime time.Duration
}

// Record is one parsed log section.
type Record struct {
	Exchange model.Exchange
	Metadata Metadata
	// Source is the file the record was read from.
	Source string
}

func writeFileHeader(w io.Writer, title string, fields [][2]string) {
	fmt.Fprintf(w, "# %s\n\n", title)
	for _, f := range fields {
		fmt.Fprintf(w, "**%s:** %s\n", f[0], f[1])
	}
	fmt.Fprintln(w)
}

func writeSection(w io.Writer, ex model.Exchange, meta Metadata) {
	fmt.Fprintf(w, "%s%s\n", sectionPrefix, ex.Timestamp.UTC().Format(timeLayout))
	writeField(w, fieldModel, ex.Model)
	writeField(w, fieldTemperature, strconv.FormatFloat(meta.Temperature, 'f', -1, 64))
	writeField(w, fieldResponseTime, fmt.Sprintf("%.2fs", meta.ResponseTime.Seconds()))
	writeField(w, fieldUser, ex.UserQuery)
	writeField(w, fieldAssistant, ex.AssistantResponse)
	if ex.ErrorNote != "" {
		writeField(w, fieldError, ex.ErrorNote)
	}
	fmt.Fprintln(w)
}

func writeField(w io.Writer, name, value string) {
	fmt.Fprintf(w, "**%s:** %s\n", name, escapeValue(value))
}

func escapeValue(v string) string {
	v = strings.TrimRight(v, "\r\n")
	lines := strings.Split(v, "\n")
	for i, line := range lines {
		if needsEscape(line) {
			lines[i] = `\` + line
		}
	}
	return strings.Join(lines, "\n")
}

func needsEscape(line string) bool {
	return strings.HasPrefix(line, `\`) ||
		strings.HasPrefix(line, sectionPrefix) ||
		strings.HasPrefix(line, "**")
}

func unescapeValue(v string) string {
	lines := strings.Split(v, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, `\`)
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// PARSING
// =============================================================================

// parseFieldLine splits "**Name:** value" into its parts.
func parseFieldLine(line string) (name, value string, ok bool) {
	if !strings.HasPrefix(line, "**") {
		return "", "", false
	}
	end := strings.Index(line[2:], ":**")
	if end < 0 {
		return "", "", false
	}
	name = line[2 : 2+end]
	rest := line[2+end+3:]
	return name, strings.TrimPrefix(rest, " "), true
}

func parseSectionHeader(line string) (time.Time, bool) {
	if !strings.HasPrefix(line, sectionPrefix) {
		return time.Time{}, false
	}
	ts, err := time.Parse(timeLayout, strings.TrimSpace(line[len(sectionPrefix):]))
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}

type sectionBuilder struct {
	ts      time.Time
	fields  map[string]*strings.Builder
	current *strings.Builder
}

func (b *sectionBuilder) record(source string) (Record, bool) {
	get := func(name string) (string, bool) {
		f, ok := b.fields[name]
		if !ok {
			return "", false
		}
		return unescapeValue(strings.TrimRight(f.String(), "\r\n")), true
	}

	user, ok := get(fieldUser)
	if !ok {
		// A section cut off before its query is an incomplete trailing write.
		return Record{}, false
	}
	rec := Record{Source: source}
	rec.Exchange.Timestamp = b.ts
	rec.Exchange.UserQuery = user
	rec.Exchange.Model, _ = get(fieldModel)
	rec.Exchange.AssistantResponse, _ = get(fieldAssistant)
	rec.Exchange.ErrorNote, _ = get(fieldError)

	if v, ok := get(fieldTemperature); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			rec.Metadata.Temperature = f
		}
	}
	if v, ok := get(fieldResponseTime); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			rec.Metadata.ResponseTime = d
		}
	}
	return rec, true
}

// ParseRecords reads every complete section from r, in file order.
// Text before the first section (the file header) is ignored, as are
// fields this version does not know.
func ParseRecords(r io.Reader, source string) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var records []Record
	var cur *sectionBuilder

	finish := func() {
		if cur == nil {
			return
		}
		if rec, ok := cur.record(source); ok {
			records = append(records, rec)
		}
		cur = nil
	}

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if ts, ok := parseSectionHeader(line); ok {
			finish()
			cur = &sectionBuilder{ts: ts, fields: make(map[string]*strings.Builder)}
			continue
		}
		if cur == nil {
			continue
		}
		if name, value, ok := parseFieldLine(line); ok {
			b := &strings.Builder{}
			b.WriteString(value)
			cur.fields[name] = b
			cur.current = b
			continue
		}
		if cur.current != nil {
			cur.current.WriteByte('\n')
			cur.current.WriteString(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("parse %s: %w", source, err)
	}
	finish()
	return records, nil
}
