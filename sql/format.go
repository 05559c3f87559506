package sql

import (
	"strconv"
	"strings"

	"github.com/nickyhof/flintdb/core"
)

// FormatCreateTable renders a descriptor as a CREATE TABLE statement that
// ParseCreateTable reads back.
func FormatCreateTable(meta *core.Meta) string {
	var sb strings.Builder

	sb.WriteString("CREATE TABLE ")
	sb.WriteString(meta.Name)
	sb.WriteString(" (\n")

	parts := make([]string, 0, len(meta.Columns)+len(meta.Indexes))
	for _, col := range meta.Columns {
		parts = append(parts, "  "+formatColumn(col))
	}
	for _, idx := range meta.Indexes {
		keys := strings.Join(idx.Keys, ", ")
		if idx.Type == core.PrimaryIndex || strings.EqualFold(idx.Name, core.PrimaryIndex) {
			parts = append(parts, "  PRIMARY KEY ("+keys+")")
		} else {
			parts = append(parts, "  KEY "+idx.Name+" ("+keys+")")
		}
	}
	sb.WriteString(strings.Join(parts, ",\n"))
	sb.WriteString("\n)")

	if options := formatOptions(meta); len(options) > 0 {
		sb.WriteString(" ")
		sb.WriteString(strings.Join(options, ", "))
	}

	return sb.String()
}

func formatColumn(col core.Column) string {
	var sb strings.Builder
	sb.WriteString(col.Name)
	sb.WriteString(" ")
	sb.WriteString(col.Type.String())
	if col.Type.HasLength() && col.Bytes > 0 {
		sb.WriteString("(")
		sb.WriteString(strconv.Itoa(col.Bytes))
		if col.Type == core.Decimal && col.Precision > 0 {
			sb.WriteString(",")
			sb.WriteString(strconv.Itoa(col.Precision))
		}
		sb.WriteString(")")
	}
	if col.NullSpec == core.NotNull {
		sb.WriteString(" NOT NULL")
	}
	if col.Default != "" {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(Quote(col.Default))
	}
	if col.Comment != "" {
		sb.WriteString(" COMMENT ")
		sb.WriteString(Quote(col.Comment))
	}
	return sb.String()
}

func formatOptions(meta *core.Meta) []string {
	var options []string
	if meta.Storage != "" {
		options = append(options, "STORAGE="+meta.Storage)
	}
	if meta.Compressor != "" {
		options = append(options, "COMPRESSOR="+meta.Compressor)
	}
	if meta.Cache > 0 {
		options = append(options, "CACHE="+core.FormatSize(meta.Cache))
	}
	if meta.Date != "" {
		options = append(options, "DATE="+Quote(meta.Date))
	}
	if meta.AbsentHeader {
		options = append(options, "HEADER=ABSENT")
	}
	if meta.Delimiter != 0 {
		defaultDelimiter := byte('\t')
		if meta.Format == "csv" {
			defaultDelimiter = ','
		}
		if meta.Delimiter != defaultDelimiter {
			options = append(options, "DELIMITER="+formatChar(meta.Delimiter))
		}
	}
	if meta.Quote != 0 && meta.Quote != '"' {
		options = append(options, "QUOTE="+formatChar(meta.Quote))
	}
	if meta.NilStr != "" {
		options = append(options, "NULL="+Quote(meta.NilStr))
	}
	if meta.Format != "" {
		options = append(options, "FORMAT="+meta.Format)
	}
	return options
}

func formatChar(ch byte) string {
	if ch == '\t' {
		return "TAB"
	}
	return Quote(string(ch))
}

// Quote renders s as a single-quoted literal, escaping quotes and
// backslashes with a backslash.
func Quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' || s[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('\'')
	return sb.String()
}
