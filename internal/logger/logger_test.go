package logger_test

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"luabundle/internal/logger"
)

func TestPrintIncludesFileAndLine(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	logger.Print(&buf, logger.Msg{Kind: logger.Error, File: "main.lua", Line: 4, Text: "could not resolve import"})
	require.Contains(t, buf.String(), "main.lua:4: could not resolve import")
	require.Contains(t, buf.String(), "error:")
}

func TestPrintWithoutLineOmitsColon(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	logger.Print(&buf, logger.Msg{Kind: logger.Warning, File: "lib.lua", Text: "unused import"})
	require.Contains(t, buf.String(), "warning:")
	require.Contains(t, buf.String(), "lib.lua: unused import")
}
