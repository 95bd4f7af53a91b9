/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logging_test.go
Description: Tests for logger configuration, formatting and log file handling.
*/

package logging_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kleascm/as400-modernizer/pkg/core"
	"github.com/kleascm/as400-modernizer/pkg/logging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoggerCreation tests logger creation with default and file configurations
func TestLoggerCreation(t *testing.T) {
	var console bytes.Buffer
	logger, err := logging.NewLogger(nil, &console)
	require.NoError(t, err)
	require.NoError(t, logger.Close())

	dir := t.TempDir()
	logger, err = logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.LogLevelDebug,
		Format:    logging.LogFormatJSON,
		OutputDir: dir,
		MaxFiles:  5,
	}, &console)
	require.NoError(t, err)

	logger.GetLogger().Info("hello")
	require.NoError(t, logger.Close())

	files, err := filepath.Glob(filepath.Join(dir, "as400-modernizer_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

// TestConfigValidation tests rejected configurations
func TestConfigValidation(t *testing.T) {
	cases := []*logging.LoggerConfig{
		{Level: "loud", Format: logging.LogFormatText},
		{Level: logging.LogLevelInfo, Format: "xml"},
		{Level: logging.LogLevelInfo, Format: logging.LogFormatText, OutputDir: "logs", MaxFiles: 0},
	}
	for _, c := range cases {
		assert.Error(t, c.Validate())
		_, err := logging.NewLogger(c, &bytes.Buffer{})
		assert.Error(t, err)
	}
	assert.NoError(t, logging.DefaultConfig().Validate())
}

// TestCleanupKeepsNewestFiles tests pruning of old log files on close
func TestCleanupKeepsNewestFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"2020-01-01_00-00-00", "2020-01-02_00-00-00", "2020-01-03_00-00-00"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "as400-modernizer_"+name+".log"), nil, 0644))
	}

	logger, err := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.LogLevelInfo,
		Format:    logging.LogFormatText,
		OutputDir: dir,
		MaxFiles:  2,
	}, &bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, logger.Close())

	files, err := filepath.Glob(filepath.Join(dir, "as400-modernizer_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Contains(t, files[0], "2020-01-03")
	assert.NotContains(t, files[1], "2020-01-0")
}

// TestDomainLogging tests the batch event helpers
func TestDomainLogging(t *testing.T) {
	var console bytes.Buffer
	logger, err := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LogLevelDebug,
		Format: logging.LogFormatCustom,
	}, &console)
	require.NoError(t, err)
	defer logger.Close()

	logger.LogDetection("cust.dds", core.FormatDDS, 0.9, "dds")
	logger.LogParse("cust.dds", core.FormatDDS, 9, 0, 3*time.Millisecond)
	logger.LogWarnings(core.Warnings{{Code: core.WarnMalformedDeclaration, Message: "bad type code", Input: "cust.dds", Line: 4}})
	logger.LogSummary(1, 1, 1, 0, 1)

	out := console.String()
	assert.Contains(t, out, "[DETECT] Format detected")
	assert.Contains(t, out, "[PARSE] Input parsed")
	assert.Contains(t, out, "bad type code code=MALFORMED_DECLARATION input=cust.dds line=4")
	assert.Contains(t, out, "[BATCH] Batch finished")
}

// TestCustomFormatter tests colourless output with sorted fields
func TestCustomFormatter(t *testing.T) {
	f := &logging.CustomFormatter{}
	entry := &logrus.Entry{
		Level:   logrus.WarnLevel,
		Message: "Overlay unavailable",
		Data:    logrus.Fields{"zeta": 1, "alpha": strings.Repeat("x", 60), "ratio": 0.5},
	}
	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "WARNING Overlay unavailable alpha="+strings.Repeat("x", 50)+"... ratio=0.50 zeta=1\n", string(out))

	f.Stages = true
	out, err = f.Format(entry)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "WARNING [OVERLAY] "))
}
