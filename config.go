package binlog

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	envVerifyChecksum     = "BINLOG_VERIFY_CHECKSUM"
	envLenientColumnCount = "BINLOG_LENIENT_COLUMN_COUNT"
)

// Options configures a Decoder. The zero value is ready to use.
type Options struct {
	// VerifyChecksum checks the CRC32 trailer of every event when the
	// format description event announces CRC32 checksums.
	VerifyChecksum bool

	// LenientColumnCount accepts rows events that carry fewer columns than
	// their table map. Rows events with more columns are always malformed.
	LenientColumnCount bool

	// Logger defaults to the logrus standard logger.
	Logger *logrus.Entry

	// Metrics, if not nil, counts decoded events, rows and errors.
	Metrics *Metrics

	// OnTableMap is called with every table map before it is registered.
	// An error fails the decoding of the event.
	OnTableMap func(*TableMapEvent) error
}

// OptionsFromEnv returns Options with the switches set from the
// environment variables BINLOG_VERIFY_CHECKSUM and
// BINLOG_LENIENT_COLUMN_COUNT.
func OptionsFromEnv() Options {
	return Options{
		VerifyChecksum:     envBool(envVerifyChecksum),
		LenientColumnCount: envBool(envLenientColumnCount),
	}
}

func envBool(name string) bool {
	switch strings.ToLower(os.Getenv(name)) {
	case "y", "t", "1", "on", "yes", "true":
		return true
	}
	return false
}
