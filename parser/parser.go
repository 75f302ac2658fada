package parser

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spider7r/trading-journal-sub002/models"
)

// Field order in source files: datetime;open;high;low;close;volume.
// The separator is detected per line (";" when present, "," otherwise)
// and the datetime is interpreted as UTC.
const (
	layoutWithSeconds = "20060102 150405"
	layoutNoSeconds   = "20060102 1504"
)

// Scanner lazily reads candle records from a line-oriented source file.
// It makes a single forward pass; malformed lines are skipped silently
// and only counted. Usage mirrors bufio.Scanner:
//
//	sc := parser.NewScanner(f, "EURUSD")
//	for sc.Scan() {
//		c := sc.Candle()
//	}
//	if err := sc.Err(); err != nil { ... }
type Scanner struct {
	sc      *bufio.Scanner
	symbol  string
	current models.Candle
	skipped int
}

func NewScanner(r io.Reader, symbol string) *Scanner {
	return &Scanner{
		sc:     bufio.NewScanner(r),
		symbol: models.NormalizeSymbol(symbol),
	}
}

// Scan advances to the next valid record, skipping bad lines.
func (s *Scanner) Scan() bool {
	for s.sc.Scan() {
		line := strings.TrimSpace(s.sc.Text())
		if line == "" {
			continue
		}
		candle, ok := s.parseLine(line)
		if !ok {
			s.skipped++
			continue
		}
		s.current = candle
		return true
	}
	return false
}

// Candle returns the record produced by the last successful Scan.
func (s *Scanner) Candle() models.Candle {
	return s.current
}

// Skipped returns the number of non-empty lines dropped so far.
func (s *Scanner) Skipped() int {
	return s.skipped
}

// Err returns the first I/O error encountered by the underlying reader.
func (s *Scanner) Err() error {
	return s.sc.Err()
}

func (s *Scanner) parseLine(line string) (models.Candle, bool) {
	sep := ","
	if strings.Contains(line, ";") {
		sep = ";"
	}
	fields := strings.Split(line, sep)
	if len(fields) < 5 {
		return models.Candle{}, false
	}

	ts, ok := parseDatetime(strings.TrimSpace(fields[0]))
	if !ok {
		return models.Candle{}, false
	}

	var prices [4]float64
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
		if err != nil {
			return models.Candle{}, false
		}
		prices[i] = v
	}

	// Volume is optional and tolerant: missing or unparseable means 0.
	var volume float64
	if len(fields) > 5 {
		if v, err := strconv.ParseFloat(strings.TrimSpace(fields[5]), 64); err == nil {
			volume = v
		}
	}

	return models.Candle{
		Symbol:    s.symbol,
		Interval:  "1m",
		Timestamp: ts,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    volume,
	}, true
}

func parseDatetime(value string) (int64, bool) {
	t, err := time.ParseInLocation(layoutWithSeconds, value, time.UTC)
	if err != nil {
		t, err = time.ParseInLocation(layoutNoSeconds, value, time.UTC)
		if err != nil {
			return 0, false
		}
	}
	return t.Unix(), true
}
