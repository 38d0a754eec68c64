package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"

	"github.com/zhu-jl18/vidrename-go/internal/errors"
)

// maxRecordSize bounds a single journal line. Records are small; the
// headroom covers long paths and error strings.
const maxRecordSize = 1 << 20

// ReadFile parses a journal into records, in file order. Lines that do
// not parse are logged and skipped rather than failing the read: a batch
// killed mid-append leaves a truncated final line, and the rest of the
// journal is still good.
func ReadFile(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryJournal).
			Context("operation", "read-journal").
			FileContext(path, 0).
			Build()
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			getLogger().Warn("Skipping unparseable journal line",
				"path", path,
				"line", lineNo,
				"error", err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryJournal).
			Context("operation", "scan-journal").
			Context("line", lineNo).
			FileContext(path, 0).
			Build()
	}

	return records, nil
}
