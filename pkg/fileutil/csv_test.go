package fileutil_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/tirasundara/transfer-reconciler/pkg/fileutil"
)

func writeCSV(t *testing.T, rows int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("id,value\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "%d,%d\n", i, i*10)
	}

	path := filepath.Join(t.TempDir(), "rows.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

func TestCSVReader_ReadAndProcessByRow(t *testing.T) {
	reader := fileutil.NewCSVReader(writeCSV(t, 3))

	header, err := reader.ReadHeader()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(header) != 2 || header[0] != "id" {
		t.Errorf("Unexpected header %v", header)
	}

	var lines []int
	err = reader.ReadAndProcessByRow(func(line int, row []string) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(lines) != 3 || lines[0] != 2 || lines[2] != 4 {
		t.Errorf("Expected data rows on lines 2-4, got %v", lines)
	}
}

func TestParseOrdered_KeepsFileOrder(t *testing.T) {
	reader := fileutil.NewCSVReader(writeCSV(t, 1037))

	ids, err := fileutil.ParseOrdered(reader, 4, 50, func(line int, row []string) (int, bool, error) {
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return 0, false, err
		}
		if line != id+2 {
			return 0, false, fmt.Errorf("row %d reported on line %d", id, line)
		}
		// Drop every tenth row
		return id, id%10 != 0, nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(ids) != 1037-104 {
		t.Fatalf("Expected %d rows, got %d", 1037-104, len(ids))
	}

	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("Expected ascending ids, got %d after %d", ids[i], ids[i-1])
		}
	}
}

func TestParseOrdered_ReturnsFirstError(t *testing.T) {
	reader := fileutil.NewCSVReader(writeCSV(t, 200))

	_, err := fileutil.ParseOrdered(reader, 3, 10, func(line int, row []string) (string, bool, error) {
		if line == 57 || line == 150 {
			return "", false, fmt.Errorf("bad line %d", line)
		}
		return row[0], true, nil
	})

	if err == nil || err.Error() != "bad line 57" {
		t.Errorf("Expected the first error in file order, got %v", err)
	}
}
