package fileutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"
)

// CSVReader provides a helper/utility to read CSV file(s)
type CSVReader struct {
	FilePath string
	Comma    rune
}

// NewCSVReader returns a CSVReader instance for a specified CSV file
func NewCSVReader(fp string) *CSVReader {
	return &CSVReader{
		FilePath: fp,
		Comma:    ',',
	}
}

func (r *CSVReader) open() (*os.File, *csv.Reader, error) {
	f, err := os.Open(r.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening a csv file: %w", err)
	}

	reader := csv.NewReader(f)
	if r.Comma != 0 {
		reader.Comma = r.Comma
	}
	reader.FieldsPerRecord = -1 // Short rows are reported by the row processor, not the reader

	return f, reader, nil
}

// ReadHeader reads ONLY the header of the specified CSV file
func (r *CSVReader) ReadHeader() ([]string, error) {
	f, reader, err := r.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	return header, nil
}

// ReadAndProcessByRow streams a CSV file row by row, skipping the header.
// line is the 1-based line number of the row, the header being line 1.
func (r *CSVReader) ReadAndProcessByRow(processorFn func(line int, row []string) error) error {
	f, reader, err := r.open()
	if err != nil {
		return err
	}
	defer f.Close()

	// Skip header
	if _, err = reader.Read(); err != nil {
		return fmt.Errorf("reading CSV header: %w", err)
	}

	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break // end of file, stop
		}
		if err != nil {
			return fmt.Errorf("reading CSV row %d: %w", line, err)
		}

		if err = processorFn(line, row); err != nil {
			return err
		}
	}

	return nil
}

type rowBatch struct {
	seq       int
	firstLine int
	rows      [][]string
}

type parsedBatch[T any] struct {
	seq   int
	items []T
	err   error
}

// ParseOrdered parses the rows of a CSV file on a pool of workers and returns the
// parsed items in file order. parse may drop a row by returning keep=false.
// The first parse error in file order is returned.
func ParseOrdered[T any](r *CSVReader, numWorkers, batchSize int, parse func(line int, row []string) (item T, keep bool, err error)) ([]T, error) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if batchSize < 1 {
		batchSize = 1
	}

	f, reader, err := r.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err = reader.Read(); err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	jobs := make(chan rowBatch, numWorkers)
	results := make(chan parsedBatch[T], numWorkers)
	readErr := make(chan error, 1)

	// Start the worker pool
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				results <- parseBatch(batch, parse)
			}
		}()
	}

	// Close results once every worker is done
	go func() {
		wg.Wait()
		close(results)
	}()

	// Read and distribute batches of rows to workers
	go func() {
		defer close(jobs)
		readErr <- distributeRows(reader, jobs, batchSize)
	}()

	// Collect batches and restore file order
	batches := make(map[int]parsedBatch[T])
	for batch := range results {
		batches[batch.seq] = batch
	}

	if err := <-readErr; err != nil {
		return nil, err
	}

	var items []T
	for seq := 0; seq < len(batches); seq++ {
		batch := batches[seq]
		if batch.err != nil {
			return nil, batch.err
		}
		items = append(items, batch.items...)
	}

	return items, nil
}

func distributeRows(reader *csv.Reader, jobs chan<- rowBatch, batchSize int) error {
	batch := rowBatch{firstLine: 2, rows: make([][]string, 0, batchSize)}
	seq := 0

	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading CSV row %d: %w", line, err)
		}

		batch.rows = append(batch.rows, row)

		// When batch is full, send it to a worker
		if len(batch.rows) >= batchSize {
			batch.seq = seq
			jobs <- batch
			seq++
			batch = rowBatch{firstLine: line + 1, rows: make([][]string, 0, batchSize)}
		}
	}

	// Send any remaining rows in the last batch
	if len(batch.rows) > 0 {
		batch.seq = seq
		jobs <- batch
	}

	return nil
}

func parseBatch[T any](batch rowBatch, parse func(int, []string) (T, bool, error)) parsedBatch[T] {
	out := parsedBatch[T]{seq: batch.seq, items: make([]T, 0, len(batch.rows))}

	for i, row := range batch.rows {
		item, keep, err := parse(batch.firstLine+i, row)
		if err != nil {
			out.err = err
			return out
		}
		if keep {
			out.items = append(out.items, item)
		}
	}

	return out
}
