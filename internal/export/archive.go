package export

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tftrivals/internal/riot"

	json "github.com/goccy/go-json"
)

// DefaultMatchesPerFile is when the archive rotates to a new file
const DefaultMatchesPerFile = 1000

// Archive appends raw match records to rotating JSONL files.
// Files are written in hot/, moved to warm/ once closed, and can be
// compressed into cold/.
type Archive struct {
	mu sync.Mutex

	hotDir  string
	warmDir string
	coldDir string

	maxPerFile int
	seq        int

	currentFile   *os.File
	currentWriter *bufio.Writer
	currentPath   string
	matchCount    int
}

// NewArchive creates the directory layout under baseDir and opens the first file
func NewArchive(baseDir string, maxPerFile int) (*Archive, error) {
	if maxPerFile <= 0 {
		maxPerFile = DefaultMatchesPerFile
	}

	a := &Archive{
		hotDir:     filepath.Join(baseDir, "hot"),
		warmDir:    filepath.Join(baseDir, "warm"),
		coldDir:    filepath.Join(baseDir, "cold"),
		maxPerFile: maxPerFile,
	}

	for _, dir := range []string{a.hotDir, a.warmDir, a.coldDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := a.rotate(); err != nil {
		return nil, err
	}
	return a, nil
}

// ObserveMatch writes one match as a JSON line and rotates when the file is full
func (a *Archive) ObserveMatch(match *riot.MatchResponse) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.currentFile == nil {
		return fmt.Errorf("archive is closed")
	}

	data, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("failed to marshal match: %w", err)
	}
	if _, err := a.currentWriter.Write(data); err != nil {
		return fmt.Errorf("failed to write match: %w", err)
	}
	if err := a.currentWriter.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := a.currentWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	a.matchCount++
	if a.matchCount >= a.maxPerFile {
		return a.rotate()
	}
	return nil
}

// rotate closes the current file into warm/ and opens a new one in hot/
func (a *Archive) rotate() error {
	if err := a.closeCurrent(); err != nil {
		return err
	}

	a.seq++
	filename := fmt.Sprintf("raw_matches_%s_%03d.jsonl", time.Now().Format("2006-01-02_15-04-05"), a.seq)
	a.currentPath = filepath.Join(a.hotDir, filename)

	file, err := os.Create(a.currentPath)
	if err != nil {
		return fmt.Errorf("failed to create new file: %w", err)
	}

	a.currentFile = file
	a.currentWriter = bufio.NewWriterSize(file, 64*1024)
	a.matchCount = 0
	return nil
}

// closeCurrent moves a non-empty current file to warm/ and deletes an empty one
func (a *Archive) closeCurrent() error {
	if a.currentFile == nil {
		return nil
	}

	if err := a.currentWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush before rotation: %w", err)
	}
	if err := a.currentFile.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	a.currentFile = nil

	if a.matchCount == 0 {
		os.Remove(a.currentPath)
		return nil
	}

	warmPath := filepath.Join(a.warmDir, filepath.Base(a.currentPath))
	if err := os.Rename(a.currentPath, warmPath); err != nil {
		return fmt.Errorf("failed to move to warm storage: %w", err)
	}
	log.Printf("[Archive] Moved %s to warm storage (%d matches)", filepath.Base(a.currentPath), a.matchCount)
	return nil
}

// Close flushes and closes the current file
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeCurrent()
}

// Stats returns current archive statistics
func (a *Archive) Stats() (matchesInCurrentFile int, currentFileName string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.matchCount, filepath.Base(a.currentPath)
}

// CompressWarm gzips every warm file into cold/ and returns how many it moved
func (a *Archive) CompressWarm() (int, error) {
	paths, err := filepath.Glob(filepath.Join(a.warmDir, "*.jsonl"))
	if err != nil {
		return 0, err
	}

	for i, p := range paths {
		if err := CompressToCold(p, a.coldDir); err != nil {
			return i, err
		}
	}
	return len(paths), nil
}

// CompressToCold compresses a warm file and moves it to cold storage
func CompressToCold(warmPath, coldDir string) error {
	src, err := os.Open(warmPath)
	if err != nil {
		return err
	}
	defer src.Close()

	coldPath := filepath.Join(coldDir, filepath.Base(warmPath)+".gz")
	dst, err := os.Create(coldPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	gzWriter := gzip.NewWriter(dst)
	if _, err := io.Copy(gzWriter, src); err != nil {
		return err
	}
	if err := gzWriter.Close(); err != nil {
		return err
	}

	// Windows refuses to remove an open file
	src.Close()
	if err := os.Remove(warmPath); err != nil {
		return err
	}

	log.Printf("[Archive] Compressed %s to cold storage", filepath.Base(warmPath))
	return nil
}
