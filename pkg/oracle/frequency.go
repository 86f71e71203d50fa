package oracle

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mchmarny/semscore/pkg/vocab"
)

// Frequencies counts corpus occurrences per canonical word.
type Frequencies map[string]int

// Occurrences returns the count for word, 0 when unseen.
func (f Frequencies) Occurrences(word string) int {
	return f[vocab.Canonical(word)]
}

// LoadFrequencies reads "word \t count" lines.
func LoadFrequencies(path string) (Frequencies, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frequencies %s: %w", path, err)
	}
	defer file.Close()

	f, err := ReadFrequencies(file)
	if err != nil {
		return nil, fmt.Errorf("load frequencies %s: %w", path, err)
	}
	return f, nil
}

// ReadFrequencies parses "word \t count" lines; repeated words are summed.
func ReadFrequencies(r io.Reader) (Frequencies, error) {
	f := make(Frequencies)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		parts := strings.Split(text, "\t")
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: want word and count", line)
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		f[vocab.Canonical(parts[0])] += n
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read frequencies: %w", err)
	}
	return f, nil
}

// CountCorpus counts whitespace separated tokens in the given text files;
// directories are walked for *.txt files.
func CountCorpus(paths ...string) (Frequencies, error) {
	f := make(Frequencies)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat corpus %s: %w", p, err)
		}
		if !info.IsDir() {
			if err := f.countFile(p); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".txt") {
				return nil
			}
			return f.countFile(path)
		})
		if err != nil {
			return nil, fmt.Errorf("walk corpus %s: %w", p, err)
		}
	}
	return f, nil
}

func (f Frequencies) countFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open corpus file %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		f[vocab.Canonical(scanner.Text())]++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read corpus file %s: %w", path, err)
	}
	return nil
}
