package domain

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads domain definitions from a YAML mapping (name -> words) or
// from a tab-separated file with one domain per line.
func LoadFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open domains %s: %w", path, err)
	}
	defer f.Close()

	var s Set
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		s, err = LoadYAML(f)
	default:
		s, err = LoadTSV(f)
	}
	if err != nil {
		return nil, fmt.Errorf("load domains %s: %w", path, err)
	}
	return s, nil
}

// LoadTSV reads lines of the form "name \t word \t word ...".
func LoadTSV(r io.Reader) (Set, error) {
	var s Set
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts := strings.Split(text, "\t")
		words := make([]string, 0, len(parts)-1)
		for _, p := range parts[1:] {
			if p = strings.TrimSpace(p); p != "" {
				words = append(words, p)
			}
		}
		if len(words) == 0 {
			return nil, fmt.Errorf("line %d: domain %q has no words", line, parts[0])
		}
		s = append(s, Domain{Name: strings.TrimSpace(parts[0]), Words: words})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read domains: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadYAML reads a mapping of domain name to word list, preserving the
// document order of the keys.
func LoadYAML(r io.Reader) (Set, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty domains document")
		}
		return nil, fmt.Errorf("decode domains: %w", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("domains document must be a mapping of name to words")
	}

	root := doc.Content[0]
	s := make(Set, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		var words []string
		if err := root.Content[i+1].Decode(&words); err != nil {
			return nil, fmt.Errorf("domain %s: %w", root.Content[i].Value, err)
		}
		s = append(s, Domain{Name: root.Content[i].Value, Words: words})
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadDir reads one domain per *.txt file in dir; the file name is the domain
// name and the content is whitespace separated words. Domains are ordered by
// file name.
func LoadDir(dir string) (Set, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("list domain files in %s: %w", dir, err)
	}
	sort.Strings(files)

	s := make(Set, 0, len(files))
	for _, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read domain file %s: %w", file, err)
		}
		s = append(s, Domain{Name: filepath.Base(file), Words: strings.Fields(string(b))})
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("domains in %s: %w", dir, err)
	}
	return s, nil
}

// Load dispatches to LoadDir for directories and LoadFile otherwise.
func Load(path string) (Set, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat domains %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}
