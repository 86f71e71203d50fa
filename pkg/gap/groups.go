package gap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mchmarny/semscore/pkg/domain"
)

// LoadTestGroups reads test groups from a TSV file.
func LoadTestGroups(path string) ([]domain.TestGroup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open test groups %s: %w", path, err)
	}
	defer f.Close()

	groups, err := ParseTestGroups(f)
	if err != nil {
		return nil, fmt.Errorf("load test groups %s: %w", path, err)
	}
	return groups, nil
}

// ParseTestGroups reads one group per line:
// domain1 \t domain2 \t countGood \t countAlien \t word_1 .. word_k
// The first countGood words are fitting, the trailing countAlien are alien.
func ParseTestGroups(r io.Reader) ([]domain.TestGroup, error) {
	var groups []domain.TestGroup
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		g, err := parseTestGroup(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		groups = append(groups, g)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read test groups: %w", err)
	}
	return groups, nil
}

func parseTestGroup(text string) (domain.TestGroup, error) {
	fields := strings.Split(text, "\t")
	if len(fields) < 4 {
		return domain.TestGroup{}, fmt.Errorf("want at least 4 fields, got %d", len(fields))
	}
	good, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil || good < 0 {
		return domain.TestGroup{}, fmt.Errorf("invalid fitting count %q", fields[2])
	}
	alien, err := strconv.Atoi(strings.TrimSpace(fields[3]))
	if err != nil || alien < 0 {
		return domain.TestGroup{}, fmt.Errorf("invalid alien count %q", fields[3])
	}
	words := fields[4:]
	if len(words) != good+alien {
		return domain.TestGroup{}, fmt.Errorf("declared %d+%d words, found %d", good, alien, len(words))
	}
	return domain.TestGroup{
		Domain1: fields[0],
		Domain2: fields[1],
		Fitting: append([]string{}, words[:good]...),
		Alien:   append([]string{}, words[good:]...),
	}, nil
}

// WriteTestGroups writes groups in the format read by ParseTestGroups.
func WriteTestGroups(w io.Writer, groups []domain.TestGroup) error {
	bw := bufio.NewWriter(w)
	for i, g := range groups {
		fields := make([]string, 0, 4+len(g.Fitting)+len(g.Alien))
		fields = append(fields,
			g.Domain1,
			g.Domain2,
			strconv.Itoa(len(g.Fitting)),
			strconv.Itoa(len(g.Alien)),
		)
		fields = append(fields, g.Words()...)
		for _, f := range fields {
			if strings.ContainsAny(f, "\t\n") {
				return fmt.Errorf("group %d: field %q contains a tab or newline", i, f)
			}
		}
		if _, err := bw.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			return fmt.Errorf("write group %d: %w", i, err)
		}
	}
	return bw.Flush()
}
