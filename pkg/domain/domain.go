// Package domain defines the curated semantic domains the scorers evaluate
// against, and the sampling of fitting/alien test groups from them.
package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mchmarny/semscore/pkg/vocab"
)

// Domain is a named list of member words.
type Domain struct {
	Name  string   `json:"name" yaml:"name"`
	Words []string `json:"words" yaml:"words"`
}

// Parent returns the numeric parent-category prefix of the domain name, e.g.
// 12 for "12 Supernatural Beings" or "(12) Supernatural Beings".
func (d Domain) Parent() (int, bool) {
	name := strings.TrimPrefix(strings.TrimSpace(d.Name), "(")
	end := 0
	for end < len(name) && name[end] >= '0' && name[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	p, err := strconv.Atoi(name[:end])
	if err != nil {
		return 0, false
	}
	return p, true
}

// Contains reports whether word is a member, ignoring case.
func (d Domain) Contains(word string) bool {
	c := vocab.Canonical(word)
	for _, w := range d.Words {
		if vocab.Canonical(w) == c {
			return true
		}
	}
	return false
}

// Set is an ordered collection of domains. Order is significant: it fixes the
// order of comparison vectors and which domain wins when a word is listed
// under more than one.
type Set []Domain

// Names returns the domain names in set order.
func (s Set) Names() []string {
	out := make([]string, len(s))
	for i, d := range s {
		out[i] = d.Name
	}
	return out
}

// Get returns the domain with the given name.
func (s Set) Get(name string) (Domain, bool) {
	for _, d := range s {
		if d.Name == name {
			return d, true
		}
	}
	return Domain{}, false
}

// Validate checks that names are present and unique and that no domain is empty.
func (s Set) Validate() error {
	if len(s) == 0 {
		return errors.New("no domains defined")
	}
	seen := make(map[string]struct{}, len(s))
	for i, d := range s {
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("domain at position %d has no name", i)
		}
		if _, ok := seen[d.Name]; ok {
			return fmt.Errorf("duplicate domain: %s", d.Name)
		}
		seen[d.Name] = struct{}{}
		if len(d.Words) == 0 {
			return fmt.Errorf("domain %s has no words", d.Name)
		}
	}
	return nil
}

// WordCount returns the total number of member entries across domains.
func (s Set) WordCount() int {
	n := 0
	for _, d := range s {
		n += len(d.Words)
	}
	return n
}
