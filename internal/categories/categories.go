// Package categories loads the list of department headings that appear as
// plain lines inside the ordered-items table of grocery emails. The list
// lives in an external text file (one heading per line) so new headings can
// be added without a rebuild.
package categories

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

type List struct {
	names map[string]struct{}
}

func Load(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open categories file: %w", err)
	}
	defer f.Close()

	list := New(nil)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		list.names[name] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}
	return list, nil
}

func New(names []string) *List {
	list := &List{names: map[string]struct{}{}}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		list.names[name] = struct{}{}
	}
	return list
}

func (l *List) Contains(name string) bool {
	_, ok := l.names[name]
	return ok
}

func (l *List) Len() int {
	return len(l.names)
}
