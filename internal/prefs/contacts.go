package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Contacts maps display names to email addresses, persisted as a JSON file.
type Contacts struct {
	path string

	mu      sync.RWMutex
	entries map[string]string
}

// LoadContacts reads the contacts book at path. A missing file is an empty book.
func LoadContacts(path string) (*Contacts, error) {
	c := &Contacts{path: path, entries: map[string]string{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse contacts %s: %w", path, err)
	}
	for name, addr := range raw {
		c.entries[norm(name)] = strings.TrimSpace(addr)
	}
	return c, nil
}

// Lookup resolves a name or address. Anything containing "@" is taken as an
// address already.
func (c *Contacts) Lookup(nameOrAddress string) (string, bool) {
	s := strings.TrimSpace(nameOrAddress)
	if strings.Contains(s, "@") {
		return s, true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	addr, ok := c.entries[norm(s)]
	return addr, ok
}

// Set adds or replaces a contact and saves the book.
func (c *Contacts) Set(name, address string) error {
	if norm(name) == "" || !strings.Contains(address, "@") {
		return fmt.Errorf("contacts: need a name and an email address")
	}
	c.mu.Lock()
	c.entries[norm(name)] = strings.TrimSpace(address)
	c.mu.Unlock()
	return c.save()
}

// Names returns the known contact names, sorted.
func (c *Contacts) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for n := range c.entries {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (c *Contacts) save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
