package entity

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Type classifies an entity record.
type Type string

const (
	TypePerson       Type = "Person"
	TypeOrganization Type = "Organization"
	TypeUnknown      Type = "Unknown"
)

// ParseType maps user input onto a known entity type.
func ParseType(value string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "person":
		return TypePerson, nil
	case "organization", "org":
		return TypeOrganization, nil
	case "unknown", "":
		return TypeUnknown, nil
	default:
		return "", fmt.Errorf("unknown entity type %q", value)
	}
}

// Entity is one canonical person/organization record from the archive.
// Aliases holds alternate names accumulated across merges; it is stored as a
// JSON array in the entities table.
type Entity struct {
	ID       int64
	FullName string
	Type     Type
	Mentions int64
	Aliases  []string
}

// AliasSet merges the entity's aliases with additional names, deduplicating
// and dropping empties and the entity's own full name. The result is sorted
// for stable storage.
func (e *Entity) AliasSet(extra ...string) []string {
	seen := make(map[string]struct{}, len(e.Aliases)+len(extra))
	var out []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || name == e.FullName {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, name := range e.Aliases {
		add(name)
	}
	for _, name := range extra {
		add(name)
	}
	sort.Strings(out)
	return out
}

// EncodeAliases serializes an alias list for the entities.aliases column.
func EncodeAliases(aliases []string) (string, error) {
	if len(aliases) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(aliases)
	if err != nil {
		return "", fmt.Errorf("marshal aliases: %w", err)
	}
	return string(data), nil
}

// DecodeAliases parses the entities.aliases column.
func DecodeAliases(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" || raw == "null" {
		return nil
	}
	var aliases []string
	if err := json.Unmarshal([]byte(raw), &aliases); err != nil {
		// Legacy rows stored a single alias as plain text.
		return []string{raw}
	}
	return aliases
}

// Stats aggregates archive-wide entity counts for diagnostics.
type Stats struct {
	ByType        map[Type]int64
	TotalEntities int64
	TotalMentions int64
	PersonRows    int64
}
