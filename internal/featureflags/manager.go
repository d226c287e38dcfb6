// Package featureflags evaluates the FEATURE_FLAGS setting.
package featureflags

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Flags known to the front end.
const (
	SessionRehydrate = "session_rehydrate"
	Ads              = "ads"
	AISuggestions    = "ai_suggestions"
)

// rule is one parsed flag. percent is 100 for on, 0 for off or anything
// unparseable, and the rollout share otherwise.
type rule struct {
	raw     string
	percent int
}

func parseRule(value string) rule {
	r := rule{raw: value}
	switch value {
	case "on", "true", "1":
		r.percent = 100
	case "off", "false", "0":
	default:
		if pct, ok := strings.CutSuffix(value, "%"); ok {
			if n, err := strconv.Atoi(pct); err == nil {
				r.percent = min(max(n, 0), 100)
			}
		}
	}
	return r
}

func (r rule) enabledFor(name string, userID uint) bool {
	switch {
	case r.percent >= 100:
		return true
	case r.percent <= 0, userID == 0:
		return false
	}
	return bucket(name, userID) < r.percent
}

// Flag is the state of one flag for one user, as shown on the admin dashboard.
type Flag struct {
	Name    string
	Value   string
	Enabled bool
}

// Manager holds the flags parsed from a comma-separated key=value list,
// e.g. "session_rehydrate=on,ads=25%,ai_suggestions=off". Values are on/off
// (also true/false, 1/0) or a percentage rolled out deterministically per
// signed-in user. Unknown flags are off.
type Manager struct {
	rules map[string]rule
}

// NewManager parses raw. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	rules := make(map[string]rule)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		rules[key] = parseRule(value)
	}
	return &Manager{rules: rules}
}

// Enabled reports whether name is on for userID. Anonymous visitors (userID
// 0) only see flags that are fully on.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	name = normalize(name)
	r, ok := m.rules[name]
	return ok && r.enabledFor(name, userID)
}

// Flags lists every configured flag, sorted by name, as it applies to userID.
func (m *Manager) Flags(userID uint) []Flag {
	if m == nil {
		return nil
	}
	out := make([]Flag, 0, len(m.rules))
	for name, r := range m.rules {
		out = append(out, Flag{Name: name, Value: r.raw, Enabled: r.enabledFor(name, userID)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
