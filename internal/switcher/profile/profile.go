package profile

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hugolld/cc-api-switcher/internal/switcher/domain"
)

// Env keys a profile must carry to be switchable.
const (
	EnvBaseURL   = "ANTHROPIC_BASE_URL"
	EnvAuthToken = "ANTHROPIC_AUTH_TOKEN"
	EnvModel     = "ANTHROPIC_MODEL"
	EnvTimeoutMS = "API_TIMEOUT_MS"
)

// Profile is one named settings profile. Name is display-only and never
// serialized; unknown top-level keys round-trip unchanged through extra.
type Profile struct {
	Name                  string
	Env                   map[string]any
	StatusLine            map[string]any
	EnabledPlugins        map[string]bool
	AlwaysThinkingEnabled bool

	extra map[string]json.RawMessage
}

// New creates an empty profile with the given name.
func New(name string) *Profile {
	return &Profile{Name: name, Env: map[string]any{}}
}

// Parse decodes a profile JSON document. Validation issues do not fail
// parsing; only malformed JSON does.
func Parse(data []byte, name string) (*Profile, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidProfile, err)
	}

	p := New(name)
	for key, value := range raw {
		var err error
		switch key {
		case "env":
			err = json.Unmarshal(value, &p.Env)
		case "statusLine":
			err = json.Unmarshal(value, &p.StatusLine)
		case "enabledPlugins":
			err = json.Unmarshal(value, &p.EnabledPlugins)
		case "alwaysThinkingEnabled":
			err = json.Unmarshal(value, &p.AlwaysThinkingEnabled)
		case "name":
			// Stray name fields from hand-edited files are dropped; the
			// profile name comes from the filename or the caller.
		default:
			if p.extra == nil {
				p.extra = map[string]json.RawMessage{}
			}
			p.extra[key] = value
		}
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", domain.ErrInvalidProfile, key, err)
		}
	}
	if p.Env == nil {
		p.Env = map[string]any{}
	}
	return p, nil
}

// Serialize renders the profile as the target file format: 2-space indented
// JSON without the name field.
func (p *Profile) Serialize() ([]byte, error) {
	doc := map[string]any{
		"env": p.Env,
	}
	if p.StatusLine != nil {
		doc["statusLine"] = p.StatusLine
	}
	if p.EnabledPlugins != nil {
		doc["enabledPlugins"] = p.EnabledPlugins
	}
	if p.AlwaysThinkingEnabled {
		doc["alwaysThinkingEnabled"] = true
	}
	for key, value := range p.extra {
		doc[key] = value
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return data, nil
}

// EnvString returns the env value for key rendered as a string. Numeric
// values (JSON numbers decode as float64) are formatted without an exponent.
func (p *Profile) EnvString(key string) (string, bool) {
	value, ok := p.Env[key]
	if !ok {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v)), true
		}
		return fmt.Sprintf("%v", v), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// Validate returns the list of issues preventing a switch. Empty means valid.
func (p *Profile) Validate() []string {
	var issues []string

	if _, ok := p.Env[EnvBaseURL]; !ok {
		issues = append(issues, "Missing ANTHROPIC_BASE_URL in env")
	} else {
		baseURL, _ := p.EnvString(EnvBaseURL)
		if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
			issues = append(issues, "Invalid ANTHROPIC_BASE_URL format (must start with http:// or https://)")
		}
	}

	if _, ok := p.Env[EnvAuthToken]; !ok {
		issues = append(issues, "Missing ANTHROPIC_AUTH_TOKEN in env")
	}

	return issues
}

// providerTable maps lowercase substrings to display labels, checked in
// order. Classification is cosmetic and never gates validation.
var providerTable = []struct {
	substr string
	label  string
}{
	{"deepseek", "DeepSeek"},
	{"bigmodel", "GLM"},
	{"minimaxi", "MiniMax"},
	{"dashscope", "Qwen"},
	{"kimi", "Kimi"},
}

// nameTable is the fallback when the base URL gives no match.
var nameTable = []struct {
	substr string
	label  string
}{
	{"deepseek", "DeepSeek"},
	{"glm", "GLM"},
	{"minimax", "MiniMax"},
	{"qwen", "Qwen"},
	{"kimi", "Kimi"},
}

// Provider derives a display label from the base URL, falling back to the
// profile name, then "Unknown".
func (p *Profile) Provider() string {
	baseURL, _ := p.EnvString(EnvBaseURL)
	baseURL = strings.ToLower(baseURL)
	for _, entry := range providerTable {
		if strings.Contains(baseURL, entry.substr) {
			return entry.label
		}
	}
	name := strings.ToLower(p.Name)
	for _, entry := range nameTable {
		if strings.Contains(name, entry.substr) {
			return entry.label
		}
	}
	return "Unknown"
}

// MaskToken masks an API token for display. The result always has the same
// length as the input: tokens shorter than 8 characters become all '*',
// longer tokens keep their first and last 4 characters with the interior
// replaced one-for-one.
func MaskToken(token string) string {
	n := len(token)
	if n == 0 {
		return ""
	}
	if n < 8 {
		return strings.Repeat("*", n)
	}
	return token[:4] + strings.Repeat("*", n-8) + token[n-4:]
}

// NameFromFilename derives a profile name from its file path: the base name
// without extension, with the _settings suffix removed and underscores
// replaced by dashes.
func NameFromFilename(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.ReplaceAll(stem, "_settings", "")
	return strings.ReplaceAll(stem, "_", "-")
}
