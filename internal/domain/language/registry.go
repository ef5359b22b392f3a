// Package language maps language names to Judge0 language ids and back. It is
// the only place alias matching happens.
package language

import (
	"strings"

	"bitscode/internal/domain/model"
)

// Unknown is the display name of an unmapped id.
const Unknown = "Unknown"

const (
	Python     = 71
	JavaScript = 63
	TypeScript = 74
	Cpp        = 54
	Java       = 62
)

var languages = []model.Language{
	{ID: Python, Name: "Python", Aliases: []string{"python", "python3", "py", "py3"}, Variants: []int{70, 92, 100}},
	{ID: JavaScript, Name: "JavaScript", Aliases: []string{"javascript", "js", "node", "nodejs"}, Variants: []int{93, 97, 102}},
	{ID: TypeScript, Name: "TypeScript", Aliases: []string{"typescript", "ts"}, Variants: []int{94, 101}},
	{ID: Cpp, Name: "C++", Aliases: []string{"c++", "cpp", "cxx", "g++", "clang++"}, Variants: []int{52, 53, 76, 105}},
	{ID: Java, Name: "Java", Aliases: []string{"java"}, Variants: []int{91}},
}

var (
	byAlias = map[string]int{}
	byID    = map[int]string{}
)

func init() {
	for _, l := range languages {
		byID[l.ID] = l.Name
		for _, v := range l.Variants {
			byID[v] = l.Name
		}
		for _, a := range l.Aliases {
			byAlias[a] = l.ID
		}
	}
}

// ResolveLanguageID returns the Judge0 id for a human readable name such as
// "Python 3", "node" or "CPP". Unrecognized or ambiguous input reports false.
func ResolveLanguageID(name string) (int, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return 0, false
	}
	if id, ok := byAlias[n]; ok {
		return id, true
	}

	// Fall back to matching the words of the name, e.g. "GNU C++ 17".
	words := strings.FieldsFunc(n, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '+' || r == '#')
	})
	found := 0
	for _, w := range words {
		id, ok := byAlias[w]
		if !ok {
			continue
		}
		if found != 0 && found != id {
			return 0, false
		}
		found = id
	}
	return found, found != 0
}

// ResolveLanguageName returns the canonical name for a Judge0 id. Version
// variants share the name of their language.
func ResolveLanguageName(id int) string {
	if name, ok := byID[id]; ok {
		return name
	}
	return Unknown
}

// IsSupported reports whether id maps to a known language.
func IsSupported(id int) bool {
	_, ok := byID[id]
	return ok
}

// Supported lists the known languages in a stable order.
func Supported() []model.Language {
	out := make([]model.Language, len(languages))
	copy(out, languages)
	return out
}
