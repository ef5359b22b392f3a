package model

// Language is a supported language as exposed by GET /languages.
type Language struct {
	ID       int      `json:"id"`       // preferred Judge0 language id
	Name     string   `json:"name"`     // canonical display/storage name
	Aliases  []string `json:"aliases"`  // accepted spellings
	Variants []int    `json:"variants"` // other Judge0 ids resolving to this language
}
