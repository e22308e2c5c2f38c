package model

// MultilingualText carries the same text in every supported language.
// The game ships English and Hebrew; additional languages extend the struct.
type MultilingualText struct {
	EN string `json:"en"`
	HE string `json:"he"`
}

// IsZero reports whether no language has text.
func (t MultilingualText) IsZero() bool {
	return t.EN == "" && t.HE == ""
}
