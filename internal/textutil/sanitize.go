package textutil

import "strings"

// fileNameReplacer maps characters that are unsafe in a single path segment.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName makes name safe to use as one path segment. Separators,
// colons and asterisks become dashes and the remaining unsafe characters are
// dropped. Runs of whitespace collapse to one space. It returns fallback
// when nothing is left.
func SanitizeFileName(name, fallback string) string {
	name = strings.Join(strings.Fields(fileNameReplacer.Replace(name)), " ")
	name = strings.Trim(name, ".")
	if name == "" {
		return fallback
	}
	return name
}
