package sourcefile

import "strings"

type column struct {
	name     string
	variants []string
}

// canonicalColumns lists the recognized contact columns in display order.
// Variants are lowercase, more specific first.
var canonicalColumns = []column{
	{"First Name", []string{"first name", "firstname", "first_name", "given name", "contact first name", "fname", "first"}},
	{"Last Name", []string{"last name", "lastname", "last_name", "family name", "surname", "contact last name", "lname", "last"}},
	{"Company", []string{"company", "company name", "companyname", "organization", "org", "account name", "accountname", "employer", "business", "account"}},
	{"Position", []string{"position", "job title", "jobtitle", "title", "role", "job role", "job_position", "occupation"}},
	{"URL", []string{"url", "linkedin url", "profile url", "website", "linkedin", "profile"}},
	{"Email", []string{"email", "email address", "e-mail", "work email"}},
	{"Industry", []string{"industry", "sector"}},
	{"Location", []string{"location", "city", "region", "country"}},
	{"Connected On", []string{"connected on", "connectedon", "date connected", "connection date"}},
}

var fullNameHeaders = map[string]bool{
	"full name":    true,
	"name":         true,
	"contact name": true,
	"fullname":     true,
	"display name": true,
}

var flattener = strings.NewReplacer(" ", "", "-", "", "_", "")

func flatten(s string) string {
	return flattener.Replace(strings.ToLower(strings.TrimSpace(s)))
}

func exactMatch(cell, variant string) bool {
	n := strings.ToLower(strings.TrimSpace(cell))
	return n == variant || flatten(cell) == flatten(variant)
}

func looseMatch(cell, variant string) bool {
	n := strings.ToLower(strings.TrimSpace(cell))
	if len(variant) < 4 || len(n) < 3 {
		return false
	}
	return strings.Contains(n, variant) || strings.Contains(variant, n)
}

// headerScore counts the distinct canonical columns a row appears to name.
func headerScore(cells []string) int {
	seen := make(map[string]bool)
	for _, cell := range cells {
		if strings.TrimSpace(cell) == "" {
			continue
		}
		for _, col := range canonicalColumns {
			if seen[col.name] {
				continue
			}
			for _, v := range col.variants {
				if exactMatch(cell, v) || looseMatch(cell, v) {
					seen[col.name] = true
					break
				}
			}
		}
	}
	return len(seen)
}

// mapColumns assigns each header cell at most one canonical column and each
// canonical column at most one cell. Exact matches are assigned before loose
// ones so a loose match cannot take an exact match's slot.
func mapColumns(cells []string) map[int]string {
	used := make(map[string]bool)
	mapping := make(map[int]string)

	assign := func(match func(cell, variant string) bool) {
		for i, cell := range cells {
			if _, done := mapping[i]; done || strings.TrimSpace(cell) == "" {
				continue
			}
		columns:
			for _, col := range canonicalColumns {
				if used[col.name] {
					continue
				}
				for _, v := range col.variants {
					if match(cell, v) {
						mapping[i] = col.name
						used[col.name] = true
						break columns
					}
				}
			}
		}
	}

	assign(exactMatch)
	assign(looseMatch)
	return mapping
}
