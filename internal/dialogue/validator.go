package dialogue

import (
	"strconv"
	"strings"
)

// SkipToken is the case-insensitive literal that omits an optional field.
const SkipToken = "skip"

// IsSkipToken reports whether the input is the skip token (exact match after
// trimming, never a substring match).
func IsSkipToken(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), SkipToken)
}

// optionalFields are the only fields for which the skip token is accepted.
var optionalFields = map[string]bool{
	"mobile_2":             true,
	"anniversary_date":     true,
	"medical_conditions":   true,
	"social_media_handles": true,
	"volunteer_interests":  true,
}

// IsOptional reports whether a field may be skipped.
func IsOptional(field string) bool { return optionalFields[field] }

// rule validates raw input for one field. ok=false means value carries the
// fixed error message; ok=true means value carries the normalized input.
type rule struct {
	check  func(string) (bool, string)
	errMsg string
}

var genders = []string{"Male", "Female", "Other"}
var bloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}
var familyRoles = []string{"Head", "Spouse", "Child", "Parent", "Sibling", "Other"}
var maritalStatuses = []string{"Single", "Married", "Divorced", "Widowed"}
var relationshipStatuses = []string{"Single", "Married", "Divorced", "Widowed", "Other"}

// matchEnum does a case-insensitive match and returns the canonical spelling.
func matchEnum(raw string, values []string) (bool, string) {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(raw), v) {
			return true, v
		}
	}
	return false, ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func tenDigits(raw string) (bool, string) {
	s := strings.TrimSpace(raw)
	if isDigits(s) && len(s) == 10 {
		return true, s
	}
	return false, ""
}

func dateDDMMYYYY(raw string) (bool, string) {
	s := strings.TrimSpace(raw)
	if len(strings.Split(s, "/")) == 3 {
		return true, s
	}
	return false, ""
}

func nonEmpty(raw string) (bool, string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return false, ""
	}
	return true, s
}

func minLen(n int) func(string) (bool, string) {
	return func(raw string) (bool, string) {
		s := strings.TrimSpace(raw)
		if len(s) < n {
			return false, ""
		}
		return true, s
	}
}

// orSkip wraps a check so the skip token is also accepted (normalized form is
// the token itself; the engine decides to store a skip, not the value).
func orSkip(check func(string) (bool, string)) func(string) (bool, string) {
	return func(raw string) (bool, string) {
		if IsSkipToken(raw) {
			return true, SkipToken
		}
		return check(raw)
	}
}

var rules = map[string]rule{
	"samaj": {minLen(2), "Please enter a valid Samaj name (at least 2 characters)"},
	"name":  {minLen(2), "Please enter a valid name (at least 2 characters)"},
	"family_role": {
		func(raw string) (bool, string) { return matchEnum(raw, familyRoles) },
		"Please enter Head, Spouse, Child, Parent, Sibling, or Other",
	},
	"family_head": {minLen(2), "Please enter a valid name (at least 2 characters)"},
	"gender": {
		func(raw string) (bool, string) { return matchEnum(raw, genders) },
		"Please enter Male, Female, or Other",
	},
	"age": {
		func(raw string) (bool, string) {
			s := strings.TrimSpace(raw)
			if !isDigits(s) {
				return false, ""
			}
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 || n > 120 {
				return false, ""
			}
			return true, strconv.Itoa(n)
		},
		"Please enter a valid age between 0 and 120",
	},
	"blood_group": {
		func(raw string) (bool, string) { return matchEnum(raw, bloodGroups) },
		"Please enter a valid blood group (A+, A-, B+, B-, AB+, AB-, O+, O-)",
	},
	"mobile_1": {tenDigits, "Please enter a valid 10-digit mobile number"},
	"mobile_2": {orSkip(tenDigits), "Please enter a valid 10-digit mobile number or type 'skip'"},
	"email": {
		func(raw string) (bool, string) {
			s := strings.TrimSpace(raw)
			parts := strings.Split(s, "@")
			if len(parts) != 2 || !strings.Contains(parts[1], ".") {
				return false, ""
			}
			return true, s
		},
		"Please enter a valid email address",
	},
	"birth_date":        {dateDDMMYYYY, "Please enter date in DD/MM/YYYY format"},
	"anniversary_date":  {orSkip(dateDDMMYYYY), "Please enter date in DD/MM/YYYY format or type 'skip'"},
	"emergency_contact": {tenDigits, "Please enter a valid 10-digit contact number"},
	"marital_status": {
		func(raw string) (bool, string) { return matchEnum(raw, maritalStatuses) },
		"Please enter Single, Married, Divorced, or Widowed",
	},
	"relationship_status": {
		func(raw string) (bool, string) { return matchEnum(raw, relationshipStatuses) },
		"Please enter Single, Married, Divorced, Widowed, or Other",
	},
	"medical_conditions":   {orSkip(nonEmpty), "This field cannot be empty (or type 'skip')"},
	"social_media_handles": {orSkip(nonEmpty), "This field cannot be empty (or type 'skip')"},
	"volunteer_interests":  {orSkip(nonEmpty), "This field cannot be empty (or type 'skip')"},

	"education":           {nonEmpty, "This field cannot be empty"},
	"occupation":          {nonEmpty, "This field cannot be empty"},
	"address":             {nonEmpty, "This field cannot be empty"},
	"native_place":        {nonEmpty, "This field cannot be empty"},
	"current_city":        {nonEmpty, "This field cannot be empty"},
	"languages_known":     {nonEmpty, "This field cannot be empty"},
	"skills":              {nonEmpty, "This field cannot be empty"},
	"hobbies":             {nonEmpty, "This field cannot be empty"},
	"dietary_preferences": {nonEmpty, "This field cannot be empty"},
	"profession_category": {nonEmpty, "This field cannot be empty"},
}

// Validate checks raw input against the field's rule.
// Accepted -> (true, normalized value). Rejected -> (false, fixed error
// message). Unknown field names always accept and return the raw text
// unchanged, so new schedule entries work without a validator entry (they
// only lose input checking).
func Validate(field, raw string) (bool, string) {
	r, ok := rules[field]
	if !ok {
		return true, raw
	}
	ok2, v := r.check(raw)
	if !ok2 {
		return false, r.errMsg
	}
	return true, v
}
