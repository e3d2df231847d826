package provider

import (
	"strconv"
	"strings"
)

// Known capability-code vocabularies. These are closed lists: the catalog naming
// convention only recognises codes present here, anything else is ignored.
var (
	lmsCodes          = codeSet("APTEM", "BUD", "ONEFILE")
	englishMathsCodes = codeSet("BKSB", "FUNC", "SMARTASSESSOR")
	crmCodes          = codeSet("HUBSPOT", "SF", "DYNAMICS", "ZOHO")
	hrCodes           = codeSet("SAGEHR", "BAMBOOHR")
)

func codeSet(codes ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

// Codes holds the capability code configured per integration slot. A nil slot
// means the tenant (or template) has no integration of that kind.
type Codes struct {
	LMS          *string
	EnglishMaths *string
	CRM          *string
	HR           *string
}

// IsEmpty reports whether no slot is set.
func (c Codes) IsEmpty() bool {
	return c.LMS == nil && c.EnglishMaths == nil && c.CRM == nil && c.HR == nil
}

// Version is the major.minor suffix carried by catalog template names.
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string {
	return "v" + strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
}

// ParsedTemplate is the decomposed view of a catalog item's display name. It is
// always recomputed from the name, never stored.
type ParsedTemplate struct {
	Codes    Codes
	RoleName *string
	Version  *Version
}

// segmentSeparator splits the code segment from the human-readable remainder.
const segmentSeparator = " - "

// ParseTemplateName decomposes a catalog display name of the form
// "<CODE1>-...-<CODEn> - <RoleName> v<major>.<minor>". Both the code segment and
// the version suffix are optional. A name without the separator is a universal
// template and parses to the zero ParsedTemplate. The function is total: any
// input, including the empty string, yields a result.
func ParseTemplateName(name string) ParsedTemplate {
	sep := strings.Index(name, segmentSeparator)
	if sep < 0 {
		return ParsedTemplate{}
	}

	parsed := ParsedTemplate{Codes: parseCodeSegment(name[:sep])}

	remainder := strings.TrimSpace(name[sep+len(segmentSeparator):])
	if remainder == "" {
		return parsed
	}

	if idx := strings.LastIndexByte(remainder, ' '); idx >= 0 {
		if version, ok := parseVersionToken(remainder[idx+1:]); ok {
			parsed.Version = &version
			remainder = strings.TrimSpace(remainder[:idx])
		}
	} else if version, ok := parseVersionToken(remainder); ok {
		parsed.Version = &version
		remainder = ""
	}

	if remainder != "" {
		parsed.RoleName = &remainder
	}

	return parsed
}

// parseCodeSegment classifies each dash-separated piece against the known
// vocabularies. Unrecognised pieces are dropped silently; the first hit per
// slot wins.
func parseCodeSegment(segment string) Codes {
	var codes Codes
	for _, piece := range strings.Split(segment, "-") {
		code := strings.ToUpper(strings.TrimSpace(piece))
		if code == "" {
			continue
		}
		switch {
		case isKnown(lmsCodes, code):
			if codes.LMS == nil {
				codes.LMS = &code
			}
		case isKnown(englishMathsCodes, code):
			if codes.EnglishMaths == nil {
				codes.EnglishMaths = &code
			}
		case isKnown(crmCodes, code):
			if codes.CRM == nil {
				codes.CRM = &code
			}
		case isKnown(hrCodes, code):
			if codes.HR == nil {
				codes.HR = &code
			}
		}
	}
	return codes
}

// parseVersionToken accepts "1.2" or "v1.2".
func parseVersionToken(token string) (Version, bool) {
	token = strings.TrimPrefix(strings.TrimPrefix(token, "v"), "V")
	major, minor, ok := strings.Cut(token, ".")
	if !ok || !isDigits(major) || !isDigits(minor) {
		return Version{}, false
	}
	majorN, err := strconv.Atoi(major)
	if err != nil {
		return Version{}, false
	}
	minorN, err := strconv.Atoi(minor)
	if err != nil {
		return Version{}, false
	}
	return Version{Major: majorN, Minor: minorN}, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isKnown(set map[string]struct{}, code string) bool {
	_, ok := set[code]
	return ok
}

// BuildCodeString renders configured codes into the canonical code segment:
// non-nil slots joined by "-" in LMS, English/Maths, CRM, HR order. Absent
// slots are omitted entirely. Inverse of parseCodeSegment for known codes.
func BuildCodeString(codes Codes) string {
	parts := make([]string, 0, 4)
	for _, slot := range []*string{codes.LMS, codes.EnglishMaths, codes.CRM, codes.HR} {
		if slot != nil && *slot != "" {
			parts = append(parts, strings.ToUpper(*slot))
		}
	}
	return strings.Join(parts, "-")
}

// KnownLMSCode reports membership in the LMS vocabulary. The remaining
// KnownXxxCode helpers do the same for their slot; configuration validation
// uses them to reject typos before they reach the matcher.
func KnownLMSCode(code string) bool { return isKnown(lmsCodes, strings.ToUpper(code)) }

func KnownEnglishMathsCode(code string) bool {
	return isKnown(englishMathsCodes, strings.ToUpper(code))
}

func KnownCRMCode(code string) bool { return isKnown(crmCodes, strings.ToUpper(code)) }

func KnownHRCode(code string) bool { return isKnown(hrCodes, strings.ToUpper(code)) }
