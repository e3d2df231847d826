package service

import (
	"strings"

	"github.com/skillsight-analytics/skillsight-saas/platform/go/provider"
)

// MatchType labels how well a template fits a tenant's configured providers.
// Surfaced to operators for filtering and sorting.
type MatchType string

const (
	MatchTypeExact     MatchType = "exact_match"
	MatchTypeCore      MatchType = "core_match"
	MatchTypePartial   MatchType = "partial_match"
	MatchTypeLMSOnly   MatchType = "lms_only"
	MatchTypeUniversal MatchType = "universal"
	MatchTypeNone      MatchType = "no_match"
)

// Scoring weights. Universal templates get a fixed floor so they are always
// eligible but rank below any genuine match.
const (
	universalScore     = 25
	lmsWeight          = 40
	englishMathsWeight = 25
	crmWeight          = 25
	hrBonus            = 10
)

// slotMatch captures the per-slot comparison between a template's parsed codes
// and the tenant's configured codes. Scoring and classification both read the
// same booleans.
type slotMatch struct {
	lmsPresent, lmsOK bool
	emPresent, emOK   bool
	crmPresent, crmOK bool
	hrPresent, hrOK   bool
}

func compareSlots(template provider.Codes, tenant provider.Codes) slotMatch {
	return slotMatch{
		lmsPresent: template.LMS != nil,
		lmsOK:      codesEqual(template.LMS, tenant.LMS),
		emPresent:  template.EnglishMaths != nil,
		emOK:       codesEqual(template.EnglishMaths, tenant.EnglishMaths),
		crmPresent: template.CRM != nil,
		crmOK:      codesEqual(template.CRM, tenant.CRM),
		hrPresent:  template.HR != nil,
		hrOK:       codesEqual(template.HR, tenant.HR),
	}
}

func codesEqual(template, tenant *string) bool {
	if template == nil || tenant == nil {
		return false
	}
	return strings.EqualFold(*template, *tenant)
}

// eligible reports whether every required slot present on the template (LMS,
// English/Maths, CRM) matches the tenant. HR never disqualifies.
func (m slotMatch) eligible() bool {
	if m.lmsPresent && !m.lmsOK {
		return false
	}
	if m.emPresent && !m.emOK {
		return false
	}
	if m.crmPresent && !m.crmOK {
		return false
	}
	return true
}

// Score computes the numeric fitness of a parsed template for a tenant. A
// template with no codes at all scores the universal floor; an ineligible
// template scores 0 and is excluded from candidate lists. The HR bonus only
// tops up an existing required-slot match, which leaves a template carrying
// nothing but an HR code at 0 and therefore unreachable. That gap is inherited
// from the original scoring rules and kept pending product clarification.
func Score(template provider.Codes, tenant provider.Codes) int {
	if template.IsEmpty() {
		return universalScore
	}

	m := compareSlots(template, tenant)
	if !m.eligible() {
		return 0
	}

	score := 0
	if m.lmsPresent && m.lmsOK {
		score += lmsWeight
	}
	if m.emPresent && m.emOK {
		score += englishMathsWeight
	}
	if m.crmPresent && m.crmOK {
		score += crmWeight
	}
	if score == 0 {
		return 0
	}
	if m.hrPresent && m.hrOK {
		score += hrBonus
	}
	return score
}

// Classify maps the same slot comparisons to a discrete match category. The
// decision tree is independent of the numeric score; eligible combinations not
// named by the tree (e.g. an English/Maths-only template) fall through to
// no_match even though they score above zero.
func Classify(template provider.Codes, tenant provider.Codes) MatchType {
	if template.IsEmpty() {
		return MatchTypeUniversal
	}

	m := compareSlots(template, tenant)
	switch {
	case !m.eligible():
		return MatchTypeNone
	case m.lmsOK && m.emOK && m.crmOK && m.hrPresent && m.hrOK:
		return MatchTypeExact
	case m.lmsOK && m.emOK && m.crmOK && !m.hrPresent:
		return MatchTypeCore
	case m.lmsOK && m.emOK && !m.crmPresent:
		return MatchTypePartial
	case m.lmsPresent && m.lmsOK && !m.emPresent && !m.crmPresent && !m.hrPresent:
		return MatchTypeLMSOnly
	default:
		return MatchTypeNone
	}
}
