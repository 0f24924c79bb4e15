// Package callerid turns caller ids reported by Asterisk into canonical
// international numbers.
package callerid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mikey/tellows-fastagi/internal/core"
	"github.com/mikey/tellows-fastagi/internal/utils"
	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when no region is configured
const DefaultRegion = "DE"

// unavailableIDs are the values Asterisk reports when no number was presented
var unavailableIDs = []string{"", "anonymous", "unknown"}

// Normalizer parses caller ids against a fixed default region
type Normalizer struct {
	region        string
	textProcessor *utils.TextProcessor
}

// NewNormalizer creates a new normalizer for the given ISO region code
func NewNormalizer(region string, textProcessor *utils.TextProcessor) *Normalizer {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultRegion
	}
	return &Normalizer{
		region:        region,
		textProcessor: textProcessor,
	}
}

// Region returns the default region numbers are parsed against
func (n *Normalizer) Region() string {
	return n.region
}

// Normalize returns the caller id as +<country code><national number>
func (n *Normalizer) Normalize(raw string) (string, error) {
	cleaned, err := n.textProcessor.SanitizeCallerID(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrInvalidCallerID, err)
	}
	if IsUnavailable(cleaned) {
		return "", core.ErrCallerUnavailable
	}

	number, err := phonenumbers.Parse(cleaned, n.region)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", core.ErrInvalidCallerID, raw, err)
	}

	return "+" + strconv.Itoa(int(number.GetCountryCode())) +
		strconv.FormatUint(number.GetNationalNumber(), 10), nil
}

// IsUnavailable reports whether a caller id means "no number presented"
func IsUnavailable(callerID string) bool {
	callerID = strings.TrimSpace(callerID)
	for _, id := range unavailableIDs {
		if strings.EqualFold(callerID, id) {
			return true
		}
	}
	return false
}
