package enums

// GiftWrapStyle selects the wrapping surcharge applied at checkout. The empty
// style means no wrapping.
type GiftWrapStyle string

const (
	GiftWrapNone     GiftWrapStyle = ""
	GiftWrapEco      GiftWrapStyle = "eco"
	GiftWrapStandard GiftWrapStyle = "standard"
	GiftWrapPremium  GiftWrapStyle = "premium"
)

var giftWrapStyles = members[GiftWrapStyle]{GiftWrapNone, GiftWrapEco, GiftWrapStandard, GiftWrapPremium}

func (g GiftWrapStyle) IsValid() bool { return giftWrapStyles.has(g) }

// ParseGiftWrapStyle also accepts "none".
func ParseGiftWrapStyle(value string) (GiftWrapStyle, error) {
	return giftWrapStyles.parse("gift wrap style", value, func(s string) string {
		if s = lowerTrim(s); s == "none" {
			return ""
		}
		return s
	})
}
