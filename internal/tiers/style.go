package tiers

// DefaultIcon is used for tiers the portal has no artwork for.
const DefaultIcon = "tier"

// Style is how a tier badge is drawn.
type Style struct {
	Icon   string
	Border string
}

var styles = map[string]Style{
	"free": {Icon: "free", Border: "#6b7280"},
	"std":  {Icon: "std", Border: "#3b82f6"},
	"pro":  {Icon: "pro", Border: "#f59e0b"},
}

// StyleFor returns the badge style for a tier. Unknown icons get the default.
func StyleFor(t Tier) Style {
	if s, ok := styles[t.Icon]; ok {
		return s
	}
	return Style{Icon: DefaultIcon, Border: "#9ca3af"}
}
