package domain

var serviceNames = map[string]string{
	"studio-makeup":        "Studio makeup",
	"party-guest-makeup":   "Party guest makeup",
	"photoshoot-glam":      "Photoshoot glam",
	"bridesmaids-bookings": "Bridesmaids bookings",
	"prom-glam":            "Graduation & Prom Glam",
	"travel-makeup":        "Travel to client location makeup service",
	"diy-makeup-class":     "DIY one on one makeup class",
	"gele-tying":           "Gele tying",
	"bridal-civil":         "Civil wedding",
	"bridal-traditional":   "Traditional wedding",
	"bridal-white":         "White wedding",
	"bridal-combination":   "Combination of all",
}

// ServiceName returns the display name for a service slug. Unknown slugs are
// returned unchanged.
func ServiceName(slug string) string {
	if name, ok := serviceNames[slug]; ok {
		return name
	}
	return slug
}
