package weather

import "sort"

// Icon is a reference to a local illustrative asset.
type Icon string

const (
	IconClear   Icon = "clear.png"
	IconCloud   Icon = "cloud.png"
	IconDrizzle Icon = "drizzle.png"
	IconRain    Icon = "rain.png"
	IconSnow    Icon = "snow.png"

	// IconDefault is used for codes the map does not know.
	IconDefault = IconClear
)

// iconMap is keyed by provider icon code. It is never written after init.
var iconMap = map[string]Icon{
	"01d": IconClear,
	"01n": IconClear,
	"02d": IconCloud,
	"02n": IconCloud,
	"03d": IconCloud,
	"04d": IconCloud,
	"04n": IconDrizzle,
	"09d": IconDrizzle,
	"09n": IconRain,
	"10d": IconRain,
	"10n": IconRain,
	"13d": IconSnow,
	"13n": IconSnow,
}

// LookupIcon returns the asset for code and whether the code is mapped.
// Unmapped codes yield IconDefault and false.
func LookupIcon(code string) (Icon, bool) {
	icon, ok := iconMap[code]
	if !ok {
		return IconDefault, false
	}
	return icon, true
}

// ResolveIcon returns the asset for code, falling back to IconDefault.
func ResolveIcon(code string) Icon {
	icon, _ := LookupIcon(code)
	return icon
}

// IconCodes returns the mapped provider codes in sorted order.
func IconCodes() []string {
	codes := make([]string, 0, len(iconMap))
	for code := range iconMap {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
