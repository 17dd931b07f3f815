// Package timezone resolves UTC offsets to Windows timezone standard names.
//
// The Microsoft Graph calendar API expects Windows-style timezone names
// (e.g. "Pacific Standard Time") in event payloads and in the
// `Prefer: outlook.timezone` request header, while the Inferno event API
// reports only an ISO-8601 start time with a UTC offset. This package maps
// between the two by scanning a registry of Windows zones, evaluating each
// zone's offset at the given instant.
package timezone

import (
	"errors"
	"strings"
	"sync"
	"time"

	"inferno.jolokia.com/common"
)

// DefaultName is the fallback zone used when no registry entry matches the
// offset of a timestamp.
const DefaultName = "Pacific Standard Time"

// ErrNoMatch is returned when no known zone observes the given offset at
// the given instant.
var ErrNoMatch = errors.New("no timezone matches the given offset")

// windowsZone pairs a Windows standard name with a representative IANA
// location used to evaluate its offset at a point in time.
type windowsZone struct {
	Name        string
	DisplayName string
	Location    string
}

// registry is a subset of the CLDR windowsZones mapping, ordered by base
// offset. Enumeration order matters: among equal-offset matches without a
// "US" display name, the first entry wins.
var registry = []windowsZone{
	{"Dateline Standard Time", "(UTC-12:00) International Date Line West", "Etc/GMT+12"},
	{"UTC-11", "(UTC-11:00) Coordinated Universal Time-11", "Pacific/Pago_Pago"},
	{"Hawaiian Standard Time", "(UTC-10:00) Hawaii", "Pacific/Honolulu"},
	{"Alaskan Standard Time", "(UTC-09:00) Alaska", "America/Anchorage"},
	{"Pacific Standard Time", "(UTC-08:00) Pacific Time (US & Canada)", "America/Los_Angeles"},
	{"US Mountain Standard Time", "(UTC-07:00) Arizona", "America/Phoenix"},
	{"Mountain Standard Time", "(UTC-07:00) Mountain Time (US & Canada)", "America/Denver"},
	{"Central America Standard Time", "(UTC-06:00) Central America", "America/Guatemala"},
	{"Central Standard Time", "(UTC-06:00) Central Time (US & Canada)", "America/Chicago"},
	{"SA Pacific Standard Time", "(UTC-05:00) Bogota, Lima, Quito, Rio Branco", "America/Bogota"},
	{"Eastern Standard Time", "(UTC-05:00) Eastern Time (US & Canada)", "America/New_York"},
	{"Venezuela Standard Time", "(UTC-04:00) Caracas", "America/Caracas"},
	{"Atlantic Standard Time", "(UTC-04:00) Atlantic Time (Canada)", "America/Halifax"},
	{"Newfoundland Standard Time", "(UTC-03:30) Newfoundland", "America/St_Johns"},
	{"E. South America Standard Time", "(UTC-03:00) Brasilia", "America/Sao_Paulo"},
	{"Argentina Standard Time", "(UTC-03:00) City of Buenos Aires", "America/Argentina/Buenos_Aires"},
	{"Mid-Atlantic Standard Time", "(UTC-02:00) Mid-Atlantic", "Etc/GMT+2"},
	{"Azores Standard Time", "(UTC-01:00) Azores", "Atlantic/Azores"},
	{"Cabo Verde Standard Time", "(UTC-01:00) Cabo Verde Is.", "Atlantic/Cape_Verde"},
	{"UTC", "(UTC) Coordinated Universal Time", "UTC"},
	{"Greenwich Standard Time", "(UTC+00:00) Monrovia, Reykjavik", "Atlantic/Reykjavik"},
	{"GMT Standard Time", "(UTC+00:00) Dublin, Edinburgh, Lisbon, London", "Europe/London"},
	{"W. Europe Standard Time", "(UTC+01:00) Amsterdam, Berlin, Bern, Rome, Stockholm, Vienna", "Europe/Berlin"},
	{"Romance Standard Time", "(UTC+01:00) Brussels, Copenhagen, Madrid, Paris", "Europe/Paris"},
	{"GTB Standard Time", "(UTC+02:00) Athens, Bucharest", "Europe/Athens"},
	{"FLE Standard Time", "(UTC+02:00) Helsinki, Kyiv, Riga, Sofia, Tallinn, Vilnius", "Europe/Kiev"},
	{"South Africa Standard Time", "(UTC+02:00) Harare, Pretoria", "Africa/Johannesburg"},
	{"Russian Standard Time", "(UTC+03:00) Moscow, St. Petersburg", "Europe/Moscow"},
	{"Arab Standard Time", "(UTC+03:00) Kuwait, Riyadh", "Asia/Riyadh"},
	{"Iran Standard Time", "(UTC+03:30) Tehran", "Asia/Tehran"},
	{"Arabian Standard Time", "(UTC+04:00) Abu Dhabi, Muscat", "Asia/Dubai"},
	{"Afghanistan Standard Time", "(UTC+04:30) Kabul", "Asia/Kabul"},
	{"Pakistan Standard Time", "(UTC+05:00) Islamabad, Karachi", "Asia/Karachi"},
	{"India Standard Time", "(UTC+05:30) Chennai, Kolkata, Mumbai, New Delhi", "Asia/Kolkata"},
	{"Nepal Standard Time", "(UTC+05:45) Kathmandu", "Asia/Kathmandu"},
	{"Bangladesh Standard Time", "(UTC+06:00) Dhaka", "Asia/Dhaka"},
	{"Myanmar Standard Time", "(UTC+06:30) Yangon (Rangoon)", "Asia/Yangon"},
	{"SE Asia Standard Time", "(UTC+07:00) Bangkok, Hanoi, Jakarta", "Asia/Bangkok"},
	{"China Standard Time", "(UTC+08:00) Beijing, Chongqing, Hong Kong, Urumqi", "Asia/Shanghai"},
	{"Singapore Standard Time", "(UTC+08:00) Kuala Lumpur, Singapore", "Asia/Singapore"},
	{"Tokyo Standard Time", "(UTC+09:00) Osaka, Sapporo, Tokyo", "Asia/Tokyo"},
	{"Cen. Australia Standard Time", "(UTC+09:30) Adelaide", "Australia/Adelaide"},
	{"AUS Eastern Standard Time", "(UTC+10:00) Canberra, Melbourne, Sydney", "Australia/Sydney"},
	{"Central Pacific Standard Time", "(UTC+11:00) Solomon Is., New Caledonia", "Pacific/Guadalcanal"},
	{"New Zealand Standard Time", "(UTC+12:00) Auckland, Wellington", "Pacific/Auckland"},
	{"Tonga Standard Time", "(UTC+13:00) Nuku'alofa", "Pacific/Tongatapu"},
	{"Line Islands Standard Time", "(UTC+14:00) Kiritimati Island", "Pacific/Kiritimati"},
}

type loadedZone struct {
	windowsZone
	loc *time.Location
}

var (
	loadOnce sync.Once
	zones    []loadedZone
)

// loadZones resolves the registry's IANA locations once. Entries missing
// from the platform's zone database are skipped, which is the edge the
// caller-side fallback covers.
func loadZones() {
	for _, z := range registry {
		loc, err := time.LoadLocation(z.Location)
		if err != nil {
			common.Logger.WithField("location", z.Location).
				Debug("timezone location not available, skipping")
			continue
		}
		zones = append(zones, loadedZone{windowsZone: z, loc: loc})
	}
}

// StandardName returns the Windows standard name of a zone whose offset,
// evaluated at the given instant, equals the timestamp's own UTC offset.
// Among matches a zone whose display name contains "US" is preferred,
// otherwise the first match in registry order wins. ErrNoMatch is returned
// when no zone observes the offset.
func StandardName(t time.Time) (string, error) {
	loadOnce.Do(loadZones)

	_, want := t.Zone()

	var matches []loadedZone
	for _, z := range zones {
		if _, off := t.In(z.loc).Zone(); off == want {
			matches = append(matches, z)
		}
	}

	if len(matches) == 0 {
		return "", ErrNoMatch
	}

	for _, m := range matches {
		if strings.Contains(m.DisplayName, "US") {
			return m.Name, nil
		}
	}
	return matches[0].Name, nil
}

// StandardNameOrDefault resolves the zone name and substitutes DefaultName
// when no zone matches.
func StandardNameOrDefault(t time.Time) string {
	name, err := StandardName(t)
	if err != nil {
		common.Logger.WithField("offset", t.Format("-07:00")).
			Warn("no timezone matched offset, using default")
		return DefaultName
	}
	return name
}
