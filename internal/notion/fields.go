package notion

import (
	"fmt"
	"sort"
)

// Field is a logical destination property
type Field int

// Activity table
const (
	FieldName Field = iota
	FieldActivityID
	FieldDate
	FieldSport
	FieldDurationMin
	FieldDistanceMi
	FieldElevationFt
	FieldStravaURL
	FieldLastSynced
	FieldAvgHR
	FieldMaxHR
	FieldAvgPace
	FieldMovingTimeMin
	FieldHRZone1
	FieldHRZone2
	FieldHRZone3
	FieldHRZone4
	FieldHRZone5
	FieldHRDrift
	FieldHR1stHalf
	FieldHR2ndHalf
	FieldSpeed1stHalf
	FieldSpeed2ndHalf
	FieldDriftEligible
	FieldHRDataQuality
	FieldTemperature
	FieldWeatherConditions
	FieldSyncStatus
	FieldPhotoURL
	FieldLoadPoints

	// Daily summary table
	FieldDailyDate
	FieldTotalDuration
	FieldTotalMovingTime
	FieldTotalDistance
	FieldTotalElevation
	FieldSessionCount
	FieldDailyLoad
	FieldLoadConfidence

	// Athlete metrics table
	FieldAthleteName
	FieldUpdatedAt
	FieldLoad7d
	FieldLoad28d
	FieldLoadBalance
)

// maxZoneField is the highest zone with a dedicated property
const maxZoneField = 5

var fieldNames = map[Field]string{
	FieldName:              "Name",
	FieldActivityID:        "Activity ID",
	FieldDate:              "Date",
	FieldSport:             "Sport",
	FieldDurationMin:       "Duration (min)",
	FieldDistanceMi:        "Distance (mi)",
	FieldElevationFt:       "Elevation (ft)",
	FieldStravaURL:         "Strava URL",
	FieldLastSynced:        "Last Synced",
	FieldAvgHR:             "Avg HR",
	FieldMaxHR:             "Max HR",
	FieldAvgPace:           "Avg Pace (min/mi)",
	FieldMovingTimeMin:     "Moving Time (min)",
	FieldHRZone1:           "HR Zone 1 (min)",
	FieldHRZone2:           "HR Zone 2 (min)",
	FieldHRZone3:           "HR Zone 3 (min)",
	FieldHRZone4:           "HR Zone 4 (min)",
	FieldHRZone5:           "HR Zone 5 (min)",
	FieldHRDrift:           "HR Drift (%)",
	FieldHR1stHalf:         "HR 1st Half (bpm)",
	FieldHR2ndHalf:         "HR 2nd Half (bpm)",
	FieldSpeed1stHalf:      "Speed 1st Half (mph)",
	FieldSpeed2ndHalf:      "Speed 2nd Half (mph)",
	FieldDriftEligible:     "Drift Eligible",
	FieldHRDataQuality:     "HR Data Quality",
	FieldTemperature:       "Temperature (°F)",
	FieldWeatherConditions: "Weather Conditions",
	FieldSyncStatus:        "Sync Status",
	FieldPhotoURL:          "Photo URL",
	FieldLoadPoints:        "Load (pts)",

	FieldDailyDate:       "Date",
	FieldTotalDuration:   "Total Duration (min)",
	FieldTotalMovingTime: "Total Moving Time (min)",
	FieldTotalDistance:   "Total Distance (mi)",
	FieldTotalElevation:  "Total Elevation (ft)",
	FieldSessionCount:    "Session Count",
	FieldDailyLoad:       "Load (pts)",
	FieldLoadConfidence:  "Load Confidence",

	FieldAthleteName: "Name",
	FieldUpdatedAt:   "Updated At",
	FieldLoad7d:      "Load 7d",
	FieldLoad28d:     "Load 28d",
	FieldLoadBalance: "Load Balance",
}

// Name returns the Notion display name of f
func (f Field) Name() string {
	if n, ok := fieldNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

func (f Field) String() string { return f.Name() }

// ZoneField returns the property for a 1-based HR zone
func ZoneField(zone int) (Field, bool) {
	if zone < 1 || zone > maxZoneField {
		return 0, false
	}
	return FieldHRZone1 + Field(zone-1), true
}

// Kind is the Notion property type of a Value
type Kind int

const (
	KindTitle Kind = iota
	KindRichText
	KindNumber
	KindSelect
	KindDate
	KindURL
	KindCheckbox
)

// Value is a typed property value. Only the member matching Kind is set.
type Value struct {
	Kind   Kind
	Text   string
	Number float64
	Bool   bool
}

func Title(s string) Value     { return Value{Kind: KindTitle, Text: s} }
func Text(s string) Value      { return Value{Kind: KindRichText, Text: s} }
func Number(n float64) Value   { return Value{Kind: KindNumber, Number: n} }
func Select(name string) Value { return Value{Kind: KindSelect, Text: name} }
func Date(iso string) Value    { return Value{Kind: KindDate, Text: iso} }
func URL(u string) Value       { return Value{Kind: KindURL, Text: u} }
func Checkbox(b bool) Value    { return Value{Kind: KindCheckbox, Bool: b} }

// payload renders the value in Notion's property JSON shape
func (v Value) payload() map[string]any {
	switch v.Kind {
	case KindTitle:
		return map[string]any{"title": textContent(v.Text)}
	case KindRichText:
		return map[string]any{"rich_text": textContent(v.Text)}
	case KindNumber:
		return map[string]any{"number": v.Number}
	case KindSelect:
		return map[string]any{"select": map[string]string{"name": v.Text}}
	case KindDate:
		return map[string]any{"date": map[string]string{"start": v.Text}}
	case KindURL:
		return map[string]any{"url": v.Text}
	case KindCheckbox:
		return map[string]any{"checkbox": v.Bool}
	}
	return nil
}

func textContent(s string) []map[string]any {
	return []map[string]any{{"text": map[string]string{"content": s}}}
}

// Properties are the values of one page keyed by logical field
type Properties map[Field]Value

// Payload renders the properties the schema allows, keyed by display
// name. Dropped holds the sorted display names the schema filtered out.
func (p Properties) Payload(schema Schema) (payload map[string]any, dropped []string) {
	payload = make(map[string]any, len(p))
	for f, v := range p {
		name := f.Name()
		if !schema.Allows(name) {
			dropped = append(dropped, name)
			continue
		}
		payload[name] = v.payload()
	}
	sort.Strings(dropped)
	return payload, dropped
}
