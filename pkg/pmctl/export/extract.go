package export

import (
	"encoding/json"
	"strconv"
)

// The backend's record shapes are not uniform across endpoints or releases,
// so every logical field is read through an ordered alias list: the first
// alias present with a usable value wins. All alias lists live here so the
// reconciliation rules are documented in one place.
var (
	playerIDAliases        = []string{"id", "player_id"}
	playerFirstNameAliases = []string{"first_name", "firstName", "fname"}
	playerLastNameAliases  = []string{"last_name", "lastName", "lname"}
	playerFullNameAliases  = []string{"name", "player_name"}
	playerBirthDateAliases = []string{"birth_date", "birthDate", "dob"}
	playerGenderAliases    = []string{"gender", "sex"}
	playerTeamsAliases     = []string{"team_players", "teams"}
	playerProgramsAliases  = []string{"program_ids", "programs"}
	playerContactsAliases  = []string{"users", "contacts", "guardians"}

	teamIDAliases   = []string{"id", "team_id"}
	teamNameAliases = []string{"name", "team_name"}
	teamRefAliases  = []string{"team_id", "teamId"}

	programIDAliases   = []string{"id", "program_id"}
	programNameAliases = []string{"name", "program_name"}

	contactEmailAliases        = []string{"email", "email_address"}
	contactPhoneAliases        = []string{"phone", "phone_number", "mobile", "cell"}
	contactRelationshipAliases = []string{"relationship", "role", "type"}
)

// Items locates the record list in a payload that may be a bare array or an
// object wrapping the list under "data" or the kind name.
func Items(payload any, kind string) []map[string]any {
	var raw []any
	switch v := payload.(type) {
	case []any:
		raw = v
	case map[string]any:
		if list, ok := v["data"].([]any); ok {
			raw = list
		} else if list, ok := v[kind].([]any); ok {
			raw = list
		}
	}
	items := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}

// FirstString returns the first alias present with a non-empty string value.
func FirstString(m map[string]any, aliases ...string) string {
	for _, alias := range aliases {
		if s, ok := m[alias].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// FirstID returns the first alias present with a usable identifier,
// normalized to a string. IDs arrive as JSON numbers from some endpoints and
// strings from others.
func FirstID(m map[string]any, aliases ...string) string {
	for _, alias := range aliases {
		if id := idString(m[alias]); id != "" {
			return id
		}
	}
	return ""
}

// FirstList returns the first alias present with a list value.
func FirstList(m map[string]any, aliases ...string) []any {
	for _, alias := range aliases {
		if list, ok := m[alias].([]any); ok {
			return list
		}
	}
	return nil
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	case json.Number:
		return id.String()
	}
	return ""
}
