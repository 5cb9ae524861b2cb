package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Contact is one guardian attached to a player record.
type Contact struct {
	Name         string
	Email        string
	Phone        string
	Relationship string
}

// PlayerRow is a reconciled player record ready for export.
type PlayerRow struct {
	ID        string
	FirstName string
	LastName  string
	BirthDate string
	Gender    string
	Teams     []string
	Programs  []string
	Contacts  []Contact
}

// TeamLookup maps team id to team name from a teams payload.
func TeamLookup(payload any) map[string]string {
	lookup := map[string]string{}
	for _, team := range Items(payload, "teams") {
		id := FirstID(team, teamIDAliases...)
		if id == "" {
			continue
		}
		name := FirstString(team, teamNameAliases...)
		if name == "" {
			name = "Unknown Team"
		}
		lookup[id] = name
	}
	return lookup
}

// ProgramLookup maps program id to program name from a programs payload.
func ProgramLookup(payload any) map[string]string {
	lookup := map[string]string{}
	for _, program := range Items(payload, "programs") {
		id := FirstID(program, programIDAliases...)
		if id == "" {
			continue
		}
		name := FirstString(program, programNameAliases...)
		if name == "" {
			name = "Unknown Program"
		}
		lookup[id] = name
	}
	return lookup
}

// PlayerRows reconciles a players payload into rows, resolving team and
// program references through the lookups.
func PlayerRows(payload any, teams, programs map[string]string) []PlayerRow {
	items := Items(payload, "players")
	rows := make([]PlayerRow, 0, len(items))
	for _, player := range items {
		rows = append(rows, playerRow(player, teams, programs))
	}
	return rows
}

func playerRow(player map[string]any, teams, programs map[string]string) PlayerRow {
	row := PlayerRow{
		ID:        FirstID(player, playerIDAliases...),
		FirstName: FirstString(player, playerFirstNameAliases...),
		LastName:  FirstString(player, playerLastNameAliases...),
		BirthDate: FirstString(player, playerBirthDateAliases...),
		Gender:    FirstString(player, playerGenderAliases...),
	}
	if row.FirstName == "" && row.LastName == "" {
		full := FirstString(player, playerFullNameAliases...)
		if full != "" {
			parts := strings.SplitN(full, " ", 2)
			row.FirstName = parts[0]
			if len(parts) > 1 {
				row.LastName = parts[1]
			}
		}
	}

	for _, entry := range FirstList(player, playerTeamsAliases...) {
		membership, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if id := FirstID(membership, teamRefAliases...); id != "" {
			if name, ok := teams[id]; ok {
				row.Teams = append(row.Teams, name)
				continue
			}
		}
		if name := FirstString(membership, "team_name", "name"); name != "" {
			row.Teams = append(row.Teams, name)
		}
	}

	for _, entry := range FirstList(player, playerProgramsAliases...) {
		var id string
		if ref, ok := entry.(map[string]any); ok {
			id = FirstID(ref, programIDAliases...)
		} else {
			id = idString(entry)
		}
		if name, ok := programs[id]; id != "" && ok {
			row.Programs = append(row.Programs, name)
		}
	}

	for _, entry := range FirstList(player, playerContactsAliases...) {
		user, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		contact := Contact{
			Name:         contactName(user),
			Email:        FirstString(user, contactEmailAliases...),
			Phone:        FirstString(user, contactPhoneAliases...),
			Relationship: FirstString(user, contactRelationshipAliases...),
		}
		if contact.Name != "" || contact.Email != "" || contact.Phone != "" {
			row.Contacts = append(row.Contacts, contact)
		}
	}
	return row
}

func contactName(user map[string]any) string {
	if name := FirstString(user, "name"); name != "" {
		return name
	}
	name := strings.TrimSpace(FirstString(user, "first_name") + " " + FirstString(user, "last_name"))
	if name != "" {
		return name
	}
	return strings.TrimSpace(FirstString(user, "firstName") + " " + FirstString(user, "lastName"))
}

// MaxContacts is how many guardian column groups the player CSV carries.
const MaxContacts = 4

// WritePlayersCSV writes the player rows with the fixed header layout and up
// to MaxContacts guardian column groups per row.
func WritePlayersCSV(w io.Writer, rows []PlayerRow) error {
	header := []string{"Player ID", "First Name", "Last Name", "Birth Date", "Gender", "Teams", "Program(s)"}
	for i := 1; i <= MaxContacts; i++ {
		header = append(header,
			fmt.Sprintf("Parent %d Name", i),
			fmt.Sprintf("Parent %d Email", i),
			fmt.Sprintf("Parent %d Phone", i),
		)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.ID,
			row.FirstName,
			row.LastName,
			row.BirthDate,
			row.Gender,
			strings.Join(row.Teams, "; "),
			strings.Join(row.Programs, "; "),
		}
		for i := 0; i < MaxContacts; i++ {
			if i < len(row.Contacts) {
				record = append(record, row.Contacts[i].Name, row.Contacts[i].Email, row.Contacts[i].Phone)
			} else {
				record = append(record, "", "", "")
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
