package export

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var payload any
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestItems_BareArray(t *testing.T) {
	payload := decode(t, `[{"id":1},{"id":2}]`)
	items := Items(payload, "teams")
	require.Len(t, items, 2)
}

func TestItems_WrappedUnderData(t *testing.T) {
	payload := decode(t, `{"data":[{"id":1}],"meta":{"total":1}}`)
	items := Items(payload, "teams")
	require.Len(t, items, 1)
}

func TestItems_WrappedUnderKind(t *testing.T) {
	payload := decode(t, `{"teams":[{"id":1},{"id":2},{"id":3}]}`)
	items := Items(payload, "teams")
	require.Len(t, items, 3)
}

func TestItems_SkipsNonObjectEntries(t *testing.T) {
	payload := decode(t, `[{"id":1},"stray",42,{"id":2}]`)
	items := Items(payload, "teams")
	require.Len(t, items, 2)
}

func TestItems_UnrecognizedShape(t *testing.T) {
	assert.Empty(t, Items(decode(t, `{"count":0}`), "teams"))
	assert.Empty(t, Items("not a collection", "teams"))
	assert.Empty(t, Items(nil, "teams"))
}

func TestFirstString_AliasOrder(t *testing.T) {
	m := map[string]any{"firstName": "Jordan", "fname": "J"}
	assert.Equal(t, "Jordan", FirstString(m, playerFirstNameAliases...))

	// An empty string does not satisfy an alias.
	m = map[string]any{"first_name": "", "firstName": "Jordan"}
	assert.Equal(t, "Jordan", FirstString(m, playerFirstNameAliases...))

	assert.Equal(t, "", FirstString(map[string]any{}, playerFirstNameAliases...))
}

func TestFirstID_NormalizesNumbers(t *testing.T) {
	assert.Equal(t, "42", FirstID(map[string]any{"id": float64(42)}, playerIDAliases...))
	assert.Equal(t, "abc", FirstID(map[string]any{"player_id": "abc"}, playerIDAliases...))
	assert.Equal(t, "7", FirstID(map[string]any{"id": json.Number("7")}, playerIDAliases...))
	assert.Equal(t, "", FirstID(map[string]any{"id": true}, playerIDAliases...))
}

func TestFirstList(t *testing.T) {
	m := map[string]any{"teams": []any{"a"}}
	assert.Len(t, FirstList(m, playerTeamsAliases...), 1)
	assert.Nil(t, FirstList(map[string]any{"teams": "oops"}, playerTeamsAliases...))
}
