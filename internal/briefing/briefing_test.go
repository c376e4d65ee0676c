package briefing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "generated_at": "2024-01-02T07:30:00Z",
  "sections": [
    {"id": "messages", "title": "Messages", "icon": "mail", "items": [
      {"id": "m1", "summary": "Reply to Sam", "priority": "high", "source_url": "https://mail.example.com/1"},
      {"id": "m2", "summary": "Read newsletter", "type": "news", "source_label": "Inbox"}
    ]},
    {"id": "calendar", "title": "Calendar", "icon": "spaceship", "items": []}
  ]
}`

func TestDecodeAppliesDefaults(t *testing.T) {
	doc, err := Decode([]byte(sampleJSON))
	require.NoError(t, err)
	require.Len(t, doc.Sections, 2)

	assert.Equal(t, 2024, doc.GeneratedAt.Year())
	assert.Equal(t, "mail", doc.Sections[0].Icon)
	assert.Equal(t, DefaultIcon, doc.Sections[1].Icon)

	m1 := doc.Sections[0].Items[0]
	assert.Equal(t, PriorityHigh, m1.Priority)
	assert.Equal(t, DefaultType, m1.Type)
	assert.Equal(t, DefaultSourceLabel, m1.Label())
	assert.False(t, m1.ShowType())

	m2 := doc.Sections[0].Items[1]
	assert.Equal(t, "Inbox", m2.Label())
	assert.True(t, m2.ShowType())
}

func TestDecodeUnknownPriorityIsNone(t *testing.T) {
	doc, err := Decode([]byte(`{"sections":[{"id":"s","title":"S","items":[{"id":"a","summary":"x","priority":"urgent"}]}]}`))
	require.NoError(t, err)
	assert.Equal(t, PriorityNone, doc.Sections[0].Items[0].Priority)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte(`{"sections": [`))
	assert.Error(t, err)
}

func TestDecodeLenientTimestamp(t *testing.T) {
	doc, err := Decode([]byte(`{"generated_at":"2024-01-02 07:30:00","sections":[]}`))
	require.NoError(t, err)
	assert.Equal(t, 7, doc.GeneratedAt.Hour())

	doc, err = Decode([]byte(`{"generated_at":"yesterday-ish","sections":[]}`))
	require.NoError(t, err)
	assert.True(t, doc.GeneratedAt.IsZero())

	doc, err = Decode([]byte(`{"sections":[]}`))
	require.NoError(t, err)
	assert.True(t, doc.GeneratedAt.IsZero())
}

func TestHasContent(t *testing.T) {
	var nilDoc *Document
	assert.False(t, nilDoc.HasContent())
	assert.False(t, (&Document{}).HasContent())
	assert.True(t, (&Document{Sections: []Section{{ID: "empty"}}}).HasContent())
}

func TestDecodeIndex(t *testing.T) {
	dates, err := DecodeIndex([]byte(`["2024-01-01","2024-01-02"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, dates)

	_, err = DecodeIndex([]byte(`{"not":"a list"}`))
	assert.Error(t, err)
}

func TestInRangeIsStringOrder(t *testing.T) {
	assert.True(t, InRange("2024-01-01", "2024-01-01", "2024-01-02"))
	assert.True(t, InRange("2024-01-02", "2024-01-01", "2024-01-02"))
	assert.False(t, InRange("2024-01-03", "2024-01-01", "2024-01-02"))
	assert.False(t, InRange("2024-01-01", "2024-01-02", "2024-01-01"))
}

func TestFormatLong(t *testing.T) {
	assert.Equal(t, "Saturday 6 January 2024", FormatLong("2024-01-06"))
	assert.Equal(t, "sample", FormatLong("sample"))
}

func TestStartOfRange(t *testing.T) {
	assert.Equal(t, "2024-01-01", StartOfRange("2024-01-07", 7))
	assert.Equal(t, "2024-01-07", StartOfRange("2024-01-07", 1))
	assert.Equal(t, "garbage", StartOfRange("garbage", 7))
}

func TestValidKey(t *testing.T) {
	assert.True(t, ValidKey("2024-01-06"))
	assert.True(t, ValidKey(SampleKey))
	assert.False(t, ValidKey("../etc/passwd"))
	assert.False(t, ValidKey("2024-1-6"))
}
