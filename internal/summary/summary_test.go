package summary

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forecast-mailer/internal/models"
)

func fold(items []string, message string) string {
	for i, item := range items {
		message = BuildFromList(item, i, len(items), message)
	}
	return message
}

func TestBuildFromList(t *testing.T) {
	tests := []struct {
		name    string
		item    string
		index   int
		length  int
		message string
		want    string
	}{
		{"single item", "apple", 0, 1, "Fruit: ", "Fruit: apple"},
		{"first of several", "apple", 0, 3, "Fruits: ", "Fruits: apple"},
		{"middle item", "banana", 1, 3, "Fruits: apple", "Fruits: apple, banana"},
		{"last item", "cherry", 2, 3, "Fruits: apple, banana", "Fruits: apple, banana and cherry"},
		{"empty list", "", 0, 0, "", ""},
		{"empty list keeps message", "ignored", 0, 0, "Fruits: ", "Fruits: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildFromList(tt.item, tt.index, tt.length, tt.message))
		})
	}
}

func TestBuildFromList_Fold(t *testing.T) {
	assert.Equal(t, "apple, banana and cherry", fold([]string{"apple", "banana", "cherry"}, ""))
	assert.Equal(t, "a and b", fold([]string{"a", "b"}, ""))
	assert.Equal(t, "x: only", fold([]string{"only"}, "x: "))
	assert.Equal(t, "x: ", fold(nil, "x: "))
}

func TestBuildFromList_Separators(t *testing.T) {
	for n := 2; n <= 8; n++ {
		items := make([]string, n)
		for i := range items {
			items[i] = strings.Repeat(string(rune('a'+i)), 2)
		}
		got := fold(items, "")

		assert.Equal(t, n-2, strings.Count(got, ", "), "n=%d", n)
		assert.Equal(t, 1, strings.Count(got, " and "), "n=%d", n)
		assert.True(t, strings.HasSuffix(got, " and "+items[n-1]), "n=%d", n)
		assert.True(t, strings.HasPrefix(got, items[0]), "n=%d", n)
	}
}

func TestBuildFromList_FirstStepIsStable(t *testing.T) {
	first := BuildFromList("apple", 0, 3, "")
	assert.Equal(t, first, BuildFromList("apple", 0, 3, ""))
	assert.Equal(t, "apple", first)
}

func newTestAggregator() (*Aggregator, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	return NewAggregator(logger), &buf
}

func TestCheckSentAndBuild_Error(t *testing.T) {
	agg, logs := newTestAggregator()
	result := models.Failed("invalid_api_Key", "Cannot send email")

	got := agg.CheckSentAndBuild("", "Wind", result, "test@example.com", 5, 3)

	assert.Equal(t, "Cannot send email"+Separator, got)
	assert.NotContains(t, got, "test@example.com")
	assert.Contains(t, logs.String(), "email not sent")
	assert.Contains(t, logs.String(), "source=Wind")
	assert.Contains(t, logs.String(), "Cannot send email")
}

func TestCheckSentAndBuild_Success(t *testing.T) {
	agg, logs := newTestAggregator()

	got := agg.CheckSentAndBuild("", "Wind", models.Sent("123"), "test@example.com", 5, 3)

	assert.Contains(t, got, "test@example.com")
	assert.Contains(t, logs.String(), "email provider response")
	assert.Contains(t, logs.String(), "id=123")
}

func TestCheckSentAndBuild_MultipleRecipients(t *testing.T) {
	agg, logs := newTestAggregator()
	recipients := []string{"test@email.com", "test2@email.com"}

	message := "Emails sent to "
	for i, r := range recipients {
		message = agg.CheckSentAndBuild(message, "Wind", models.Sent("123"), r, len(recipients), i)
	}

	assert.Equal(t, "Emails sent to test@email.com and test2@email.com", message)
	assert.Equal(t, 2, strings.Count(logs.String(), "email provider response"))
}

func TestCheckSentAndBuild_MixedResults(t *testing.T) {
	agg, _ := newTestAggregator()

	message := "Solar emails sent to "
	message = agg.CheckSentAndBuild(message, "Solar", models.Sent("1"), "a@x.io", 3, 0)
	message = agg.CheckSentAndBuild(message, "Solar", models.Failed("rate_limit_exceeded", "Too many requests"), "b@x.io", 3, 1)
	message = agg.CheckSentAndBuild(message, "Solar", models.Sent("3"), "c@x.io", 3, 2)

	require.Equal(t, 1, strings.Count(message, Separator))
	assert.Equal(t, "Solar emails sent to a@x.ioToo many requests"+Separator+" and c@x.io", message)
}

func TestNewAggregator_NilLogger(t *testing.T) {
	agg := NewAggregator(nil)
	assert.Equal(t, "a", agg.CheckSentAndBuild("", "Wind", models.Sent(""), "a", 1, 0))
}
