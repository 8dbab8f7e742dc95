package classify_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ticket-wallet/constants"
	"github.com/joseph-ayodele/ticket-wallet/internal/classify"
)

func newClassifier(t *testing.T) *classify.Classifier {
	t.Helper()
	return classify.New(classify.DefaultVocabulary(), nil)
}

func TestDefaultVocabulary_Sizes(t *testing.T) {
	v := classify.DefaultVocabulary()
	assert.Equal(t, 2, v.Threshold)
	assert.Len(t, v.Categories[constants.BoardingPass], 20)
	assert.Len(t, v.Categories[constants.EventTicket], 34)
	assert.Len(t, v.Categories[constants.Coupon], 18)
	assert.Len(t, v.Categories[constants.StoreCard], 17)
}

func TestDetect_Threshold(t *testing.T) {
	c := newClassifier(t)

	// exactly one boarding keyword
	assert.Equal(t, constants.Generic, c.Detect("Your FLIGHT is confirmed", nil))
	// two distinct boarding keywords
	assert.Equal(t, constants.BoardingPass, c.Detect("Your FLIGHT leaves from GATE 4", nil))
}

func TestDetect_TieIsGeneric(t *testing.T) {
	c := newClassifier(t)
	// flight + gate for boarding, coupon + discount for coupon
	assert.Equal(t, constants.Generic, c.Detect("flight gate coupon discount", nil))
}

func TestDetect_HebrewCinema(t *testing.T) {
	c := newClassifier(t)
	text := "קולנוע פלאנט\nאולם 7\nשורה: 5\nמושב: 12"
	assert.Equal(t, constants.EventTicket, c.Detect(text, nil))
}

func TestDetect_QRPayloadCounts(t *testing.T) {
	c := newClassifier(t)
	assert.Equal(t, constants.StoreCard, c.Detect("welcome", []string{"LOYALTY-MEMBER-0042"}))
}

func TestScores_DistinctKeywords(t *testing.T) {
	c := newClassifier(t)
	scores := c.Scores("gate gate gate flight", nil)
	assert.Equal(t, 2, scores[constants.BoardingPass])
}

func TestDetect_Deterministic(t *testing.T) {
	c := newClassifier(t)
	text := "Concert ticket, row 4, promo discount"
	first := c.Detect(text, nil)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, c.Detect(text, nil))
	}
}

func TestLoadVocabulary_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kw.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threshold: 1\ncategories:\n  coupon: [Voucher]\n"), 0o600))

	v, err := classify.LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Threshold)
	assert.Equal(t, []string{"voucher"}, v.Categories[constants.Coupon])

	c := classify.New(v, nil)
	assert.Equal(t, constants.Coupon, c.Detect("VOUCHER inside", nil))
}

func TestParseVocabulary_RejectsUnknownCategory(t *testing.T) {
	_, err := classify.ParseVocabulary([]byte("categories:\n  hotel: [room]\n"))
	require.Error(t, err)

	_, err = classify.ParseVocabulary([]byte("categories:\n  generic: [x]\n"))
	require.Error(t, err)
}

func TestWithThreshold(t *testing.T) {
	c := newClassifier(t).WithThreshold(3)
	assert.Equal(t, constants.Generic, c.Detect("flight gate", nil))
	assert.Equal(t, constants.BoardingPass, c.Detect("flight gate terminal", nil))
}
