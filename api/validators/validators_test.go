package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
)

type lineItem struct {
	ItemID   string `json:"item_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type bulkBody struct {
	Items    []lineItem `json:"items" validate:"required,min=1,max=2,dive"`
	Priority string     `json:"priority" validate:"omitempty,oneof=low medium high"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/v1/requests/bulk", strings.NewReader(body))
}

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	d, ok := typed.Details().(map[string]string)
	require.True(t, ok, "details %T", typed.Details())
	return d
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	var dest bulkBody
	require.NoError(t, DecodeJSONBody(post(`{"items":[{"item_id":"a","quantity":2}],"priority":"high"}`), &dest))
	assert.Equal(t, 2, dest.Items[0].Quantity)
}

func TestDecodeJSONBodyFieldErrorsUseJSONPaths(t *testing.T) {
	var dest bulkBody
	err := DecodeJSONBody(post(`{"items":[{"item_id":"a","quantity":0}],"priority":"urgent"}`), &dest)
	d := details(t, err)
	assert.Equal(t, "is required", d["items[0].quantity"])
	assert.Equal(t, "must be one of: low, medium, high", d["priority"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"syntax":   `{"items":`,
		"trailing": `{"items":[{"item_id":"a","quantity":1}]} {}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var dest bulkBody
			err := DecodeJSONBody(post(body), &dest)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	var dest bulkBody
	d := details(t, DecodeJSONBody(post(`{"items":[],"color":"red"}`), &dest))
	assert.Equal(t, "is not allowed", d["color"])

	d = details(t, DecodeJSONBody(post(`{"items":[{"item_id":"a","quantity":"two"}]}`), &dest))
	require.Len(t, d, 1)
	for _, msg := range d {
		assert.Equal(t, "must be int", msg)
	}
}

func TestDecodeOptionalJSONBody(t *testing.T) {
	chunked := func(body string) *http.Request {
		r := post(body)
		r.ContentLength = -1
		r.TransferEncoding = []string{"chunked"}
		return r
	}

	for name, r := range map[string]*http.Request{
		"no body":       httptest.NewRequest(http.MethodPost, "/x", nil),
		"chunked empty": chunked(""),
		"blank":         post(" \n"),
	} {
		t.Run(name, func(t *testing.T) {
			var dest bulkBody
			require.NoError(t, DecodeOptionalJSONBody(r, &dest))
			assert.Empty(t, dest.Items)
		})
	}

	var dest bulkBody
	require.NoError(t, DecodeOptionalJSONBody(chunked(`{"items":[{"item_id":"a","quantity":1}]}`), &dest))
	assert.Len(t, dest.Items, 1)

	err := DecodeOptionalJSONBody(chunked(`{"items":`), &dest)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestDecodeJSONBodyItemCount(t *testing.T) {
	var dest bulkBody
	body := `{"items":[{"item_id":"a","quantity":1},{"item_id":"b","quantity":1},{"item_id":"c","quantity":1}]}`
	d := details(t, DecodeJSONBody(post(body), &dest))
	assert.Equal(t, "must contain at most 2 items", d["items"])
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=30&bad=x&big=500", nil)

	v, err := ParseQueryInt(req, "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 30, v)

	v, err = ParseQueryInt(req, "missing", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, v)

	_, err = ParseQueryInt(req, "bad", 25, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = ParseQueryInt(req, "big", 25, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "toner", SanitizeString("  toner  ", 0))
	assert.Equal(t, "café", SanitizeString("cafés", 4))
	assert.Equal(t, "ab", SanitizeString(" ab ", 10))
}

func TestParseQueryOptionals(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/?unread=true&item="+id.String()+"&from=2026-02-01&bad=nope", nil)

	b, err := ParseQueryBool(req, "unread")
	require.NoError(t, err)
	assert.True(t, b)

	got, err := ParseQueryUUID(req, "item")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, *got)

	day, err := ParseQueryDate(req, "from")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), *day)

	missing, err := ParseQueryDate(req, "to")
	require.NoError(t, err)
	assert.Nil(t, missing)

	for _, parse := range []func() error{
		func() error { _, err := ParseQueryBool(req, "bad"); return err },
		func() error { _, err := ParseQueryUUID(req, "bad"); return err },
		func() error { _, err := ParseQueryDate(req, "bad"); return err },
	} {
		err := parse()
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		assert.Equal(t, "bad", pkgerrors.As(err).Details().(map[string]any)["field"])
	}
}
