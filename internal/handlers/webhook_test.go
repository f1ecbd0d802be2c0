package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxd/inboxd/internal/channel"
	"github.com/inboxd/inboxd/internal/gateway"
	"github.com/inboxd/inboxd/internal/ingest"
)

const (
	testCompanyID = "6a9c2c2a-98c9-4df5-9df8-bb9b51745111"
	testChannelID = "0f0c4b9e-1a2b-4c3d-8e4f-aa5b66771234"
)

type fakeIngestor struct {
	out     ingest.Outcome
	err     error
	payload gateway.InboundPayload
	calls   int
}

func (f *fakeIngestor) Ingest(_ context.Context, _, _ string, payload gateway.InboundPayload) (ingest.Outcome, error) {
	f.calls++
	f.payload = payload
	return f.out, f.err
}

type fakeChannels struct {
	ch  channel.Channel
	err error
}

func (f *fakeChannels) Get(context.Context, string) (channel.Channel, error) {
	return f.ch, f.err
}

func ownedChannel() channel.Channel {
	return channel.Channel{ID: testChannelID, CompanyID: testCompanyID, Status: channel.StatusConnected, Credential: "token"}
}

func deliver(h *WebhookHandler, companyID, channelID, token, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway/"+companyID+"/"+channelID, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(webhookTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/webhooks/gateway/:company_id/:channel_id")
	c.SetParamNames("company_id", "channel_id")
	c.SetParamValues(companyID, channelID)

	if err := h.Receive(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestWebhookReceiveStored(t *testing.T) {
	t.Parallel()

	ingestor := &fakeIngestor{out: ingest.Outcome{SessionID: "sess-1", MessageID: "msg-1"}}
	h := NewWebhookHandler(nil, ingestor, &fakeChannels{ch: ownedChannel()}, "hook-secret")

	rec := deliver(h, testCompanyID, testChannelID, "hook-secret",
		`{"from":"628111","chat_id":"628111@s.whatsapp.net","message_id":"ext-1","type":"text","text":"hi"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "sess-1", body["session_id"])
	assert.Equal(t, "msg-1", body["message_id"])
	assert.Equal(t, "stored", body["status"])
	assert.Equal(t, "hi", ingestor.payload.Text)
}

func TestWebhookReceiveDuplicate(t *testing.T) {
	t.Parallel()

	ingestor := &fakeIngestor{out: ingest.Outcome{SessionID: "sess-1", Duplicate: true}}
	h := NewWebhookHandler(nil, ingestor, &fakeChannels{ch: ownedChannel()}, "hook-secret")

	rec := deliver(h, testCompanyID, testChannelID, "hook-secret", `{"type":"text","text":"hi"}`)
	assert.Equal(t, http.StatusAlreadyReported, rec.Code)
}

func TestWebhookReceiveBadToken(t *testing.T) {
	t.Parallel()

	ingestor := &fakeIngestor{}
	h := NewWebhookHandler(nil, ingestor, &fakeChannels{ch: ownedChannel()}, "hook-secret")

	rec := deliver(h, testCompanyID, testChannelID, "wrong", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, ingestor.calls)
}

func TestWebhookReceiveBadIDs(t *testing.T) {
	t.Parallel()

	h := NewWebhookHandler(nil, &fakeIngestor{}, &fakeChannels{ch: ownedChannel()}, "hook-secret")

	rec := deliver(h, "not-a-uuid", testChannelID, "hook-secret", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = deliver(h, testCompanyID, "not-a-uuid", "hook-secret", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookReceiveForeignChannel(t *testing.T) {
	t.Parallel()

	ch := ownedChannel()
	ch.CompanyID = "11111111-2222-4333-8444-555566667777"
	h := NewWebhookHandler(nil, &fakeIngestor{}, &fakeChannels{ch: ch}, "hook-secret")

	rec := deliver(h, testCompanyID, testChannelID, "hook-secret", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookReceiveUnknownChannel(t *testing.T) {
	t.Parallel()

	h := NewWebhookHandler(nil, &fakeIngestor{}, &fakeChannels{err: channel.ErrNotFound}, "hook-secret")

	rec := deliver(h, testCompanyID, testChannelID, "hook-secret", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookReceiveIngestError(t *testing.T) {
	t.Parallel()

	h := NewWebhookHandler(nil, &fakeIngestor{err: assert.AnError}, &fakeChannels{ch: ownedChannel()}, "hook-secret")

	rec := deliver(h, testCompanyID, testChannelID, "hook-secret", `{"type":"text","text":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
