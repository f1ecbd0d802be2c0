package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxd/inboxd/internal/conversation"
	"github.com/inboxd/inboxd/internal/gateway"
	"github.com/inboxd/inboxd/internal/message"
	"github.com/inboxd/inboxd/internal/reply"
)

type fakeContacts struct {
	id    string
	err   error
	calls int
	phone string
	name  string
}

func (f *fakeContacts) Resolve(_ context.Context, _, phoneNumber, displayName string) (string, error) {
	f.calls++
	f.phone = phoneNumber
	f.name = displayName
	return f.id, f.err
}

type fakeSessions struct {
	id        string
	err       error
	contactID string
	summaries []conversation.Summary
}

func (f *fakeSessions) Resolve(_ context.Context, _, _, contactID, _ string) (string, error) {
	f.contactID = contactID
	return f.id, f.err
}

func (f *fakeSessions) RefreshSummary(_ context.Context, _ string, summary conversation.Summary) error {
	f.summaries = append(f.summaries, summary)
	return nil
}

type fakeWriter struct {
	id        string
	err       error
	persisted []message.PersistInput
}

func (f *fakeWriter) Persist(_ context.Context, input message.PersistInput) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.persisted = append(f.persisted, input)
	return f.id, nil
}

type fakeQueue struct {
	sessions []string
	err      error
}

func (f *fakeQueue) Enqueue(sessionID string) (*reply.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sessions = append(f.sessions, sessionID)
	return &reply.Task{SessionID: sessionID}, nil
}

func inboundPayload() gateway.InboundPayload {
	return gateway.InboundPayload{
		From:      "628111",
		ChatID:    "628111@s.whatsapp.net",
		MessageID: "ext-1",
		PushName:  "Budi",
		Timestamp: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC).Unix(),
		Type:      "text",
		Text:      "hello there",
	}
}

func TestIngestNewContact(t *testing.T) {
	t.Parallel()

	contacts := &fakeContacts{id: "contact-1"}
	sessions := &fakeSessions{id: "sess-1"}
	writer := &fakeWriter{id: "msg-1"}
	queue := &fakeQueue{}
	svc := NewService(nil, contacts, sessions, writer, queue)

	out, err := svc.Ingest(context.Background(), "comp-1", "chan-1", inboundPayload())
	require.NoError(t, err)
	assert.Equal(t, Outcome{SessionID: "sess-1", MessageID: "msg-1"}, out)

	assert.Equal(t, "628111", contacts.phone)
	assert.Equal(t, "Budi", contacts.name)
	assert.Equal(t, "contact-1", sessions.contactID)

	require.Len(t, writer.persisted, 1)
	stored := writer.persisted[0]
	assert.Equal(t, "comp-1", stored.CompanyID)
	assert.Equal(t, "sess-1", stored.SessionID)
	assert.Equal(t, "ext-1", stored.ExternalMessageID)
	assert.Equal(t, "hello there", stored.Body)
	assert.Equal(t, conversation.DirectionInbound, stored.Direction)
	assert.Equal(t, conversation.SenderContact, stored.SenderType)
	assert.Equal(t, message.StatusReceived, stored.Status)
	assert.False(t, stored.Read)

	require.Len(t, sessions.summaries, 1)
	assert.Equal(t, "hello there", sessions.summaries[0].Body)
	assert.Equal(t, conversation.DirectionInbound, sessions.summaries[0].Direction)
	assert.Equal(t, conversation.SenderContact, sessions.summaries[0].Sender)

	assert.Equal(t, []string{"sess-1"}, queue.sessions)
}

func TestIngestDuplicateStopsEarly(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessions{id: "sess-1"}
	writer := &fakeWriter{err: message.ErrDuplicate}
	queue := &fakeQueue{}
	svc := NewService(nil, &fakeContacts{id: "contact-1"}, sessions, writer, queue)

	out, err := svc.Ingest(context.Background(), "comp-1", "chan-1", inboundPayload())
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.Equal(t, "sess-1", out.SessionID)
	assert.Empty(t, out.MessageID)

	assert.Empty(t, sessions.summaries)
	assert.Empty(t, queue.sessions)
}

func TestIngestContactErrorPropagates(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, &fakeContacts{err: assert.AnError}, &fakeSessions{}, &fakeWriter{}, &fakeQueue{})
	_, err := svc.Ingest(context.Background(), "comp-1", "chan-1", inboundPayload())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestIngestQueueFullIsTolerated(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{id: "msg-1"}
	queue := &fakeQueue{err: reply.ErrQueueFull}
	svc := NewService(nil, &fakeContacts{id: "contact-1"}, &fakeSessions{id: "sess-1"}, writer, queue)

	out, err := svc.Ingest(context.Background(), "comp-1", "chan-1", inboundPayload())
	require.NoError(t, err)
	assert.Equal(t, "msg-1", out.MessageID)
	assert.Empty(t, queue.sessions)
}

func TestIngestSynthesizedBodies(t *testing.T) {
	t.Parallel()

	payload := inboundPayload()
	payload.Type = "image"
	payload.Text = ""
	payload.Caption = ""

	writer := &fakeWriter{id: "msg-1"}
	svc := NewService(nil, &fakeContacts{id: "contact-1"}, &fakeSessions{id: "sess-1"}, writer, &fakeQueue{})

	_, err := svc.Ingest(context.Background(), "comp-1", "chan-1", payload)
	require.NoError(t, err)
	require.Len(t, writer.persisted, 1)
	assert.Equal(t, "[Image]", writer.persisted[0].Body)
}
