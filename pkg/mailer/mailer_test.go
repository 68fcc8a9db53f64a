package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-timetable-api/pkg/config"
)

func sampleMessage() Message {
	return Message{
		To:       []mail.Address{{Name: "Dr. Rao", Address: "rao@example.edu"}},
		Subject:  "Substitute request",
		TextBody: "Please cover DBMS on Monday period 3.",
	}
}

func TestNewSelectsProvider(t *testing.T) {
	sender, err := New(config.MailConfig{Provider: "console"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &ConsoleSender{}, sender)

	_, err = New(config.MailConfig{Provider: "sendgrid"}, zap.NewNop())
	assert.Error(t, err)

	sender, err = New(config.MailConfig{Provider: "sendgrid", SendgridAPIKey: "key"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &SendgridSender{}, sender)

	_, err = New(config.MailConfig{Provider: "pigeon"}, zap.NewNop())
	assert.Error(t, err)
}

func TestConsoleSenderRecords(t *testing.T) {
	sender := NewConsoleSender(mail.Address{Address: "no-reply@example.edu"}, "[TT] ", zap.NewNop())
	require.NoError(t, sender.Send(context.Background(), sampleMessage()))
	require.Len(t, sender.Sent(), 1)

	err := sender.Send(context.Background(), Message{Subject: "empty"})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSendgridSenderBuildsPayload(t *testing.T) {
	sender := NewSendgridSender("key", mail.Address{Name: "Office", Address: "office@example.edu"}, "[TT] ")
	var captured rest.Request
	sender.do = func(req rest.Request) (*rest.Response, error) {
		captured = req
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}

	require.NoError(t, sender.Send(context.Background(), sampleMessage()))
	assert.Equal(t, rest.Method(http.MethodPost), captured.Method)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(captured.Body, &body))
	personalizations := body["personalizations"].([]interface{})
	first := personalizations[0].(map[string]interface{})
	assert.Equal(t, "[TT] Substitute request", first["subject"])
}

func TestSendgridSenderReportsFailures(t *testing.T) {
	sender := NewSendgridSender("key", mail.Address{Address: "office@example.edu"}, "")
	sender.do = func(req rest.Request) (*rest.Response, error) {
		return &rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}, nil
	}
	assert.Error(t, sender.Send(context.Background(), sampleMessage()))

	sender.do = func(req rest.Request) (*rest.Response, error) {
		return nil, errors.New("dial tcp: timeout")
	}
	assert.Error(t, sender.Send(context.Background(), sampleMessage()))
}
