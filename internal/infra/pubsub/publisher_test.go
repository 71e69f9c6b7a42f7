package pubsub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLocalHTTPPublisher_PublishAccountEvent(t *testing.T) {
	var received PubSubPushMessage
	var requestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get("X-Request-Id")
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	event := &entity.AccountEvent{
		Type:       entity.EventAccountRegistered,
		AccountID:  uuid.New(),
		Role:       entity.RoleProvider,
		OccurredAt: time.Now().UTC(),
		RequestID:  "req-1",
	}

	publisher := NewLocalHTTPPublisher(server.URL, discardLogger())
	require.NoError(t, publisher.PublishAccountEvent(context.Background(), event))

	assert.Equal(t, "req-1", requestID)
	assert.Equal(t, "account.registered", received.Message.Attributes["type"])
	assert.Equal(t, event.AccountID.String(), received.Message.Attributes["account_id"])

	data, err := base64.StdEncoding.DecodeString(received.Message.Data)
	require.NoError(t, err)
	var decoded entity.AccountEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event.AccountID, decoded.AccountID)
	assert.Equal(t, entity.RoleProvider, decoded.Role)
}

func TestLocalHTTPPublisher_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	publisher := NewLocalHTTPPublisher(server.URL, discardLogger())
	err := publisher.PublishAccountEvent(context.Background(), &entity.AccountEvent{Type: entity.EventAccountPasswordReset})
	assert.Error(t, err)
}

func TestNoopPublisher(t *testing.T) {
	publisher := NewNoopPublisher(discardLogger())

	assert.NoError(t, publisher.PublishAccountEvent(context.Background(), &entity.AccountEvent{Type: entity.EventAccountPasswordChanged}))
	assert.NoError(t, publisher.Close())
}

func TestExchangeName(t *testing.T) {
	assert.Equal(t, "account.events", exchangeName(""))
	assert.Equal(t, "custom", exchangeName("custom"))
}
