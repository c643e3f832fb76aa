package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"wagernotify/models"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessagingClient struct {
	multicastCalls [][]string
	multicastErr   error
	failTokens     map[string]error
	sent           []*messaging.Message
	sendErr        error
}

func (f *fakeMessagingClient) SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	f.multicastCalls = append(f.multicastCalls, message.Tokens)
	if f.multicastErr != nil {
		return nil, f.multicastErr
	}

	resp := &messaging.BatchResponse{}
	for i, token := range message.Tokens {
		if err, failed := f.failTokens[token]; failed {
			resp.FailureCount++
			resp.Responses = append(resp.Responses, &messaging.SendResponse{Error: err})
			continue
		}
		resp.SuccessCount++
		resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: true, MessageID: fmt.Sprintf("msg-%d", i)})
	}
	return resp, nil
}

func (f *fakeMessagingClient) Send(ctx context.Context, message *messaging.Message) (string, error) {
	f.sent = append(f.sent, message)
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return "msg-1", nil
}

func TestFCMSender_SendMulticast(t *testing.T) {
	ctx := context.Background()
	notification := models.Notification{Title: "Friday Picks", Body: "New bet: Rain tomorrow", Data: map[string]string{"type": "new_bet"}}

	t.Run("maps per token results", func(t *testing.T) {
		client := &fakeMessagingClient{failTokens: map[string]error{"t2": errors.New("token expired")}}
		sender := newFCMSenderWithClient(client)

		result, err := sender.SendMulticast(ctx, models.BatchMessage{Notification: notification, Tokens: []string{"t1", "t2"}})
		require.NoError(t, err)

		assert.Equal(t, 1, result.SuccessCount)
		assert.Equal(t, 1, result.FailureCount)
		require.Len(t, result.Responses, 2)
		assert.True(t, result.Responses[0].Success)
		assert.Equal(t, "t2", result.Responses[1].Token)
		assert.Equal(t, FCMErrorUnknown, result.Responses[1].ErrorCode)
		assert.Equal(t, "token expired", result.Responses[1].ErrorMessage)
	})

	t.Run("chunks large audiences", func(t *testing.T) {
		client := &fakeMessagingClient{}
		sender := newFCMSenderWithClient(client)

		tokens := make([]string, 1201)
		for i := range tokens {
			tokens[i] = fmt.Sprintf("t%d", i)
		}

		result, err := sender.SendMulticast(ctx, models.BatchMessage{Notification: notification, Tokens: tokens})
		require.NoError(t, err)

		require.Len(t, client.multicastCalls, 3)
		assert.Len(t, client.multicastCalls[0], 500)
		assert.Len(t, client.multicastCalls[2], 201)
		assert.Equal(t, 1201, result.SuccessCount)
		assert.Len(t, result.Responses, 1201)
	})

	t.Run("whole call failure", func(t *testing.T) {
		client := &fakeMessagingClient{multicastErr: errors.New("connection refused")}
		sender := newFCMSenderWithClient(client)

		_, err := sender.SendMulticast(ctx, models.BatchMessage{Notification: notification, Tokens: []string{"t1"}})

		var deliveryErr *models.DeliveryError
		require.ErrorAs(t, err, &deliveryErr)
		assert.Equal(t, FCMErrorUnknown, deliveryErr.Code)
	})
}

func TestFCMSender_Send(t *testing.T) {
	ctx := context.Background()
	msg := models.Message{
		Notification: models.Notification{Title: "Friday Picks", Body: "You won 100 on 'Rain tomorrow'", Data: map[string]string{"wagerId": "w1"}},
		Token:        "t1",
	}

	t.Run("builds the fcm message", func(t *testing.T) {
		client := &fakeMessagingClient{}
		require.NoError(t, newFCMSenderWithClient(client).Send(ctx, msg))

		require.Len(t, client.sent, 1)
		assert.Equal(t, "t1", client.sent[0].Token)
		assert.Equal(t, "You won 100 on 'Rain tomorrow'", client.sent[0].Notification.Body)
		assert.Equal(t, "w1", client.sent[0].Data["wagerId"])
	})

	t.Run("wraps failures", func(t *testing.T) {
		client := &fakeMessagingClient{sendErr: errors.New("boom")}
		err := newFCMSenderWithClient(client).Send(ctx, msg)

		var deliveryErr *models.DeliveryError
		require.ErrorAs(t, err, &deliveryErr)
		assert.Equal(t, "boom", deliveryErr.Message)
	})
}

func TestLogSender(t *testing.T) {
	sender := NewLogSender()
	ctx := context.Background()

	result, err := sender.SendMulticast(ctx, models.BatchMessage{Tokens: []string{"t1", "t2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Empty(t, result.Failures())

	require.NoError(t, sender.Send(ctx, models.Message{Token: "t3"}))
	assert.Equal(t, int64(3), sender.Sent())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, sender.Send(cancelled, models.Message{Token: "t4"}))
}
