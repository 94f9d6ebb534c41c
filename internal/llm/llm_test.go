package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeProvider implements Provider by echoing the last user message.
type fakeProvider struct {
	resp Message
	err  error
}

func (f *fakeProvider) Chat(ctx context.Context, msgs []Message, model string) (Message, error) {
	if f.err != nil {
		return Message{}, f.err
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return Message{Role: "assistant", Content: msgs[i].Content}, nil
		}
	}
	return f.resp, nil
}

func TestFakeProviderChat(t *testing.T) {
	p := &fakeProvider{resp: Message{Role: "assistant", Content: "ok"}}
	msg, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "hello"}}, "")
	require.NoError(t, err)
	require.Equal(t, "assistant", msg.Role)
	require.Equal(t, "hello", msg.Content)
}

func TestFakeProviderChatError(t *testing.T) {
	p := &fakeProvider{err: context.Canceled}
	_, err := p.Chat(context.Background(), nil, "")
	require.Error(t, err)
}
