package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisherRecordsMessages(t *testing.T) {
	t.Parallel()

	p := New()
	id, err := p.Publish(context.Background(), "changes", map[string]any{"webpage_id": "w1"})
	require.NoError(t, err)
	require.Equal(t, "mem-1", id)

	msgs := p.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "changes", msgs[0].Topic)
}
