package guild

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOpeningBlock(t *testing.T) {
	now := time.Unix(0, 0)
	b := newOpeningBlock(now)

	assert.Len(t, b.Messages, 1)
	assert.Equal(t, systemAuthor, b.Messages[0].Author)
	assert.Equal(t, systemOpeningMessage, b.Messages[0].Content)
	assert.False(t, b.Filled)
}

func TestAppendMessageFillsAtCapacity(t *testing.T) {
	b := newOpeningBlock(time.Unix(0, 0))
	for i := 1; i < blockCapacity-1; i++ {
		b = appendMessage(b, Message{Content: "hi", Author: "u"})
		assert.False(t, b.Filled, "block should not be filled before reaching capacity")
	}

	b = appendMessage(b, Message{Content: "last", Author: "u"})
	assert.True(t, b.Filled)
	assert.Len(t, b.Messages, blockCapacity)
}

func TestAppendMessageDoesNotMutateSharedSlice(t *testing.T) {
	original := newOpeningBlock(time.Unix(0, 0))
	appended := appendMessage(original, Message{Content: "x", Author: "u"})

	assert.Len(t, original.Messages, 1, "appendMessage must not mutate its input")
	assert.Len(t, appended.Messages, 2)
}
