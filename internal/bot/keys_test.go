package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePromptKeys(t *testing.T) {
	tests := []struct {
		mode    string
		want    PromptKeys
		wantErr bool
	}{
		{mode: "", want: MessageInteractionKeys{}},
		{mode: "message_interaction", want: MessageInteractionKeys{}},
		{mode: "custom_id", want: CustomIDKeys{}},
		{mode: "message", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			got, err := ParsePromptKeys(tt.mode)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestMessageInteractionKeys(t *testing.T) {
	k := MessageInteractionKeys{}

	key, customID := k.Bind(&discordgo.Interaction{ID: "cmd-1"})
	assert.Equal(t, "cmd-1", key)
	assert.Equal(t, DocsMenuID, customID)

	assert.True(t, k.Owns(DocsMenuID))
	assert.False(t, k.Owns(DocsMenuID+":abc"))
	assert.False(t, k.Owns("other"))

	got, ok := k.Extract(selectEvent("sel-1", "cmd-1", DocsMenuID, "0").Interaction)
	assert.True(t, ok)
	assert.Equal(t, "cmd-1", got)

	_, ok = k.Extract(&discordgo.Interaction{ID: "sel-1", Message: &discordgo.Message{}})
	assert.False(t, ok)
	_, ok = k.Extract(&discordgo.Interaction{ID: "sel-1"})
	assert.False(t, ok)
}

func TestCustomIDKeys(t *testing.T) {
	k := CustomIDKeys{NewNonce: func() string { return "n1" }}

	key, customID := k.Bind(&discordgo.Interaction{ID: "cmd-1"})
	assert.Equal(t, "n1", key)
	assert.Equal(t, "selectDoc:n1", customID)

	assert.True(t, k.Owns("selectDoc:n1"))
	assert.False(t, k.Owns(DocsMenuID))

	got, ok := k.Extract(selectEvent("sel-1", "cmd-1", "selectDoc:n1", "0").Interaction)
	assert.True(t, ok)
	assert.Equal(t, "n1", got)

	_, ok = k.Extract(selectEvent("sel-1", "cmd-1", "selectDoc:", "0").Interaction)
	assert.False(t, ok)
}

func TestCustomIDKeysDefaultNonceIsUnique(t *testing.T) {
	k := CustomIDKeys{}
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		key, customID := k.Bind(&discordgo.Interaction{})
		require.NotEmpty(t, key)
		assert.Equal(t, DocsMenuID+":"+key, customID)
		seen[key] = struct{}{}
	}
	assert.Len(t, seen, 100)
}
