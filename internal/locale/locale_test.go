// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestParse(t *testing.T) {
	tag, err := Parse("en")
	require.NoError(t, err)
	assert.True(t, Supported(tag))

	tag, err = Parse("en-GB")
	require.NoError(t, err)
	assert.True(t, Supported(tag))

	_, err = Parse("fr")
	assert.Error(t, err)

	_, err = Parse("not a tag!")
	assert.Error(t, err)
}

func TestFor_FallsBackToEnglish(t *testing.T) {
	m := For(language.Japanese)
	assert.Equal(t, Default, m.Tag())
	assert.Equal(t, "Conversation history cleared", m.Get(ClearSuccess))
}

func TestMessages_Get(t *testing.T) {
	m := For(language.English)

	assert.Equal(t, "Response from gpt-4o", m.Get(ResponseFrom, "gpt-4o"))
	assert.Equal(t, "51 calls this session exceed the advisory limit of 50", m.Get(QuotaWarningBody, 51, 50))
	assert.Equal(t, "missing_key", m.Get(Key("missing_key")))
}

func TestEnglishCatalogIsComplete(t *testing.T) {
	keys := []Key{
		ClearSuccess, HistoryTitle, NoHistory, ExportSuccess, ExportFailed, BlankPrompt,
		BlankPromptHint, RequestFailed, ResponseFrom, ImageGenerated, ImageFailed,
		ImagePromptNeeded, ImageKeyMissing, ImageKeyHint, LogWriteWarning, LoggingDisabled,
		QuotaWarning, QuotaWarningBody, InternalError, PathLabel, UserLabel, AssistantLabel,
	}
	for _, k := range keys {
		_, ok := english[k]
		assert.True(t, ok, "missing english string for %s", k)
	}
}
