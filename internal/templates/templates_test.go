package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageFallback(t *testing.T) {
	assert.Equal(t, "en", New("", "").Language())
	assert.Equal(t, "ar", New("ar", "en").Language())
	assert.Equal(t, "en", New("fr", "en").Language())
	assert.Equal(t, "ar", New("fr", "ar").Language())
	assert.Equal(t, "en", New("fr", "de").Language())
}

func TestGetSubstitutesVariables(t *testing.T) {
	r := New("en", "en")

	doc, err := r.Get("rag", "document_prompt", map[string]string{
		"doc_num":    "3",
		"chunk_text": "some chunk",
	})
	require.NoError(t, err)
	assert.Equal(t, "## Document No: 3\n### Content: some chunk", doc)
}

func TestGetWithoutVariables(t *testing.T) {
	r := New("en", "en")

	system, err := r.Get("rag", "system_prompt", nil)
	require.NoError(t, err)
	assert.Contains(t, system, "based only on the documents provided")
}

func TestGetFooterCarriesQuery(t *testing.T) {
	r := New("en", "en")

	footer, err := r.Get("rag", "footer_prompt", map[string]string{"query": "what is this?"})
	require.NoError(t, err)
	assert.Contains(t, footer, "## Question:\nwhat is this?")
}

func TestGetUnknownTemplate(t *testing.T) {
	r := New("en", "en")

	_, err := r.Get("rag", "missing_prompt", nil)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestGetArabicLocale(t *testing.T) {
	r := New("ar", "en")

	doc, err := r.Get("rag", "document_prompt", map[string]string{
		"doc_num":    "1",
		"chunk_text": "نص",
	})
	require.NoError(t, err)
	assert.Contains(t, doc, "1")
	assert.Contains(t, doc, "نص")
}
