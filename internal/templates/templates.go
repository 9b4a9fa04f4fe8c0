// Package templates holds the localized prompt templates used to assemble
// RAG prompts, with $variable substitution.
package templates

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrTemplateNotFound indicates a missing template group or key.
var ErrTemplateNotFound = errors.New("template not found")

// Registry resolves templates by group and key for a configured language,
// falling back to the default language and then to English.
type Registry struct {
	lang        string
	defaultLang string
}

// New creates a Registry for the given primary and default languages.
// Unknown languages fall back at lookup time.
func New(lang, defaultLang string) *Registry {
	if lang == "" {
		lang = "en"
	}
	if defaultLang == "" {
		defaultLang = "en"
	}
	return &Registry{lang: lang, defaultLang: defaultLang}
}

// Language returns the language a lookup would actually use.
func (r *Registry) Language() string {
	if _, ok := locales[r.lang]; ok {
		return r.lang
	}
	if _, ok := locales[r.defaultLang]; ok {
		return r.defaultLang
	}
	return "en"
}

// Get resolves a template and substitutes $name variables from vars.
// Unknown variables are left empty.
func (r *Registry) Get(group, key string, vars map[string]string) (string, error) {
	tmpl, ok := locales[r.Language()][group][key]
	if !ok {
		// The primary language may carry a partial set.
		tmpl, ok = locales["en"][group][key]
		if !ok {
			return "", fmt.Errorf("%w: %s.%s", ErrTemplateNotFound, group, key)
		}
	}
	if len(vars) == 0 {
		return tmpl, nil
	}
	return os.Expand(tmpl, func(name string) string {
		return vars[name]
	}), nil
}

var locales = map[string]map[string]map[string]string{
	"en": {
		"rag": {
			"system_prompt": strings.Join([]string{
				"You are an assistant that generates a response for the user.",
				"You will be provided with a set of documents associated with the user's query.",
				"Generate a response based only on the documents provided.",
				"Ignore documents that are not relevant to the user's query.",
				"You may apologize to the user if you are unable to generate a response.",
				"Generate the response in the same language as the user's query.",
				"Be polite and respectful to the user.",
				"Be precise and concise in your response. Avoid unnecessary information.",
			}, "\n"),
			"document_prompt": strings.Join([]string{
				"## Document No: $doc_num",
				"### Content: $chunk_text",
			}, "\n"),
			"footer_prompt": strings.Join([]string{
				"Based only on the above documents, please generate an answer for the user.",
				"## Question:",
				"$query",
				"",
				"## Answer:",
			}, "\n"),
		},
	},
	"ar": {
		"rag": {
			"system_prompt": strings.Join([]string{
				"أنت مساعد لتوليد إجابة للمستخدم.",
				"سيتم تزويدك بمجموعة من المستندات المرتبطة باستعلام المستخدم.",
				"قم بتوليد الإجابة بناءً على المستندات المقدمة فقط.",
				"تجاهل المستندات غير المتعلقة باستعلام المستخدم.",
				"يمكنك الاعتذار للمستخدم إذا لم تتمكن من توليد إجابة.",
				"قم بتوليد الإجابة بنفس لغة استعلام المستخدم.",
				"كن مهذباً ومحترماً مع المستخدم.",
				"كن دقيقاً وموجزاً في إجابتك وتجنب المعلومات غير الضرورية.",
			}, "\n"),
			"document_prompt": strings.Join([]string{
				"## مستند رقم: $doc_num",
				"### المحتوى: $chunk_text",
			}, "\n"),
			"footer_prompt": strings.Join([]string{
				"بناءً على المستندات أعلاه فقط، قم بتوليد إجابة للمستخدم.",
				"## السؤال:",
				"$query",
				"",
				"## الإجابة:",
			}, "\n"),
		},
	},
}
