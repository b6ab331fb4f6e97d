package common

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys rendered by the views. Controllers only ever carry keys, translation happens at render time.
const (
	MsgSearchEmpty       = "search.empty"
	MsgSearchError       = "search.error"
	MsgTimelineEmpty     = "timeline.empty"
	MsgPopularEmpty      = "popular.empty"
	MsgDetailUnspecified = "detail.unspecified"
	MsgDetailNotFound    = "detail.notfound"
	MsgDetailError       = "detail.error"
	MsgPageError         = "page.error"
)

var translations = map[string]map[language.Tag]string{
	MsgSearchEmpty: {
		language.Spanish: "No se encontraron resultados para ese título.",
		language.English: "No results were found for that title.",
	},
	MsgSearchError: {
		language.Spanish: "Algo salió mal. Por favor, inténtalo de nuevo.",
		language.English: "Something went wrong. Please try again.",
	},
	MsgTimelineEmpty: {
		language.Spanish: "No hay estrenos para mostrar.",
		language.English: "There are no new releases to show.",
	},
	MsgPopularEmpty: {
		language.Spanish: "No hay películas populares para mostrar.",
		language.English: "There are no popular movies to show.",
	},
	MsgDetailUnspecified: {
		language.Spanish: "Película no especificada.",
		language.English: "No movie was specified.",
	},
	MsgDetailNotFound: {
		language.Spanish: "No se encontraron detalles.",
		language.English: "No details were found.",
	},
	MsgDetailError: {
		language.Spanish: "Error al cargar detalles.",
		language.English: "Failed to load details.",
	},
	MsgPageError: {
		language.Spanish: "Algo salió mal. Por favor, inténtalo de nuevo.",
		language.English: "Something went wrong. Please try again.",
	},
	"nav.search":         {language.Spanish: "Buscar", language.English: "Search"},
	"nav.new":            {language.Spanish: "Novedades", language.English: "New"},
	"nav.popular":        {language.Spanish: "Populares", language.English: "Popular"},
	"search.placeholder": {language.Spanish: "Buscar películas o series", language.English: "Search movies or series"},
	"detail.watch_now":   {language.Spanish: "Ver ahora", language.English: "Watch now"},
	"detail.synopsis":    {language.Spanish: "Sinopsis", language.English: "Synopsis"},
	"detail.cast":        {language.Spanish: "Reparto", language.English: "Cast"},
}

var supportedLanguages = []language.Tag{language.Spanish, language.English}

func init() {
	for key, byTag := range translations {
		for tag, msg := range byTag {
			if err := message.SetString(tag, key, msg); err != nil {
				panic(fmt.Sprintf("failed to message.SetString %s/%s: %v", tag, key, err))
			}
		}
	}
}

// Messages negotiates the UI language of a request.
type Messages struct {
	matcher   language.Matcher
	supported []language.Tag
}

// NewMessages creates a Messages that falls back to defaultLanguage when nothing in Accept-Language matches.
func NewMessages(defaultLanguage string) (*Messages, error) {
	def, err := language.Parse(defaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("failed to language.Parse: %w", err)
	}

	defBase, _ := def.Base()
	supported := make([]language.Tag, 0, len(supportedLanguages))
	for _, tag := range supportedLanguages {
		if base, _ := tag.Base(); base == defBase {
			supported = append([]language.Tag{tag}, supported...)
		} else {
			supported = append(supported, tag)
		}
	}
	if base, _ := supported[0].Base(); base != defBase {
		return nil, fmt.Errorf("unsupported default language %q", defaultLanguage)
	}

	return &Messages{
		matcher:   language.NewMatcher(supported),
		supported: supported,
	}, nil
}

// Negotiate picks the supported language that best matches an Accept-Language header value.
func (m *Messages) Negotiate(acceptLanguage string) language.Tag {
	_, index := language.MatchStrings(m.matcher, acceptLanguage)
	return m.supported[index]
}

// Printer returns a printer translating message keys into the negotiated language.
func (m *Messages) Printer(acceptLanguage string) *message.Printer {
	return message.NewPrinter(m.Negotiate(acceptLanguage))
}
