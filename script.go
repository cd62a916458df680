package rcmp

import (
	"fmt"

	"github.com/rs/zerolog"
)

// ScriptLoader loads external scripts into a document.
//
// Every call inserts a new script element; deduplication is the job of
// Dependencies. Failed loads are not retried.
type ScriptLoader struct {
	doc    Document
	logger zerolog.Logger
}

// NewScriptLoader creates a script loader writing into doc.
func NewScriptLoader(doc Document, logger zerolog.Logger) *ScriptLoader {
	return &ScriptLoader{doc: doc, logger: logger}
}

// Load appends <script src=url> and returns a future that settles on the
// element's load or error event. The element exists when Load returns.
// A failed load rejects with the host's error wrapped in ErrScriptLoad.
func (s *ScriptLoader) Load(url string) *Future {
	s.logger.Debug().Str("url", url).Msg("injecting script")
	loaded := s.doc.AppendScript("", url)

	out := NewFuture()
	go func() {
		<-loaded.Done()
		if err := loaded.Err(); err != nil {
			s.logger.Warn().Str("url", url).Err(err).Msg("script failed to load")
			out.Settle(fmt.Errorf("%w: %s: %w", ErrScriptLoad, url, err))
			return
		}
		out.Settle(nil)
	}()
	return out
}
