package rcmp

import (
	"context"
	"fmt"
	"io"
	"regexp"

	"github.com/a-h/templ"
)

var customElementName = regexp.MustCompile(`^[a-z][a-z0-9._]*-[a-z0-9._-]*$`)

// Placeholder returns a templ component rendering the custom element that
// loads the descriptor at src once the page's loader is running.
//
// The fallback renders immediately as the element's children and stays
// visible until the component injects its own markup:
//
//	rcmp.Placeholder("remote-component", "/fragments/cart", spinner())
//
// tag must be a valid custom element name (lowercase, containing a hyphen);
// anything else fails to render with ErrInvalidTag.
func Placeholder(tag, src string, fallback templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if !customElementName.MatchString(tag) {
			return fmt.Errorf("%w: %q", ErrInvalidTag, tag)
		}
		_, err := io.WriteString(w, fmt.Sprintf(`<%s src="%s">`, tag, templ.EscapeString(src)))
		if err != nil {
			return err
		}
		if fallback != nil {
			if err := fallback.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err = io.WriteString(w, `</`+tag+`>`)
		return err
	})
}

// HTMLFallback wraps static markup as a fallback component.
func HTMLFallback(html string) templ.Component {
	if html == "" {
		return nil
	}
	return templ.Raw(html)
}
