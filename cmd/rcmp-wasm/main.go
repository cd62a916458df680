//go:build js && wasm

// Command rcmp-wasm is the browser build of the loader: it defines the
// custom element from the page's inline configuration and stays resident.
//
//	GOOS=js GOARCH=wasm go build -o rcmp.wasm ./cmd/rcmp-wasm
package main

import (
	"github.com/pthm/rcmp/adapters/browser"
)

func main() {
	if _, err := browser.Start(); err != nil {
		panic(err)
	}
	select {}
}
