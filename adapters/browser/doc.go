// Package browser binds rcmp to a real page when compiled with
// GOOS=js GOARCH=wasm.
//
// Page implements rcmp.Document and rcmp.Namespace over window and
// document; Element wraps a DOM node. Define registers the custom element
// that mounts a component whenever its src attribute is assigned:
//
//	loader := rcmp.NewLoader(page, page)
//	browser.Define("remote-component", loader)
//
//	<remote-component src="/fragments/cart"></remote-component>
//
// Start does all of the above from a YAML configuration embedded in the
// page as <script type="application/yaml" id="rcmp-config">.
package browser
